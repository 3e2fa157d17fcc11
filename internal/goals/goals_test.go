package goals

import (
	"fmt"
	"testing"
)

var testTargets = map[string]int{
	"leetcode":    3,
	"anki_new":    20,
	"anki_review": 100,
}

func TestEvaluate_Perfect(t *testing.T) {
	counts := map[string]int{"leetcode": 3, "anki_new": 25, "anki_review": 100}
	snap := Evaluate("alice", counts, testTargets)

	if !snap.IsPerfect {
		t.Fatal("IsPerfect = false, want true")
	}
	if snap.CompletedCount != 3 {
		t.Fatalf("CompletedCount = %d, want 3", snap.CompletedCount)
	}
	if snap.Ratio != 1.0 {
		t.Fatalf("Ratio = %v, want 1.0", snap.Ratio)
	}
	if len(snap.Missed) != 0 {
		t.Fatalf("Missed = %v, want empty", snap.Missed)
	}
}

func TestEvaluate_PartialWithShortfalls(t *testing.T) {
	counts := map[string]int{"leetcode": 1, "anki_new": 20}
	snap := Evaluate("bob", counts, testTargets)

	if snap.IsPerfect {
		t.Fatal("IsPerfect = true, want false")
	}
	if snap.CompletedCount != 1 {
		t.Fatalf("CompletedCount = %d, want 1", snap.CompletedCount)
	}
	if len(snap.Missed) != 2 {
		t.Fatalf("got %d misses, want 2", len(snap.Missed))
	}
	// Sorted goal-name order: anki_new, anki_review, leetcode.
	if snap.Missed[0].Name != "anki_review" || snap.Missed[0].Shortfall != 100 {
		t.Errorf("Missed[0] = %+v, want anki_review short 100", snap.Missed[0])
	}
	if snap.Missed[1].Name != "leetcode" || snap.Missed[1].Shortfall != 2 {
		t.Errorf("Missed[1] = %+v, want leetcode short 2", snap.Missed[1])
	}
}

func TestEvaluate_StableGoalOrder(t *testing.T) {
	snap := Evaluate("alice", nil, testTargets)
	want := []string{"anki_new", "anki_review", "leetcode"}
	if len(snap.Goals) != len(want) {
		t.Fatalf("got %d goals, want %d", len(snap.Goals), len(want))
	}
	for i, name := range want {
		if snap.Goals[i].Name != name {
			t.Errorf("Goals[%d].Name = %q, want %q", i, snap.Goals[i].Name, name)
		}
	}
}

func TestEvaluate_ZeroTargetNotTracked(t *testing.T) {
	targets := map[string]int{"leetcode": 3, "retired": 0}
	snap := Evaluate("alice", map[string]int{"leetcode": 3}, targets)

	if !snap.IsPerfect {
		t.Fatal("zero-target goal should not block perfect")
	}
	if snap.Ratio != 1.0 {
		t.Fatalf("Ratio = %v, want 1.0", snap.Ratio)
	}
}

func TestEvaluate_EmptyTargets(t *testing.T) {
	snap := Evaluate("alice", map[string]int{"leetcode": 5}, nil)
	if snap.IsPerfect {
		t.Fatal("no tracked goals cannot be perfect")
	}
	if snap.Ratio != 0 {
		t.Fatalf("Ratio = %v, want 0", snap.Ratio)
	}
}

func snapWithRatio(ratio float64) Snapshot {
	return Snapshot{UserID: "u", Ratio: ratio, IsPerfect: ratio >= 1.0}
}

func TestAggregateTier(t *testing.T) {
	tests := []struct {
		name  string
		snaps []Snapshot
		want  Tier
	}{
		{"no snapshots", nil, TierTerrible},
		{"all perfect", []Snapshot{snapWithRatio(1), snapWithRatio(1)}, TierPerfect},
		{"one of two perfect", []Snapshot{snapWithRatio(1), snapWithRatio(0)}, TierOnePerfect},
		{"decent mean", []Snapshot{snapWithRatio(0.8), snapWithRatio(0.7)}, TierDecent},
		{"average mean", []Snapshot{snapWithRatio(0.5), snapWithRatio(0.5)}, TierAverage},
		{"bad mean", []Snapshot{snapWithRatio(0.3), snapWithRatio(0.2)}, TierBad},
		{"terrible mean", []Snapshot{snapWithRatio(0.1), snapWithRatio(0)}, TierTerrible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateTier(tt.snaps); got != tt.want {
				t.Errorf("AggregateTier = %q, want %q", got, tt.want)
			}
		})
	}
}

// Every mean ratio in [0,1] must land in exactly one tier, and higher ratios
// must never land in a worse tier.
func TestAggregateTier_ThresholdsExhaustiveAndMonotonic(t *testing.T) {
	rank := map[Tier]int{
		TierTerrible: 0,
		TierBad:      1,
		TierAverage:  2,
		TierDecent:   3,
	}

	prev := -1
	for i := 0; i <= 100; i++ {
		ratio := float64(i) / 100
		tier := AggregateTier([]Snapshot{{UserID: "u", Ratio: ratio}})
		r, ok := rank[tier]
		if !ok {
			t.Fatalf("ratio %.2f produced unexpected tier %q", ratio, tier)
		}
		if r < prev {
			t.Fatalf("tier rank regressed at ratio %.2f", ratio)
		}
		prev = r
	}
}

func TestIntensityAndStickerPerTier(t *testing.T) {
	tests := []struct {
		tier      Tier
		intensity int
		sticker   string
	}{
		{TierPerfect, 1, "praise"},
		{TierOnePerfect, 1, "approval"},
		{TierDecent, 2, "meh"},
		{TierAverage, 3, "disappointed"},
		{TierBad, 4, "angry"},
		{TierTerrible, 4, "furious"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := Intensity(tt.tier); got != tt.intensity {
				t.Errorf("Intensity = %d, want %d", got, tt.intensity)
			}
			if got := StickerCategory(tt.tier); got != tt.sticker {
				t.Errorf("StickerCategory = %q, want %q", got, tt.sticker)
			}
		})
	}
}

func ExampleEvaluate() {
	snap := Evaluate("alice", map[string]int{"leetcode": 2}, map[string]int{"leetcode": 3})
	fmt.Println(snap.Missed[0].Name, snap.Missed[0].Shortfall)
	// Output: leetcode 1
}
