// Package goals computes completion ratios and performance tiers from the
// daily activity counters. Everything here is deterministic and makes no
// external calls; the tier decides response intensity and sticker category
// before generation runs, so escalation stays consistent even when the
// generation step degrades to a fallback.
package goals

import "sort"

// GoalProgress is one goal's attempted/target pair.
type GoalProgress struct {
	Name      string
	Attempted int
	Target    int
}

// Miss is an unmet goal with the remaining shortfall.
type Miss struct {
	Name      string
	Shortfall int
}

// Snapshot is the evaluated daily state for one tracked user.
type Snapshot struct {
	UserID         string
	Goals          []GoalProgress
	CompletedCount int
	Ratio          float64
	Missed         []Miss
	IsPerfect      bool
}

// Evaluate computes a snapshot from raw counters against the goal catalog.
// Goals are walked in sorted name order so output ordering is stable.
func Evaluate(userID string, counts map[string]int, targets map[string]int) Snapshot {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := Snapshot{UserID: userID}
	completedRatioSum := 0.0
	for _, name := range names {
		target := targets[name]
		attempted := counts[name]
		snap.Goals = append(snap.Goals, GoalProgress{Name: name, Attempted: attempted, Target: target})
		if target <= 0 {
			continue
		}
		if attempted >= target {
			snap.CompletedCount++
			completedRatioSum++
		} else {
			snap.Missed = append(snap.Missed, Miss{Name: name, Shortfall: target - attempted})
			completedRatioSum += float64(attempted) / float64(target)
		}
	}

	tracked := trackedCount(targets)
	if tracked > 0 {
		snap.Ratio = float64(snap.CompletedCount) / float64(tracked)
	}
	snap.IsPerfect = tracked > 0 && snap.CompletedCount == tracked
	return snap
}

func trackedCount(targets map[string]int) int {
	n := 0
	for _, t := range targets {
		if t > 0 {
			n++
		}
	}
	return n
}

// Tier is a discrete performance bucket driving response intensity.
type Tier string

const (
	TierPerfect    Tier = "perfect"
	TierOnePerfect Tier = "one_perfect"
	TierDecent     Tier = "decent"
	TierAverage    Tier = "average"
	TierBad        Tier = "bad"
	TierTerrible   Tier = "terrible"
)

// AggregateTier maps the snapshots to one tier. All users perfect wins
// outright; a single perfect user among several is its own bucket; below
// that the mean completion ratio falls through fixed monotonic thresholds
// that are exhaustive over [0,1].
func AggregateTier(snaps []Snapshot) Tier {
	if len(snaps) == 0 {
		return TierTerrible
	}

	perfect := 0
	meanRatio := 0.0
	for _, s := range snaps {
		if s.IsPerfect {
			perfect++
		}
		meanRatio += s.Ratio
	}
	meanRatio /= float64(len(snaps))

	switch {
	case perfect == len(snaps):
		return TierPerfect
	case perfect > 0:
		return TierOnePerfect
	case meanRatio >= 0.75:
		return TierDecent
	case meanRatio >= 0.50:
		return TierAverage
	case meanRatio >= 0.25:
		return TierBad
	default:
		return TierTerrible
	}
}

// Intensity is how many reply segments the persona should escalate to:
// one short segment for good days, three to four for bad ones.
func Intensity(t Tier) int {
	switch t {
	case TierPerfect, TierOnePerfect:
		return 1
	case TierDecent:
		return 2
	case TierAverage:
		return 3
	default:
		return 4
	}
}

// StickerCategory selects the media category for a tier. The mapping is
// independent of the generation step.
func StickerCategory(t Tier) string {
	switch t {
	case TierPerfect:
		return "praise"
	case TierOnePerfect:
		return "approval"
	case TierDecent:
		return "meh"
	case TierAverage:
		return "disappointed"
	case TierBad:
		return "angry"
	default:
		return "furious"
	}
}
