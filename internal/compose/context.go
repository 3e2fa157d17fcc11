package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nightowlworks/grindbot/internal/goals"
	"github.com/nightowlworks/grindbot/internal/memory"
	"github.com/nightowlworks/grindbot/internal/streak"
	"github.com/nightowlworks/grindbot/internal/telegram"
)

// SegmentType tags one outbound reply segment.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentSticker SegmentType = "sticker"
)

// Segment is one ordered piece of a reply. For sticker segments Content is
// the media reference (a category name from the generator, resolved to a
// file id before delivery).
type Segment struct {
	Type    SegmentType `json:"type"`
	Content string      `json:"content"`
}

// Reply is the generator's output: ordered segments plus the proposed
// memory update.
type Reply struct {
	Segments []Segment
	Update   memory.Update
}

// ReactiveContext is the assembled input for a reply to new chat messages.
type ReactiveContext struct {
	Messages    []telegram.Message
	Memory      memory.Record
	Mood        Mood
	AvoidRepeat string
}

// StreakView pairs a normalized streak with its classification.
type StreakView struct {
	State  streak.State
	Status streak.Status
}

// ProactiveContext is the assembled input for a scheduled goal check-in.
type ProactiveContext struct {
	Snapshots []goals.Snapshot
	Streaks   map[string]StreakView
	Tier      goals.Tier
	Intensity int
	Excerpt   []telegram.Message
	Memory    memory.Record
}

// BuildProactive evaluates the tier and intensity up front so they hold even
// if generation later degrades to the fallback.
func BuildProactive(snaps []goals.Snapshot, streaks map[string]StreakView, excerpt []telegram.Message, rec memory.Record) ProactiveContext {
	tier := goals.AggregateTier(snaps)
	return ProactiveContext{
		Snapshots: snaps,
		Streaks:   streaks,
		Tier:      tier,
		Intensity: goals.Intensity(tier),
		Excerpt:   excerpt,
		Memory:    rec,
	}
}

func (rc ReactiveContext) Prompt() string {
	var sb strings.Builder

	sb.WriteString("## Current state\n")
	writeMemory(&sb, rc.Memory)
	fmt.Fprintf(&sb, "Right now it is %s, you are %s and feeling %s. Open with something like %q if it fits.\n",
		rc.Mood.DayPart, rc.Mood.Activity, rc.Mood.Vibe, rc.Mood.Greeting)

	sb.WriteString("\n## New messages\n")
	for _, m := range rc.Messages {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", m.ID, m.SenderName, m.Text)
	}

	if rc.AvoidRepeat != "" {
		fmt.Fprintf(&sb, "\nYour previous reply was: %q; do not repeat yourself.\n", rc.AvoidRepeat)
	}

	sb.WriteString("\nReply to the new messages.\n")
	return sb.String()
}

func (pc ProactiveContext) Prompt() string {
	var sb strings.Builder

	sb.WriteString("## Current state\n")
	writeMemory(&sb, pc.Memory)

	sb.WriteString("\n## Today's goal progress\n")
	for _, s := range pc.Snapshots {
		fmt.Fprintf(&sb, "%s: %d goals done, ratio %.0f%%", s.UserID, s.CompletedCount, s.Ratio*100)
		if s.IsPerfect {
			sb.WriteString(" (all goals hit)")
		}
		sb.WriteString("\n")
		for _, miss := range s.Missed {
			fmt.Fprintf(&sb, "  missing %s by %d\n", miss.Name, miss.Shortfall)
		}
		if view, ok := pc.Streaks[s.UserID]; ok {
			fmt.Fprintf(&sb, "  streak: %d days, last update %s (%s)\n",
				view.State.Count, view.State.LastUpdateDate, view.Status)
		}
	}

	fmt.Fprintf(&sb, "\nOverall tier: %s. Respond with %d message segment(s).\n", pc.Tier, pc.Intensity)

	if len(pc.Excerpt) > 0 {
		sb.WriteString("\n## Recent chat (context only, do not reply to these)\n")
		for _, m := range pc.Excerpt {
			fmt.Fprintf(&sb, "%s: %s\n", m.SenderName, m.Text)
		}
	}

	sb.WriteString("\nCheck in on their progress, matching the tier's intensity.\n")
	return sb.String()
}

func writeMemory(sb *strings.Builder, rec memory.Record) {
	if rec.Memory != "" {
		fmt.Fprintf(sb, "Summary: %s\n", rec.Memory)
	}
	if rec.LongTermMemory != "" {
		fmt.Fprintf(sb, "Long-term memory: %s\n", rec.LongTermMemory)
	}
	if rec.ShortTermMemory != "" {
		fmt.Fprintf(sb, "Short-term memory: %s\n", rec.ShortTermMemory)
	}
	if len(rec.Notes) > 0 {
		keys := make([]string, 0, len(rec.Notes))
		for k := range rec.Notes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Notes:\n")
		for _, k := range keys {
			fmt.Fprintf(sb, "  %s: %s\n", k, rec.Notes[k])
		}
	}
}
