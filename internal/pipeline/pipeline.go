// Package pipeline wires the ports into the two agent flows. Each
// invocation is one synchronous, sequential pass: fetch and resolve the
// window, read memory, assemble the context, generate, commit memory, then
// deliver. There is no fan-out and no per-step deadline; the request is
// bounded only by the trigger's own timeout.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nightowlworks/grindbot/internal/compose"
	"github.com/nightowlworks/grindbot/internal/config"
	"github.com/nightowlworks/grindbot/internal/cursor"
	"github.com/nightowlworks/grindbot/internal/deliver"
	"github.com/nightowlworks/grindbot/internal/goals"
	"github.com/nightowlworks/grindbot/internal/memory"
	"github.com/nightowlworks/grindbot/internal/streak"
	"github.com/nightowlworks/grindbot/internal/telegram"
)

const excerptSize = 10

// Source is the inbound side of the chat collaborator.
type Source interface {
	FetchRecent() ([]telegram.Message, error)
	SelfID() int64
}

// Summary is the structured result returned to the trigger caller.
type Summary struct {
	InvocationID          string   `json:"invocationId"`
	ProcessedMessageCount int      `json:"processedMessageCount"`
	GeneratedReplies      []string `json:"generatedReplies"`
	SentCount             int      `json:"sentCount"`
	MemoryUpdated         bool     `json:"memoryUpdated"`
	MoodContext           string   `json:"moodContext,omitempty"`
	Tier                  string   `json:"tier,omitempty"`
	Diagnostics           []string `json:"diagnostics"`
}

func (s *Summary) diag(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Diagnostics = append(s.Diagnostics, msg)
	log.Printf("[pipeline] %s: %s", s.InvocationID, msg)
}

// Agent runs the reactive and proactive pipelines over injected ports.
//
// The singleton memory record carries no lock; two overlapping invocations
// could race it. The mutex below is a best-effort in-process guard: an
// overlapping trigger gets a busy diagnostic instead of a race. It does
// nothing across processes.
type Agent struct {
	cfg      *config.Config
	source   Source
	store    memory.Store
	activity memory.ActivityStore
	composer *compose.Composer
	seq      *deliver.Sequencer
	mu       sync.Mutex
	now      func() time.Time
}

func New(cfg *config.Config, source Source, store memory.Store, activity memory.ActivityStore, composer *compose.Composer, seq *deliver.Sequencer) *Agent {
	return &Agent{
		cfg:      cfg,
		source:   source,
		store:    store,
		activity: activity,
		composer: composer,
		seq:      seq,
		now:      time.Now,
	}
}

// Reactive replies to unprocessed chat messages. A generation transport
// failure is the only error that fails the request; everything else
// degrades with a diagnostic.
func (a *Agent) Reactive(ctx context.Context, force bool) (Summary, error) {
	sum := Summary{InvocationID: uuid.NewString()}
	if !a.mu.TryLock() {
		sum.diag("busy: another invocation is in flight")
		return sum, nil
	}
	defer a.mu.Unlock()

	mood := compose.MoodFor(a.now())
	sum.MoodContext = mood.Context()

	window, err := a.source.FetchRecent()
	if err != nil {
		sum.diag("source fetch failed, continuing with empty window: %v", err)
		window = nil
	}

	rec, found, err := a.store.Get()
	if err != nil {
		sum.diag("memory read failed, treating as cold start: %v", err)
		rec = memory.Record{}
	} else if !found {
		log.Printf("[pipeline] %s: cold start, no memory record yet", sum.InvocationID)
	}

	res := cursor.Resolve(window, a.cfg.Telegram.ChatID, a.source.SelfID(), rec.LastMessageID)
	sum.ProcessedMessageCount = len(res.Messages)

	if !res.HasNew && !force {
		sum.diag("no new messages")
		return sum, nil
	}

	reply, fellBack, err := a.composer.Reactive(ctx, compose.ReactiveContext{
		Messages:    res.Messages,
		Memory:      rec,
		Mood:        mood,
		AvoidRepeat: rec.LastMessage,
	})
	if err != nil {
		sum.diag("generation failed: %v", err)
		return sum, err
	}
	if fellBack {
		sum.diag("generation output unparseable, used fallback reply")
	}

	segments := a.resolveStickers(reply.Segments)
	sum.GeneratedReplies = segmentTexts(segments)

	a.commit(&sum, reply.Update, segments, maxMessageID(res.Messages))
	a.send(&sum, segments)
	return sum, nil
}

// Proactive runs the scheduled goal check-in. The tier and its sticker are
// computed before generation so escalation stays consistent even when the
// generation output degrades to the fallback.
func (a *Agent) Proactive(ctx context.Context) (Summary, error) {
	sum := Summary{InvocationID: uuid.NewString()}
	if !a.mu.TryLock() {
		sum.diag("busy: another invocation is in flight")
		return sum, nil
	}
	defer a.mu.Unlock()

	mood := compose.MoodFor(a.now())
	sum.MoodContext = mood.Context()

	today := streak.Today(a.now(), a.cfg.Streak.UTCOffsetHours)
	snaps := make([]goals.Snapshot, 0, len(a.cfg.Goals.Users))
	streaks := make(map[string]compose.StreakView, len(a.cfg.Goals.Users))
	for _, user := range a.cfg.Goals.Users {
		name := user.Name
		if name == "" {
			name = user.ID
		}

		raw, err := a.activity.RawStreak(user.ID)
		if err != nil {
			sum.diag("streak read failed for %s: %v", name, err)
		}
		state := streak.Parse(raw)
		streaks[name] = compose.StreakView{State: state, Status: streak.Classify(state, today)}

		counts, err := a.activity.DailyCounts(user.ID, today)
		if err != nil {
			sum.diag("activity read failed for %s: %v", name, err)
			counts = nil
		}
		snaps = append(snaps, goals.Evaluate(name, counts, a.cfg.Goals.Targets))
	}

	excerpt := a.recentExcerpt(&sum)

	rec, found, err := a.store.Get()
	if err != nil {
		sum.diag("memory read failed, treating as cold start: %v", err)
		rec = memory.Record{}
	} else if !found {
		log.Printf("[pipeline] %s: cold start, no memory record yet", sum.InvocationID)
	}

	pctx := compose.BuildProactive(snaps, streaks, excerpt, rec)
	sum.Tier = string(pctx.Tier)

	reply, fellBack, err := a.composer.Proactive(ctx, pctx)
	if err != nil {
		sum.diag("generation failed: %v", err)
		return sum, err
	}
	if fellBack {
		sum.diag("generation output unparseable, used fallback reply")
	}

	segments := a.resolveStickers(reply.Segments)
	segments = a.ensureTierSticker(segments, pctx.Tier)
	sum.GeneratedReplies = segmentTexts(segments)

	a.commit(&sum, reply.Update, segments, 0)
	a.send(&sum, segments)
	return sum, nil
}

// commit persists the memory update strictly before delivery. A write
// failure is logged and reported but does not fail the request: the reply
// may still be worth sending.
func (a *Agent) commit(sum *Summary, update memory.Update, segments []compose.Segment, maxInboundID int) {
	if update.LastMessage == "" {
		update.LastMessage = lastText(segments)
	}
	if maxInboundID > update.LastMessageID {
		update.LastMessageID = maxInboundID
	}
	if _, err := a.store.Upsert(update); err != nil {
		sum.diag("memory write failed: %v", err)
		return
	}
	sum.MemoryUpdated = true
}

// send delivers after the commit; a partial delivery therefore cannot roll
// back the already-committed memory update. That inconsistency is surfaced
// in the diagnostics rather than hidden.
func (a *Agent) send(sum *Summary, segments []compose.Segment) {
	res := a.seq.Deliver(a.cfg.Telegram.ChatID, segments)
	sum.SentCount = res.SentCount
	if res.Err != nil {
		sum.diag("delivery aborted after %d/%d segments: %v", res.SentCount, len(segments), res.Err)
	}
}

// resolveStickers maps generator sticker categories to configured file ids
// and drops sticker segments with no mapping.
func (a *Agent) resolveStickers(segments []compose.Segment) []compose.Segment {
	out := make([]compose.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Type == compose.SegmentSticker {
			fileID, ok := a.cfg.Goals.Stickers[seg.Content]
			if !ok {
				continue
			}
			seg.Content = fileID
		}
		out = append(out, seg)
	}
	return out
}

// ensureTierSticker appends the tier's sticker when one is configured and
// the generator did not already produce a sticker segment.
func (a *Agent) ensureTierSticker(segments []compose.Segment, tier goals.Tier) []compose.Segment {
	for _, seg := range segments {
		if seg.Type == compose.SegmentSticker {
			return segments
		}
	}
	fileID, ok := a.cfg.Goals.Stickers[goals.StickerCategory(tier)]
	if !ok {
		return segments
	}
	return append(segments, compose.Segment{Type: compose.SegmentSticker, Content: fileID})
}

func (a *Agent) recentExcerpt(sum *Summary) []telegram.Message {
	window, err := a.source.FetchRecent()
	if err != nil {
		sum.diag("excerpt fetch failed, continuing without chat context: %v", err)
		return nil
	}
	texts := make([]telegram.Message, 0, len(window))
	for _, m := range window {
		if m.ChatID != a.cfg.Telegram.ChatID || m.Text == "" {
			continue
		}
		texts = append(texts, m)
	}
	if len(texts) > excerptSize {
		texts = texts[len(texts)-excerptSize:]
	}
	return texts
}

func segmentTexts(segments []compose.Segment) []string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Type == compose.SegmentText {
			texts = append(texts, seg.Content)
		}
	}
	return texts
}

func lastText(segments []compose.Segment) string {
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].Type == compose.SegmentText {
			return segments[i].Content
		}
	}
	return ""
}

func maxMessageID(msgs []telegram.Message) int {
	max := 0
	for _, m := range msgs {
		if m.ID > max {
			max = m.ID
		}
	}
	return max
}
