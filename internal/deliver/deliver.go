// Package deliver dispatches an ordered reply sequence to the chat sink.
// Delivery is intentionally sequential: reply ordering must be preserved for
// conversational coherence, and the pacing delays keep the output from
// looking like a burst (and from tripping platform rate limits).
package deliver

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/nightowlworks/grindbot/internal/compose"
)

// Sink is the outbound side of the chat collaborator.
type Sink interface {
	SendText(chatID int64, text string) (int, error)
	SendSticker(chatID int64, fileID string) (int, error)
}

// Pacer waits between segments. Injectable so ordering and abort behavior
// can be tested without wall-clock sleeps.
type Pacer interface {
	Wait(after compose.SegmentType)
}

type randomPacer struct {
	textMin, textMax       time.Duration
	stickerMin, stickerMax time.Duration
	sleep                  func(time.Duration)
	rng                    *rand.Rand
}

// NewPacer returns the default randomized pacer: a short band after text
// and a longer one after stickers.
func NewPacer() Pacer {
	return &randomPacer{
		textMin:    800 * time.Millisecond,
		textMax:    2500 * time.Millisecond,
		stickerMin: 1500 * time.Millisecond,
		stickerMax: 4 * time.Second,
		sleep:      time.Sleep,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *randomPacer) Wait(after compose.SegmentType) {
	min, max := p.textMin, p.textMax
	if after == compose.SegmentSticker {
		min, max = p.stickerMin, p.stickerMax
	}
	p.sleep(min + time.Duration(p.rng.Int63n(int64(max-min))))
}

// Result reports how much of the sequence was actually sent. Err is the
// first dispatch error; segments after it were never attempted.
type Result struct {
	SentCount  int
	MessageIDs []int
	Err        error
}

func (r Result) Partial() bool {
	return r.Err != nil
}

// Sequencer sends segments in order with pacing between them.
type Sequencer struct {
	sink  Sink
	pacer Pacer
}

func New(sink Sink, pacer Pacer) *Sequencer {
	return &Sequencer{sink: sink, pacer: pacer}
}

// Deliver dispatches each segment in order, aborting the remainder on the
// first error. No retry: the caller reports the partial result instead.
func (s *Sequencer) Deliver(chatID int64, segments []compose.Segment) Result {
	var res Result
	for i, seg := range segments {
		var id int
		var err error
		switch seg.Type {
		case compose.SegmentSticker:
			id, err = s.sink.SendSticker(chatID, seg.Content)
		default:
			id, err = s.sink.SendText(chatID, seg.Content)
		}
		if err != nil {
			res.Err = fmt.Errorf("dispatch segment %d: %w", i+1, err)
			log.Printf("[deliver] aborting after %d/%d segments: %v", res.SentCount, len(segments), err)
			return res
		}
		res.SentCount++
		res.MessageIDs = append(res.MessageIDs, id)

		if i < len(segments)-1 {
			s.pacer.Wait(seg.Type)
		}
	}
	return res
}
