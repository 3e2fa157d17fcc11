// Package cursor decides which inbound messages are unprocessed.
//
// The source window has a fixed size, so a very old unreplied message can
// fall outside the window and be permanently skipped if the bot never posts
// a marker message in between. That is a known limitation of the poll-based
// source, not something this package papers over.
package cursor

import (
	"sort"

	"github.com/nightowlworks/grindbot/internal/telegram"
)

// Result holds the unprocessed messages in ascending id order.
type Result struct {
	Messages []telegram.Message
	HasNew   bool
	Cutoff   int
}

// Resolve filters the raw window to the target chat, finds the resume point
// and returns every newer message authored by someone other than the bot.
//
// The resume point is the bot's most recent own message in the window (its
// last reply marks everything before it as handled). When the bot has no
// message in the window the stored cursor is used instead.
func Resolve(window []telegram.Message, chatID, selfID int64, storedCursor int) Result {
	filtered := make([]telegram.Message, 0, len(window))
	for _, m := range window {
		if m.ChatID != chatID || m.Text == "" {
			continue
		}
		filtered = append(filtered, m)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })

	cutoff := storedCursor
	for i := len(filtered) - 1; i >= 0; i-- {
		if filtered[i].SenderID == selfID {
			cutoff = filtered[i].ID
			break
		}
	}

	fresh := make([]telegram.Message, 0, len(filtered))
	for _, m := range filtered {
		if m.ID > cutoff && m.SenderID != selfID {
			fresh = append(fresh, m)
		}
	}

	return Result{
		Messages: fresh,
		HasNew:   len(fresh) > 0,
		Cutoff:   cutoff,
	}
}
