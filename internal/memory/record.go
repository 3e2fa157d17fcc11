package memory

import "time"

// RecordID is the fixed identity of the singleton conversational record.
// Exactly one record exists once created; every write is an upsert against
// this id.
const RecordID = "primary"

// Record is the cross-invocation conversational state.
type Record struct {
	Memory          string            `json:"memory"`
	LongTermMemory  string            `json:"long_term_memory"`
	ShortTermMemory string            `json:"short_term_memory"`
	Notes           map[string]string `json:"notes"`
	LastMessage     string            `json:"last_message"`
	LastMessageID   int               `json:"last_message_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Update is a proposed mutation of the record, shaped like the record minus
// identity. An empty field is "not present" and preserves the stored value;
// long_term_memory is additionally gated by ShouldCommitLongTerm and is kept
// verbatim when the flag is false, regardless of the proposed value.
type Update struct {
	Memory               string            `json:"memory,omitempty"`
	LongTermMemory       string            `json:"long_term_memory,omitempty"`
	ShortTermMemory      string            `json:"short_term_memory,omitempty"`
	Notes                map[string]string `json:"notes,omitempty"`
	LastMessage          string            `json:"last_message,omitempty"`
	LastMessageID        int               `json:"last_message_id,omitempty"`
	ShouldCommitLongTerm bool              `json:"should_commit_long_term"`
}

// Merge applies u on top of prev. Last writer wins; there is no optimistic
// locking (invocations are not expected to overlap).
func Merge(prev Record, u Update, now time.Time) Record {
	next := prev
	if u.Memory != "" {
		next.Memory = u.Memory
	}
	if u.ShouldCommitLongTerm && u.LongTermMemory != "" {
		next.LongTermMemory = u.LongTermMemory
	}
	if u.ShortTermMemory != "" {
		next.ShortTermMemory = u.ShortTermMemory
	}
	if len(u.Notes) > 0 {
		merged := make(map[string]string, len(prev.Notes)+len(u.Notes))
		for k, v := range prev.Notes {
			merged[k] = v
		}
		for k, v := range u.Notes {
			merged[k] = v
		}
		next.Notes = merged
	}
	if u.LastMessage != "" {
		next.LastMessage = u.LastMessage
	}
	if u.LastMessageID > 0 {
		next.LastMessageID = u.LastMessageID
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	return next
}

// Store is the persistence port for the singleton record. Get reports
// absence explicitly so callers can distinguish cold start from failure.
type Store interface {
	Get() (Record, bool, error)
	Upsert(u Update) (Record, error)
}

// ActivityStore exposes the externally-owned per-user state this subsystem
// reads but never writes: the raw streak value and the daily goal counters.
type ActivityStore interface {
	RawStreak(userID string) (string, error)
	DailyCounts(userID, date string) (map[string]int, error)
}
