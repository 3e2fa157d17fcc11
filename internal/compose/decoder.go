package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nightowlworks/grindbot/internal/memory"
)

// Wire shape of the generator's structured output.
type wireSegment struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type wireUpdate struct {
	Memory               string            `json:"memory"`
	LongTermMemory       string            `json:"long_term_memory"`
	ShortTermMemory      string            `json:"short_term_memory"`
	Notes                map[string]string `json:"notes"`
	LastMessage          string            `json:"last_message"`
	ShouldCommitLongTerm bool              `json:"should_commit_long_term"`
}

type wireReply struct {
	Messages     []wireSegment `json:"messages"`
	MemoryUpdate *wireUpdate   `json:"memory_update"`
}

// DecodeReply leniently extracts the structured reply from free-form model
// output: code-fence wrapping is stripped, the substring between the first
// "{" and the last "}" is parsed, then the result is validated (non-empty
// message list, memory update present).
func DecodeReply(raw string) (Reply, error) {
	payload := extractObject(stripFences(raw))
	if payload == "" {
		return Reply{}, fmt.Errorf("no JSON object in output")
	}

	var wire wireReply
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Reply{}, fmt.Errorf("parse reply: %w", err)
	}

	if wire.MemoryUpdate == nil {
		return Reply{}, fmt.Errorf("reply has no memory_update")
	}

	segments := make([]Segment, 0, len(wire.Messages))
	for _, m := range wire.Messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		segType := SegmentText
		if m.Type == string(SegmentSticker) {
			segType = SegmentSticker
		}
		segments = append(segments, Segment{Type: segType, Content: content})
	}
	if len(segments) == 0 {
		return Reply{}, fmt.Errorf("reply has no usable segments")
	}

	return Reply{
		Segments: segments,
		Update: memory.Update{
			Memory:               wire.MemoryUpdate.Memory,
			LongTermMemory:       wire.MemoryUpdate.LongTermMemory,
			ShortTermMemory:      wire.MemoryUpdate.ShortTermMemory,
			Notes:                wire.MemoryUpdate.Notes,
			LastMessage:          wire.MemoryUpdate.LastMessage,
			ShouldCommitLongTerm: wire.MemoryUpdate.ShouldCommitLongTerm,
		},
	}, nil
}

// stripFences removes a markdown code fence wrapping, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the substring between the first "{" and the last
// "}", or "" when no object is present.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
