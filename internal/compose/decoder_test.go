package compose

import (
	"strings"
	"testing"
)

const validWire = `{
  "messages": [
    {"type": "text", "content": "two done, one to go"},
    {"type": "sticker", "content": "approval"}
  ],
  "memory_update": {
    "memory": "alice is closing in on leetcode",
    "last_message": "two done, one to go",
    "should_commit_long_term": false
  }
}`

func TestDecodeReply_PlainObject(t *testing.T) {
	reply, err := DecodeReply(validWire)
	if err != nil {
		t.Fatalf("DecodeReply error: %v", err)
	}
	if len(reply.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(reply.Segments))
	}
	if reply.Segments[0].Type != SegmentText {
		t.Errorf("Segments[0].Type = %q, want text", reply.Segments[0].Type)
	}
	if reply.Segments[1].Type != SegmentSticker || reply.Segments[1].Content != "approval" {
		t.Errorf("Segments[1] = %+v, want approval sticker", reply.Segments[1])
	}
	if reply.Update.Memory != "alice is closing in on leetcode" {
		t.Errorf("Update.Memory = %q", reply.Update.Memory)
	}
}

func TestDecodeReply_FencedAndNoisy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + validWire + "\n```"},
		{"bare fence", "```\n" + validWire + "\n```"},
		{"leading prose", "Sure! Here is the reply:\n" + validWire},
		{"trailing prose", validWire + "\nHope that helps."},
		{"prose both sides", "Okay.\n" + validWire + "\nDone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := DecodeReply(tt.raw)
			if err != nil {
				t.Fatalf("DecodeReply error: %v", err)
			}
			if len(reply.Segments) != 2 {
				t.Fatalf("got %d segments, want 2", len(reply.Segments))
			}
		})
	}
}

func TestDecodeReply_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no object", "just some words"},
		{"broken json", `{"messages": [}`},
		{"missing memory_update", `{"messages":[{"type":"text","content":"hi"}]}`},
		{"no messages", `{"messages":[],"memory_update":{}}`},
		{"only empty contents", `{"messages":[{"type":"text","content":"  "}],"memory_update":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeReply(tt.raw); err == nil {
				t.Fatalf("DecodeReply(%q) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestDecodeReply_UnknownSegmentTypeBecomesText(t *testing.T) {
	raw := `{"messages":[{"type":"voice","content":"hello"}],"memory_update":{}}`
	reply, err := DecodeReply(raw)
	if err != nil {
		t.Fatalf("DecodeReply error: %v", err)
	}
	if reply.Segments[0].Type != SegmentText {
		t.Fatalf("unknown type mapped to %q, want text", reply.Segments[0].Type)
	}
}

func TestDecodeReply_EmptySegmentsDropped(t *testing.T) {
	raw := `{"messages":[{"type":"text","content":""},{"type":"text","content":"kept"}],"memory_update":{}}`
	reply, err := DecodeReply(raw)
	if err != nil {
		t.Fatalf("DecodeReply error: %v", err)
	}
	if len(reply.Segments) != 1 || reply.Segments[0].Content != "kept" {
		t.Fatalf("Segments = %+v, want single kept segment", reply.Segments)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractObject(t *testing.T) {
	if got := extractObject("abc {\"x\": {\"y\": 1}} def"); got != `{"x": {"y": 1}}` {
		t.Errorf("extractObject = %q", got)
	}
	if got := extractObject("no braces here"); got != "" {
		t.Errorf("extractObject = %q, want empty", got)
	}
	if got := extractObject("} backwards {"); got != "" {
		t.Errorf("extractObject on reversed braces = %q, want empty", got)
	}
}

func TestFallbackReply_AlwaysValid(t *testing.T) {
	seeds := []string{"", "prompt a", "prompt b", strings.Repeat("x", 4096)}
	for _, seed := range seeds {
		reply := FallbackReply(seed)
		if len(reply.Segments) == 0 {
			t.Fatalf("FallbackReply(%q) has no segments", seed)
		}
		if reply.Segments[0].Type != SegmentText || reply.Segments[0].Content == "" {
			t.Fatalf("FallbackReply(%q) first segment = %+v", seed, reply.Segments[0])
		}
		if reply.Update.ShouldCommitLongTerm {
			t.Fatalf("fallback must not commit long-term memory")
		}
		if reply.Update.LastMessage == "" {
			t.Fatalf("fallback must record its own last message")
		}
	}
}

func TestFallbackReply_DeterministicPerSeed(t *testing.T) {
	a := FallbackReply("same seed")
	b := FallbackReply("same seed")
	if a.Segments[0].Content != b.Segments[0].Content {
		t.Fatalf("same seed produced %q then %q", a.Segments[0].Content, b.Segments[0].Content)
	}
}
