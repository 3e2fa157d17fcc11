package compose

import (
	"context"
	"fmt"
	"log"

	"github.com/cexll/agentsdk-go/pkg/api"
)

// PersonaPrompt is the fixed persona contract handed to the runtime as the
// system prompt. Tone and length rules live here, plus the required output
// shape the decoder expects.
const PersonaPrompt = `You are grindbot, the accountability buddy in a small study group chat.
You track daily study goals and streaks. You are direct, a little dry, and
you never sugarcoat a missed goal. You do celebrate real wins.

Length rules: one short message for simple or low-intensity input; three to
four short escalating messages for complex or high-intensity input. Each
message is at most two sentences.

You must respond with a single JSON object and nothing else:
{
  "messages": [
    {"type": "text", "content": "..."},
    {"type": "sticker", "content": "<category>"}
  ],
  "memory_update": {
    "memory": "one-line summary of the conversation state",
    "long_term_memory": "durable facts worth keeping",
    "short_term_memory": "what just happened",
    "notes": {"<user>": "free-text note about that user"},
    "should_commit_long_term": false
  }
}
Set should_commit_long_term to true only when long_term_memory genuinely
needs to change. Sticker categories: praise, approval, meh, disappointed,
angry, furious.`

// Composer turns an assembled context into a validated Reply. The generation
// call is a single attempt with no retry: a transport failure propagates to
// the caller, while malformed output is recovered locally with the
// deterministic fallback.
type Composer struct {
	rt Runtime
}

func New(rt Runtime) *Composer {
	return &Composer{rt: rt}
}

// Reactive generates a reply to new chat messages. The returned bool reports
// whether the deterministic fallback was used.
func (c *Composer) Reactive(ctx context.Context, rc ReactiveContext) (Reply, bool, error) {
	return c.generate(ctx, rc.Prompt(), "reactive")
}

// Proactive generates a goal check-in. The returned bool reports whether the
// deterministic fallback was used.
func (c *Composer) Proactive(ctx context.Context, pc ProactiveContext) (Reply, bool, error) {
	return c.generate(ctx, pc.Prompt(), "proactive")
}

func (c *Composer) generate(ctx context.Context, prompt, session string) (Reply, bool, error) {
	resp, err := c.rt.Run(ctx, api.Request{
		Prompt:    prompt,
		SessionID: session,
	})
	if err != nil {
		return Reply{}, false, fmt.Errorf("generation call: %w", err)
	}

	var raw string
	if resp != nil && resp.Result != nil {
		raw = resp.Result.Output
	}

	reply, err := DecodeReply(raw)
	if err != nil {
		log.Printf("[compose] decode failed, using fallback: %v", err)
		return FallbackReply(prompt), true, nil
	}
	return reply, false, nil
}
