package compose

import (
	"hash/fnv"

	"github.com/nightowlworks/grindbot/internal/memory"
)

// fallbackPool is the static phrase pool used when generation output cannot
// be decoded. The pick is deterministic in the prompt so repeated failures
// on the same input stay stable.
var fallbackPool = []string{
	"brain's lagging today. noted, will get back to you properly.",
	"hm, lost my train of thought. anyway: goals. how are they looking?",
	"that one scrambled me a bit. carry on, I'm still watching the numbers.",
	"no clever answer right now, but the streak counter never sleeps.",
	"short circuit on my end. log your progress and I'll catch up.",
}

// FallbackReply builds the guaranteed-valid reply: at least one segment and
// a minimal memory update that leaves long-term memory untouched.
func FallbackReply(seed string) Reply {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	phrase := fallbackPool[h.Sum32()%uint32(len(fallbackPool))]

	return Reply{
		Segments: []Segment{{Type: SegmentText, Content: phrase}},
		Update: memory.Update{
			LastMessage:          phrase,
			ShouldCommitLongTerm: false,
		},
	}
}
