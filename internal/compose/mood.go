package compose

import (
	"fmt"
	"time"
)

// Mood is the deterministic time-of-day/day-of-week descriptor mixed into
// the reactive prompt. It is a pure function of the clock: same hour and
// weekday, same mood.
type Mood struct {
	DayPart  string
	Activity string
	Vibe     string
	Greeting string
}

var (
	morningActivities = []string{
		"just finished a cold shower",
		"brewing way too much coffee",
		"reviewing yesterday's grind log",
		"stretching before the day starts",
	}
	afternoonActivities = []string{
		"between deep work blocks",
		"staring at a half-solved problem",
		"taking a walk to reset",
		"refilling the water bottle again",
	}
	eveningActivities = []string{
		"winding down the day's sessions",
		"tallying today's numbers",
		"doing a last review pass",
		"planning tomorrow's queue",
	}
	nightActivities = []string{
		"up late, keeping an eye on things",
		"running on lamplight and stubbornness",
		"doing a quiet midnight check-in",
		"half asleep but still watching the board",
	}

	weekdayVibes = []string{"focused", "no-nonsense", "briskly encouraging", "dry and direct"}
	weekendVibes = []string{"relaxed but watchful", "playful", "easygoing", "warm"}

	greetings = []string{"hey", "yo", "alright", "so", "listen", "okay", "right then"}
)

// MoodFor derives the descriptor from the current hour and weekday.
func MoodFor(t time.Time) Mood {
	hour := t.Hour()
	weekday := int(t.Weekday())

	var dayPart string
	var activities []string
	switch {
	case hour >= 5 && hour < 12:
		dayPart = "morning"
		activities = morningActivities
	case hour >= 12 && hour < 18:
		dayPart = "afternoon"
		activities = afternoonActivities
	case hour >= 18 && hour < 23:
		dayPart = "evening"
		activities = eveningActivities
	default:
		dayPart = "night"
		activities = nightActivities
	}

	vibes := weekdayVibes
	if weekday == 0 || weekday == 6 {
		vibes = weekendVibes
	}

	return Mood{
		DayPart:  dayPart,
		Activity: activities[hour%len(activities)],
		Vibe:     vibes[(hour+weekday)%len(vibes)],
		Greeting: greetings[(hour+weekday)%len(greetings)],
	}
}

// Context renders the descriptor for the response summary.
func (m Mood) Context() string {
	return fmt.Sprintf("%s/%s: %s", m.DayPart, m.Vibe, m.Activity)
}
