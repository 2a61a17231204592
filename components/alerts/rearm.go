package alerts

import "fmt"

// Rearm modes. Values above RearmEachTime are a number of seconds.
const (
	RearmOnce     = 0
	RearmEachTime = 1
)

// Duration is a unit offered when rearm is expressed as a time span.
type Duration struct {
	Name    string
	Seconds int
}

// Durations are ordered from the smallest to the largest unit.
var Durations = []Duration{
	{Name: "second", Seconds: 1},
	{Name: "minute", Seconds: 60},
	{Name: "hour", Seconds: 3600},
	{Name: "day", Seconds: 86400},
	{Name: "week", Seconds: 604800},
}

// SplitRearm expresses seconds as count units using the largest unit that divides it
// exactly.
func SplitRearm(seconds int) (int, Duration) {
	for i := len(Durations) - 1; i >= 0; i-- {
		unit := Durations[i]
		if seconds%unit.Seconds == 0 {
			return seconds / unit.Seconds, unit
		}
	}
	return seconds, Durations[0]
}

// JoinRearm is the inverse of SplitRearm.
func JoinRearm(count int, unit Duration) int {
	return count * unit.Seconds
}

// DescribeRearm renders a rearm value for humans.
func DescribeRearm(rearm int) string {
	switch rearm {
	case RearmOnce:
		return "Notifications are sent just once, until back to normal."
	case RearmEachTime:
		return "Notifications are sent each time alert is evaluated, until back to normal."
	}
	count, unit := SplitRearm(rearm)
	name := unit.Name
	if count != 1 {
		name += "s"
	}
	return fmt.Sprintf("Notifications are sent at most once every %d %s, when alert is triggered.", count, name)
}
