package guidance

import (
	"fmt"

	"github.com/opennavx/navsim/pkg/datastructure"
)

var compassPoints = [8]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

// CardinalDirection maps a bearing in [0, 360) to one of eight compass points.
func CardinalDirection(bearing float64) string {
	idx := int((bearing+22.5)/45.0) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

// ClassifyTurn maps a signed bearing delta in (-180, 180] to a maneuver.
// negative deltas turn left, positive turn right.
func ClassifyTurn(delta float64) datastructure.Maneuver {
	abs := delta
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < 20:
		return datastructure.CONTINUE
	case abs < 60:
		if delta < 0 {
			return datastructure.SLIGHT_LEFT
		}
		return datastructure.SLIGHT_RIGHT
	case abs < 135:
		if delta < 0 {
			return datastructure.TURN_LEFT
		}
		return datastructure.TURN_RIGHT
	default:
		if delta < 0 {
			return datastructure.SHARP_LEFT
		}
		return datastructure.SHARP_RIGHT
	}
}

// InstructionFor renders the spoken instruction for a maneuver onto a street.
func InstructionFor(maneuver datastructure.Maneuver, street string, bearing float64) string {
	name := street
	if name == "" {
		name = "the road"
	}

	switch maneuver {
	case datastructure.DEPART:
		return fmt.Sprintf("Head %s on %s", CardinalDirection(bearing), name)
	case datastructure.CONTINUE:
		return fmt.Sprintf("Continue on %s", name)
	case datastructure.SLIGHT_LEFT:
		return fmt.Sprintf("Turn slightly left onto %s", name)
	case datastructure.SLIGHT_RIGHT:
		return fmt.Sprintf("Turn slightly right onto %s", name)
	case datastructure.TURN_LEFT:
		return fmt.Sprintf("Turn left onto %s", name)
	case datastructure.TURN_RIGHT:
		return fmt.Sprintf("Turn right onto %s", name)
	case datastructure.SHARP_LEFT:
		return fmt.Sprintf("Make a sharp left onto %s", name)
	case datastructure.SHARP_RIGHT:
		return fmt.Sprintf("Make a sharp right onto %s", name)
	case datastructure.BACKTRACK:
		return fmt.Sprintf("Turn around and backtrack along %s", name)
	case datastructure.ARRIVE:
		return "Arrive at your destination"
	default:
		return fmt.Sprintf("Continue on %s", name)
	}
}
