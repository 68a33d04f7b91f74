package utils

import (
	"math"

	"github.com/robmorgan/metric/rhythm"
)

// MaxBeatsPerMinute is the fastest tempo the command line accepts.
const MaxBeatsPerMinute = 1000.0

// Clamp limits t to the closed interval between min and max, whichever way round they are given.
func Clamp(t, min, max float64) float64 {
	min, max = math.Min(min, max), math.Max(min, max)
	return math.Max(math.Min(t, max), min)
}

// ClampBeatsPerMinute brings user input into the range a tempo dialog allows.
func ClampBeatsPerMinute(bpm float64) float64 {
	return Clamp(bpm, rhythm.MinBeatsPerMinute, MaxBeatsPerMinute)
}

// ClampDivisionsPerBar keeps a bar at least one division long. XXX is there a sensible upper limit?
func ClampDivisionsPerBar(dpb float64) float64 {
	return math.Max(rhythm.MinDivisionsPerBar, dpb)
}
