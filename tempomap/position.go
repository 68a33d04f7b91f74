package tempomap

import (
	"fmt"
	"math"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
)

// Position is where an edit puts a section. Lock says which coordinate is used and becomes the section's
// position lock style.
type Position struct {
	Beat   float64
	Sample int64
	Lock   rhythm.PositionLockStyle
}

// AtBeat is a music-locked position.
func AtBeat(beat float64) Position {
	return Position{Beat: beat, Lock: rhythm.MusicTime}
}

// AtSample is an audio-locked position.
func AtSample(sample int64) Position {
	return Position{Sample: sample, Lock: rhythm.AudioTime}
}

func (p Position) String() string {
	if p.Lock == rhythm.AudioTime {
		return fmt.Sprintf("sample %d", p.Sample)
	}
	return fmt.Sprintf("beat %g", p.Beat)
}

// validate rejects the start of the timeline, which belongs to the initial sections, and anything outside the
// representable range.
func (p Position) validate() error {
	switch p.Lock {
	case rhythm.MusicTime:
		if math.IsNaN(p.Beat) || math.IsInf(p.Beat, 0) || p.Beat <= 0 {
			return errors.WithStackTrace(ErrInvalidPosition)
		}
	case rhythm.AudioTime:
		if p.Sample <= 0 || p.Sample > MaxSample {
			return errors.WithStackTrace(ErrInvalidPosition)
		}
	default:
		return errors.WithStackTrace(ErrInvalidPosition)
	}
	return nil
}
