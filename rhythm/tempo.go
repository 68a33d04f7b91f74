package rhythm

import (
	"errors"
	"fmt"
	"math"
)

// TicksPerBeat is the resolution of the tick coordinate, in ticks per pulse (and per BBT division).
const TicksPerBeat = 1920.0

const (
	// MinBeatsPerMinute is the slowest tempo the map accepts. Anything lower makes the ramp math degenerate.
	MinBeatsPerMinute = 0.01

	// MinDivisionsPerBar is the smallest bar the map accepts.
	MinDivisionsPerBar = 1.0
)

var (
	// ErrInvalidTempo is returned for tempos below MinBeatsPerMinute or with a non-positive note type.
	ErrInvalidTempo = errors.New("invalid tempo")

	// ErrInvalidMeter is returned for meters with fewer than MinDivisionsPerBar divisions or a non-positive note type.
	ErrInvalidMeter = errors.New("invalid meter")
)

// Tempo is the speed at which musical time progresses. It is a value and is replaced wholesale on edit.
type Tempo struct {
	beatsPerMinute float64
	noteType       float64
}

// NewTempo returns a tempo of bpm beats of the given note type (4 is a quarter note) per minute.
func NewTempo(bpm float64, noteType float64) Tempo {
	return Tempo{beatsPerMinute: bpm, noteType: noteType}
}

func (t Tempo) BeatsPerMinute() float64 {
	return t.beatsPerMinute
}

func (t Tempo) NoteType() float64 {
	return t.noteType
}

// PulsesPerMinute returns the tempo expressed in quarter notes per minute.
func (t Tempo) PulsesPerMinute() float64 {
	return t.beatsPerMinute * 4.0 / t.noteType
}

// TicksPerMinute returns the tempo in ticks of the pulse grid per minute.
func (t Tempo) TicksPerMinute() float64 {
	return t.PulsesPerMinute() * TicksPerBeat
}

// SamplesPerBeat returns the number of audio samples one beat of this tempo lasts at sample rate sr.
func (t Tempo) SamplesPerBeat(sr int64) float64 {
	return (60.0 * float64(sr)) / t.beatsPerMinute
}

// SamplesPerPulse returns the number of audio samples one quarter note lasts at sample rate sr.
func (t Tempo) SamplesPerPulse(sr int64) float64 {
	return (60.0 * float64(sr)) / t.PulsesPerMinute()
}

// Validate checks the tempo against the floors the map depends on.
func (t Tempo) Validate() error {
	if math.IsNaN(t.beatsPerMinute) || math.IsInf(t.beatsPerMinute, 0) || t.beatsPerMinute < MinBeatsPerMinute {
		return ErrInvalidTempo
	}
	if math.IsNaN(t.noteType) || math.IsInf(t.noteType, 0) || t.noteType <= 0 {
		return ErrInvalidTempo
	}
	return nil
}

func (t Tempo) String() string {
	return fmt.Sprintf("%g 1/%g per minute", t.beatsPerMinute, t.noteType)
}

// Meter is a time signature: how many divisions make a bar and which note a division is.
type Meter struct {
	// Divisions per bar is a float because some traditions do not limit themselves to integral beats per bar.
	divisionsPerBar float64

	// 4.0 is a quarter note, 8.0 an eighth note and so on.
	noteType float64
}

func NewMeter(divisionsPerBar float64, noteType float64) Meter {
	return Meter{divisionsPerBar: divisionsPerBar, noteType: noteType}
}

func (m Meter) DivisionsPerBar() float64 {
	return m.divisionsPerBar
}

func (m Meter) NoteDivisor() float64 {
	return m.noteType
}

// PulsesPerDivision returns how many quarter notes one division of the bar lasts.
func (m Meter) PulsesPerDivision() float64 {
	return 4.0 / m.noteType
}

// PulsesPerBar returns how many quarter notes one bar lasts.
func (m Meter) PulsesPerBar() float64 {
	return m.divisionsPerBar * m.PulsesPerDivision()
}

// SamplesPerGrid returns the length of one division in samples under a constant tempo t.
func (m Meter) SamplesPerGrid(t Tempo, sr int64) float64 {
	return (60.0 * float64(sr)) / (t.beatsPerMinute * (m.noteType / t.noteType))
}

// SamplesPerBar returns the length of one bar in samples under a constant tempo t.
func (m Meter) SamplesPerBar(t Tempo, sr int64) float64 {
	return m.SamplesPerGrid(t, sr) * m.divisionsPerBar
}

func (m Meter) Validate() error {
	if math.IsNaN(m.divisionsPerBar) || math.IsInf(m.divisionsPerBar, 0) || m.divisionsPerBar < MinDivisionsPerBar {
		return ErrInvalidMeter
	}
	if math.IsNaN(m.noteType) || math.IsInf(m.noteType, 0) || m.noteType <= 0 {
		return ErrInvalidMeter
	}
	return nil
}

func (m Meter) String() string {
	return fmt.Sprintf("%g/%g", m.divisionsPerBar, m.noteType)
}
