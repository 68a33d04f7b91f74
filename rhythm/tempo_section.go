package rhythm

import (
	"fmt"
	"math"
)

// TempoType selects how tempo moves between a section and its successor.
type TempoType int

const (
	// Ramp sections interpolate exponentially towards the next tempo section.
	Ramp TempoType = iota

	// Constant sections hold their tempo until the next tempo section.
	Constant
)

func (t TempoType) String() string {
	switch t {
	case Ramp:
		return "Ramp"
	case Constant:
		return "Constant"
	}
	return fmt.Sprintf("TempoType(%d)", int(t))
}

func ParseTempoType(s string) (TempoType, error) {
	switch s {
	case "Ramp":
		return Ramp, nil
	case "Constant", "":
		return Constant, nil
	}
	return Constant, fmt.Errorf("unknown tempo type %q", s)
}

// TempoSection is a section of timeline with a certain Tempo.
//
// A ramped section only means something in the context of its successor, so every ramp function takes the
// successor's tempo and position as arguments. Passing the zero Tempo means there is no successor, and the
// section behaves as constant.
type TempoSection struct {
	MetricSection
	Tempo

	// barOffset is the fractional offset into the bar the section sits in. 0.0 is the first beat of the bar,
	// 0.5 half way through it. Negative means it has not been computed yet.
	barOffset float64
	typ       TempoType
}

// NewTempoSection returns a music-locked tempo change at beat.
func NewTempoSection(beat float64, tempo Tempo, typ TempoType) *TempoSection {
	return &TempoSection{
		MetricSection: MetricSection{beat: beat, movable: true, lockStyle: MusicTime},
		Tempo:         tempo,
		barOffset:     -1.0,
		typ:           typ,
	}
}

// NewTempoSectionAtSample returns an audio-locked tempo change at sample.
func NewTempoSectionAtSample(sample int64, tempo Tempo, typ TempoType) *TempoSection {
	return &TempoSection{
		MetricSection: MetricSection{sample: sample, movable: true, lockStyle: AudioTime},
		Tempo:         tempo,
		barOffset:     -1.0,
		typ:           typ,
	}
}

func (t *TempoSection) Metric() *MetricSection {
	return &t.MetricSection
}

func (t *TempoSection) Clone() Section {
	c := *t
	return &c
}

func (t *TempoSection) isSection() {}

func (t *TempoSection) Type() TempoType {
	return t.typ
}

func (t *TempoSection) SetType(typ TempoType) {
	t.typ = typ
}

func (t *TempoSection) SetTempo(tempo Tempo) {
	t.Tempo = tempo
}

func (t *TempoSection) BarOffset() float64 {
	return t.barOffset
}

func (t *TempoSection) SetBarOffset(offset float64) {
	t.barOffset = offset
}

// UpdateBarOffset recomputes the bar offset from the section's beat and the meter section in effect there.
func (t *TempoSection) UpdateBarOffset(meter *MeterSection) {
	bars := (t.beat - meter.Beat()) / meter.PulsesPerBar()
	if bars < 0 {
		bars = 0
	}
	t.barOffset = bars - math.Floor(bars)
}

func (t *TempoSection) String() string {
	return fmt.Sprintf("tempo %v %v @ beat %.6f sample %d (%v, movable %v, bar offset %.4f)",
		t.Tempo, t.typ, t.beat, t.sample, t.lockStyle, t.movable, t.barOffset)
}

// linear reports whether the section degenerates to a fixed tempo over the given interval.
func (t *TempoSection) linear(end Tempo, endMinutes float64) bool {
	if t.typ == Constant || endMinutes <= 0 {
		return true
	}
	if end.beatsPerMinute <= 0 || end.noteType <= 0 {
		return true
	}
	return end.TicksPerMinute() == t.TicksPerMinute()
}

// cFunc is the ramp's growth constant in 1/minute.
func (t *TempoSection) cFunc(endTPM float64, endMinutes float64) float64 {
	return math.Log(endTPM/t.TicksPerMinute()) / endMinutes
}

// aFunc is the time in minutes at which a curve with growth c reaches endTPM.
func (t *TempoSection) aFunc(endTPM float64, c float64) float64 {
	return math.Log(endTPM/t.TicksPerMinute()) / c
}

// RampMinutes returns how long the section lasts if its successor, with tempo end, sits beats pulses later.
func (t *TempoSection) RampMinutes(beats float64, end Tempo) float64 {
	p0 := t.PulsesPerMinute()
	if t.typ == Constant || beats <= 0 || end.beatsPerMinute <= 0 || end.noteType <= 0 {
		return beats / p0
	}
	p1 := end.PulsesPerMinute()
	if p1 == p0 {
		return beats / p0
	}
	// integrating p0*e^(ct) over [0, t_end] with e^(c*t_end) = p1/p0 gives beats = (p1-p0)/c
	c := (p1 - p0) / beats
	return t.aFunc(end.TicksPerMinute(), c)
}

// TempoAtTime returns the tempo in this section's note type, minutes after the section start.
func (t *TempoSection) TempoAtTime(minutes float64, end Tempo, endMinutes float64) float64 {
	if t.linear(end, endMinutes) {
		return t.beatsPerMinute
	}
	tpm := t.tickTempoAtTime(minutes, end.TicksPerMinute(), endMinutes)
	return tpm / TicksPerBeat * t.noteType / 4.0
}

// TimeAtTempo returns the minutes after the section start at which the ramp reaches bpm. It is zero for
// constant sections.
func (t *TempoSection) TimeAtTempo(bpm float64, end Tempo, endMinutes float64) float64 {
	if t.linear(end, endMinutes) {
		return 0
	}
	tpm := bpm * 4.0 / t.noteType * TicksPerBeat
	return t.timeAtTickTempo(tpm, end.TicksPerMinute(), endMinutes)
}

// TickAtTime returns the ticks elapsed minutes after the section start.
func (t *TempoSection) TickAtTime(minutes float64, end Tempo, endMinutes float64) float64 {
	if t.linear(end, endMinutes) {
		return t.TicksPerMinute() * minutes
	}
	c := t.cFunc(end.TicksPerMinute(), endMinutes)
	return math.Expm1(c*minutes) * t.TicksPerMinute() / c
}

// TimeAtTick returns the minutes after the section start at which tick ticks have elapsed.
func (t *TempoSection) TimeAtTick(tick float64, end Tempo, endMinutes float64) float64 {
	if t.linear(end, endMinutes) {
		return tick / t.TicksPerMinute()
	}
	c := t.cFunc(end.TicksPerMinute(), endMinutes)
	x := c * tick / t.TicksPerMinute()
	if x <= -1 {
		// a slowing ramp never gets this far
		return math.Inf(1)
	}
	return math.Log1p(x) / c
}

// BeatAtTime returns the pulses elapsed minutes after the section start.
func (t *TempoSection) BeatAtTime(minutes float64, end Tempo, endMinutes float64) float64 {
	return t.TickAtTime(minutes, end, endMinutes) / TicksPerBeat
}

// TimeAtBeat returns the minutes after the section start at which beats pulses have elapsed.
func (t *TempoSection) TimeAtBeat(beats float64, end Tempo, endMinutes float64) float64 {
	return t.TimeAtTick(beats*TicksPerBeat, end, endMinutes)
}

// TempoAtSample returns the tempo at an absolute sample position. endSample is the successor's position.
func (t *TempoSection) TempoAtSample(sample int64, end Tempo, endSample int64, sampleRate int64) float64 {
	return t.TempoAtTime(t.minutesSince(sample, sampleRate), end, t.minutesSince(endSample, sampleRate))
}

// SampleAtTempo returns the absolute sample at which the ramp reaches bpm.
func (t *TempoSection) SampleAtTempo(bpm float64, end Tempo, endSample int64, sampleRate int64) int64 {
	minutes := t.TimeAtTempo(bpm, end, t.minutesSince(endSample, sampleRate))
	return t.sample + int64(math.Round(MinutesToSamples(minutes, sampleRate)))
}

// TickAtSample returns the ticks elapsed between the section start and an absolute sample position.
func (t *TempoSection) TickAtSample(sample int64, end Tempo, endSample int64, sampleRate int64) float64 {
	return t.TickAtTime(t.minutesSince(sample, sampleRate), end, t.minutesSince(endSample, sampleRate))
}

// SampleAtTick returns the absolute sample at which tick ticks have elapsed since the section start.
func (t *TempoSection) SampleAtTick(tick float64, end Tempo, endSample int64, sampleRate int64) int64 {
	minutes := t.TimeAtTick(tick, end, t.minutesSince(endSample, sampleRate))
	return t.sample + int64(math.Round(MinutesToSamples(minutes, sampleRate)))
}

// BeatAtSample returns the pulses elapsed between the section start and an absolute sample position.
func (t *TempoSection) BeatAtSample(sample int64, end Tempo, endSample int64, sampleRate int64) float64 {
	return t.TickAtSample(sample, end, endSample, sampleRate) / TicksPerBeat
}

// SampleAtBeat returns the absolute sample at which beats pulses have elapsed since the section start.
func (t *TempoSection) SampleAtBeat(beats float64, end Tempo, endSample int64, sampleRate int64) int64 {
	return t.SampleAtTick(beats*TicksPerBeat, end, endSample, sampleRate)
}

func (t *TempoSection) minutesSince(sample int64, sampleRate int64) float64 {
	return SamplesToMinutes(float64(sample-t.sample), sampleRate)
}

/* tempo ramp functions. zero based with time in minutes, tick tempo in ticks per minute. */

func (t *TempoSection) tickTempoAtTime(minutes float64, endTPM float64, endMinutes float64) float64 {
	return math.Exp(t.cFunc(endTPM, endMinutes)*minutes) * t.TicksPerMinute()
}

func (t *TempoSection) timeAtTickTempo(tickTempo float64, endTPM float64, endMinutes float64) float64 {
	return math.Log(tickTempo/t.TicksPerMinute()) / t.cFunc(endTPM, endMinutes)
}

// MinutesToSamples converts a duration in minutes to (fractional) samples.
func MinutesToSamples(minutes float64, sampleRate int64) float64 {
	return minutes * 60.0 * float64(sampleRate)
}

// SamplesToMinutes converts a duration in samples to minutes.
func SamplesToMinutes(samples float64, sampleRate int64) float64 {
	return samples / (60.0 * float64(sampleRate))
}
