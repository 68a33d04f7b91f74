package rhythm

import "fmt"

// SectionID is a stable handle to a section owned by a tempo map. It survives edits to other sections.
type SectionID uint64

// PositionLockStyle declares which coordinate of a section is authoritative.
type PositionLockStyle int

const (
	// MusicTime sections are positioned by beat; their sample position follows earlier tempo changes.
	MusicTime PositionLockStyle = iota

	// AudioTime sections are positioned by sample; their beat position is derived.
	AudioTime
)

func (s PositionLockStyle) String() string {
	switch s {
	case MusicTime:
		return "MusicTime"
	case AudioTime:
		return "AudioTime"
	}
	return fmt.Sprintf("PositionLockStyle(%d)", int(s))
}

// ParsePositionLockStyle is the inverse of PositionLockStyle.String.
func ParsePositionLockStyle(s string) (PositionLockStyle, error) {
	switch s {
	case "MusicTime", "":
		return MusicTime, nil
	case "AudioTime":
		return AudioTime, nil
	}
	return MusicTime, fmt.Errorf("unknown position lock style %q", s)
}

// MetricSection is a point on the timeline where either tempo or meter changes.
type MetricSection struct {
	id        SectionID
	beat      float64
	sample    int64
	movable   bool
	lockStyle PositionLockStyle
}

func (m *MetricSection) ID() SectionID {
	return m.id
}

func (m *MetricSection) SetID(id SectionID) {
	m.id = id
}

// Beat returns the position in pulses (quarter notes) from the start of the timeline.
func (m *MetricSection) Beat() float64 {
	return m.beat
}

func (m *MetricSection) SetBeat(beat float64) {
	m.beat = beat
}

// Sample returns the position in audio samples from the start of the timeline.
func (m *MetricSection) Sample() int64 {
	return m.sample
}

func (m *MetricSection) SetSample(sample int64) {
	m.sample = sample
}

func (m *MetricSection) Movable() bool {
	return m.movable
}

func (m *MetricSection) SetMovable(yn bool) {
	m.movable = yn
}

func (m *MetricSection) PositionLockStyle() PositionLockStyle {
	return m.lockStyle
}

func (m *MetricSection) SetPositionLockStyle(ps PositionLockStyle) {
	m.lockStyle = ps
}

// Section is a tempo or meter change owned by a map. It is either a *TempoSection or a *MeterSection.
type Section interface {
	Metric() *MetricSection

	// Clone returns a deep copy that shares nothing with the receiver.
	Clone() Section

	isSection()
}

// MeterSection is a section of timeline with a certain Meter. A meter section always starts a bar.
type MeterSection struct {
	MetricSection
	Meter

	bbt BBT
}

// NewMeterSection returns a music-locked meter change at beat, which is bar bbt.Bars.
func NewMeterSection(beat float64, bbt BBT, meter Meter) *MeterSection {
	return &MeterSection{
		MetricSection: MetricSection{beat: beat, movable: true, lockStyle: MusicTime},
		Meter:         meter,
		bbt:           bbt,
	}
}

// NewMeterSectionAtSample returns an audio-locked meter change at sample.
func NewMeterSectionAtSample(sample int64, meter Meter) *MeterSection {
	return &MeterSection{
		MetricSection: MetricSection{sample: sample, movable: true, lockStyle: AudioTime},
		Meter:         meter,
		bbt:           BBT{Bars: 1, Beats: 1},
	}
}

func (m *MeterSection) Metric() *MetricSection {
	return &m.MetricSection
}

func (m *MeterSection) Clone() Section {
	c := *m
	return &c
}

func (m *MeterSection) isSection() {}

func (m *MeterSection) BBT() BBT {
	return m.bbt
}

func (m *MeterSection) SetBBT(bbt BBT) {
	m.bbt = bbt
}

func (m *MeterSection) SetMeter(meter Meter) {
	m.Meter = meter
}

func (m *MeterSection) String() string {
	return fmt.Sprintf("meter %v @ %v beat %.6f sample %d (%v, movable %v)",
		m.Meter, m.bbt, m.beat, m.sample, m.lockStyle, m.movable)
}
