package transport

import (
	"fmt"
	"math"

	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
)

// Snapshot describes where on the timeline the transport was at a single instant.
type Snapshot struct {
	Sample  int64
	Beat    float64
	BBT     rhythm.BBT
	Tempo   rhythm.Tempo
	Meter   rhythm.Meter
	Rolling bool

	// BeatPhase is how far through the current meter division the snapshot is, from 0 up to 1.
	BeatPhase float64

	// BarPhase is how far through the current bar the snapshot is, from 0 up to 1.
	BarPhase float64

	BarsPerPhrase uint32
}

// Snapshot returns the current position along with the tempo and meter in effect there.
func (t *Transport) Snapshot() Snapshot {
	t.mu.Lock()
	sample := t.sampleLocked()
	cursor := t.cursor
	rolling := t.rolling
	phrase := t.phrase
	t.mu.Unlock()

	metric, cursor := t.tm.MetricAtFrom(cursor, sample)
	bbt := t.tm.BBTAtSample(sample)

	t.mu.Lock()
	t.cursor = cursor
	t.mu.Unlock()

	beatPhase := float64(bbt.Ticks) / rhythm.TicksPerBeat
	barPhase := (float64(bbt.Beats-1) + beatPhase) / metric.Meter.DivisionsPerBar()
	return Snapshot{
		Sample:        sample,
		Beat:          metric.Beat,
		BBT:           bbt,
		Tempo:         t.tm.TempoAt(sample),
		Meter:         metric.Meter.Meter,
		Rolling:       rolling,
		BeatPhase:     beatPhase,
		BarPhase:      math.Min(barPhase, 1),
		BarsPerPhrase: phrase,
	}
}

func (s Snapshot) barsPerPhrase() uint32 {
	if s.BarsPerPhrase == 0 {
		return DefaultBarsPerPhrase
	}
	return s.BarsPerPhrase
}

// Phrase returns the phrase number of the snapshot, counting from one.
func (s Snapshot) Phrase() uint32 {
	return (s.BBT.Bars-1)/s.barsPerPhrase() + 1
}

// BarWithinPhrase returns the bar number of the snapshot relative to the start of its phrase.
func (s Snapshot) BarWithinPhrase() uint32 {
	return (s.BBT.Bars-1)%s.barsPerPhrase() + 1
}

// IsDownBeat reports whether the snapshot falls in the first division of a bar.
func (s Snapshot) IsDownBeat() bool {
	return s.BBT.Beats == 1
}

// IsPhraseStart reports whether the snapshot falls in the first division of a phrase.
func (s Snapshot) IsPhraseStart() bool {
	return s.IsDownBeat() && s.BarWithinPhrase() == 1
}

// Marker formats the snapshot as "phrase.bar.beat".
func (s Snapshot) Marker() string {
	return fmt.Sprintf("%d.%d.%d", s.Phrase(), s.BarWithinPhrase(), s.BBT.Beats)
}

// DistanceFromBeat returns how many samples the snapshot is from the closest division, negative when the
// division is still to come.
func (t *Transport) DistanceFromBeat(s Snapshot) int64 {
	lower := t.tm.RoundToBeat(s.Sample, tempomap.RoundDown)
	upper := t.tm.RoundToBeat(s.Sample, tempomap.RoundUp)
	if s.Sample-lower <= upper-s.Sample {
		return s.Sample - lower
	}
	return s.Sample - upper
}
