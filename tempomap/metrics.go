package tempomap

import (
	"math"

	"github.com/robmorgan/metric/rhythm"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// MaxSample is the largest sample position a section may occupy.
const MaxSample = int64(math.MaxInt64 / 4)

// snapEpsilon absorbs floating point noise when a derived sample lands a hair below an integer.
const snapEpsilon = 1e-6

// metrics is the ground truth of the timeline: an arena of sections addressed by handle, plus the handles in
// timeline order. It does no locking; the TempoMap holds its lock around every use.
type metrics struct {
	rate   int64
	arena  map[rhythm.SectionID]rhythm.Section
	order  []rhythm.SectionID
	nextID rhythm.SectionID

	// rebuilt by reindex, in timeline order
	tempos []*rhythm.TempoSection
	meters []*rhythm.MeterSection
}

func newMetrics(rate int64, tempo rhythm.Tempo, typ rhythm.TempoType, meter rhythm.Meter) *metrics {
	w := &metrics{
		rate:   rate,
		arena:  make(map[rhythm.SectionID]rhythm.Section),
		nextID: 1,
	}

	ms := rhythm.NewMeterSection(0, rhythm.NewBBT(1, 1, 0), meter)
	ms.SetMovable(false)
	w.insert(ms)

	ts := rhythm.NewTempoSection(0, tempo, typ)
	ts.SetMovable(false)
	ts.SetBarOffset(0)
	w.insert(ts)

	w.reindex()
	return w
}

// clone returns a deep copy that can be edited without readers observing it.
func (w *metrics) clone() *metrics {
	c := &metrics{
		rate:   w.rate,
		arena:  make(map[rhythm.SectionID]rhythm.Section, len(w.arena)),
		order:  make([]rhythm.SectionID, len(w.order)),
		nextID: w.nextID,
	}
	for id, s := range w.arena {
		c.arena[id] = s.Clone()
	}
	copy(c.order, w.order)
	c.reindex()
	return c
}

func (w *metrics) section(id rhythm.SectionID) rhythm.Section {
	return w.arena[id]
}

func (w *metrics) tempoSection(id rhythm.SectionID) (*rhythm.TempoSection, bool) {
	ts, ok := w.arena[id].(*rhythm.TempoSection)
	return ts, ok
}

func (w *metrics) meterSection(id rhythm.SectionID) (*rhythm.MeterSection, bool) {
	ms, ok := w.arena[id].(*rhythm.MeterSection)
	return ms, ok
}

// insert adds s to the arena, giving it a handle if it has none, and places it after every section that
// compares equal to it.
func (w *metrics) insert(s rhythm.Section) rhythm.SectionID {
	m := s.Metric()
	if m.ID() == 0 {
		m.SetID(w.nextID)
		w.nextID++
	}
	w.arena[m.ID()] = s

	idx, _ := slices.BinarySearchFunc(w.order, s, func(id rhythm.SectionID, target rhythm.Section) int {
		if compareSections(w.arena[id], target) <= 0 {
			return -1
		}
		return 1
	})
	w.order = slices.Insert(w.order, idx, m.ID())
	return m.ID()
}

// detach removes a section from the ordered sequence but keeps it in the arena, ready to be reinserted.
func (w *metrics) detach(id rhythm.SectionID) {
	if idx := slices.Index(w.order, id); idx >= 0 {
		w.order = slices.Delete(w.order, idx, idx+1)
	}
}

func (w *metrics) remove(id rhythm.SectionID) {
	w.detach(id)
	delete(w.arena, id)
}

// sortOrder restores timeline order without disturbing sections that compare equal.
func (w *metrics) sortOrder() {
	slices.SortStableFunc(w.order, func(a, b rhythm.SectionID) int {
		return compareSections(w.arena[a], w.arena[b])
	})
}

func (w *metrics) reindex() {
	w.tempos = w.tempos[:0]
	w.meters = w.meters[:0]
	for _, id := range w.order {
		switch s := w.arena[id].(type) {
		case *rhythm.TempoSection:
			w.tempos = append(w.tempos, s)
		case *rhythm.MeterSection:
			w.meters = append(w.meters, s)
		}
	}
}

// checkOrder verifies that sample positions never decrease along the sequence.
func (w *metrics) checkOrder() error {
	for i := 1; i < len(w.order); i++ {
		if w.arena[w.order[i]].Metric().Sample() < w.arena[w.order[i-1]].Metric().Sample() {
			return ErrInconsistent
		}
	}
	if len(w.tempos) == 0 || len(w.meters) == 0 || w.tempos[0].Movable() || w.meters[0].Movable() {
		return ErrInconsistent
	}
	if n := len(w.order); n > 0 && w.arena[w.order[n-1]].Metric().Sample() > MaxSample {
		return ErrInvalidPosition
	}
	return nil
}

// compareSections orders by sample, then beat, with meters ahead of tempos at the same point.
func compareSections(a, b rhythm.Section) int {
	ma, mb := a.Metric(), b.Metric()
	switch {
	case ma.Sample() < mb.Sample():
		return -1
	case ma.Sample() > mb.Sample():
		return 1
	case ma.Beat() < mb.Beat():
		return -1
	case ma.Beat() > mb.Beat():
		return 1
	}
	return kindRank(a) - kindRank(b)
}

func kindRank(s rhythm.Section) int {
	switch s.(type) {
	case *rhythm.MeterSection:
		return 0
	case *rhythm.TempoSection:
		return 1
	}
	return 2
}

// lastAtOrBefore returns the index of the last element whose key is <= target, or 0 if there is none.
func lastAtOrBefore[E any, K constraints.Ordered](s []E, target K, key func(E) K) int {
	idx, _ := slices.BinarySearchFunc(s, target, func(e E, t K) int {
		if key(e) <= t {
			return -1
		}
		return 1
	})
	if idx == 0 {
		return 0
	}
	return idx - 1
}

func tempoSample(t *rhythm.TempoSection) int64 { return t.Sample() }
func tempoBeat(t *rhythm.TempoSection) float64 { return t.Beat() }
func meterSample(m *rhythm.MeterSection) int64 { return m.Sample() }
func meterBeat(m *rhythm.MeterSection) float64 { return m.Beat() }
func meterBar(m *rhythm.MeterSection) uint32   { return m.BBT().Bars }

func (w *metrics) tempoIndexAtSample(sample int64) int {
	return lastAtOrBefore(w.tempos, sample, tempoSample)
}

func (w *metrics) tempoIndexAtBeat(beat float64) int {
	return lastAtOrBefore(w.tempos, beat, tempoBeat)
}

func (w *metrics) meterIndexAtSample(sample int64) int {
	return lastAtOrBefore(w.meters, sample, meterSample)
}

func (w *metrics) meterIndexAtBeat(beat float64) int {
	return lastAtOrBefore(w.meters, beat, meterBeat)
}

func (w *metrics) meterIndexAtBar(bars uint32) int {
	return lastAtOrBefore(w.meters, bars, meterBar)
}

// tempoEnd returns what the ramp of tempo section i runs towards: its successor's tempo and position.
// The zero Tempo means the section is the last one.
func (w *metrics) tempoEnd(i int) (rhythm.Tempo, int64) {
	if i+1 < len(w.tempos) {
		next := w.tempos[i+1]
		return next.Tempo, next.Sample()
	}
	return rhythm.Tempo{}, 0
}

func (w *metrics) beatAtSample(sample int64) float64 {
	return w.beatAtSampleFrom(w.tempoIndexAtSample(sample), sample)
}

func (w *metrics) beatAtSampleFrom(i int, sample int64) float64 {
	ts := w.tempos[i]
	end, endSample := w.tempoEnd(i)
	return ts.Beat() + ts.BeatAtSample(sample, end, endSample, w.rate)
}

// sampleAtBeatExact returns the fractional sample position of beat.
func (w *metrics) sampleAtBeatExact(beat float64) float64 {
	return w.sampleAtBeatFrom(w.tempoIndexAtBeat(beat), beat)
}

func (w *metrics) sampleAtBeatFrom(i int, beat float64) float64 {
	ts := w.tempos[i]
	end, endSample := w.tempoEnd(i)
	endMinutes := 0.0
	if i+1 < len(w.tempos) {
		endMinutes = rhythm.SamplesToMinutes(float64(endSample-ts.Sample()), w.rate)
	}

	minutes := ts.TimeAtBeat(beat-ts.Beat(), end, endMinutes)
	if math.IsInf(minutes, 1) {
		return float64(endSample)
	}
	return float64(ts.Sample()) + rhythm.MinutesToSamples(minutes, w.rate)
}

func (w *metrics) sampleAtBeat(beat float64) int64 {
	return roundSample(w.sampleAtBeatExact(beat))
}

func roundSample(exact float64) int64 {
	return int64(math.Round(exact))
}

// floorSample rounds a derived section position down, so the piecewise beat function stays monotonic
// across the section boundary.
func floorSample(exact float64) int64 {
	return int64(math.Floor(exact + snapEpsilon))
}

// beatsToBBT counts bars and divisions from the last meter section at or before beat.
func (w *metrics) beatsToBBT(beat float64) rhythm.BBT {
	if beat < 0 {
		beat = 0
	}
	ms := w.meters[w.meterIndexAtBeat(beat)]
	divisions := (beat - ms.Beat()) / ms.PulsesPerDivision()

	totalTicks := math.Round(divisions * rhythm.TicksPerBeat)
	ticksPerBar := ms.DivisionsPerBar() * rhythm.TicksPerBeat
	bars := math.Floor(totalTicks / ticksPerBar)
	rem := totalTicks - bars*ticksPerBar
	beats := math.Floor(rem / rhythm.TicksPerBeat)
	ticks := rem - beats*rhythm.TicksPerBeat

	return rhythm.BBT{
		Bars:  ms.BBT().Bars + uint32(bars),
		Beats: uint32(beats) + 1,
		Ticks: uint32(ticks),
	}
}

// bbtToBeats is the inverse of beatsToBBT.
func (w *metrics) bbtToBeats(bbt rhythm.BBT) float64 {
	if bbt.Bars < 1 {
		bbt.Bars = 1
	}
	if bbt.Beats < 1 {
		bbt.Beats = 1
	}
	ms := w.meters[w.meterIndexAtBar(bbt.Bars)]
	bars := float64(bbt.Bars - ms.BBT().Bars)
	divisions := bars*ms.DivisionsPerBar() + float64(bbt.Beats-1) + float64(bbt.Ticks)/rhythm.TicksPerBeat
	return ms.Beat() + divisions*ms.PulsesPerDivision()
}

// barBounds returns the beat at which the bar containing beat starts, and where the next one starts. A meter
// change always starts a new bar, cutting the previous one short.
func (w *metrics) barBounds(beat float64) (float64, float64, *rhythm.MeterSection) {
	mi := w.meterIndexAtBeat(beat)
	ms := w.meters[mi]
	ppb := ms.PulsesPerBar()

	n := math.Floor((beat - ms.Beat()) / ppb)
	if n < 0 {
		n = 0
	}
	lower := ms.Beat() + n*ppb
	upper := lower + ppb
	if mi+1 < len(w.meters) && w.meters[mi+1].Beat() < upper {
		upper = w.meters[mi+1].Beat()
	}
	return lower, upper, ms
}
