// Package tempomap reconciles sample positions with musical positions across a timeline whose tempo and meter
// change at arbitrary points.
package tempomap

import (
	"fmt"
	"sync"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/sirupsen/logrus"
)

// TempoMap owns the tempo and meter sections of a session. Queries take a read lock, edits build a new copy
// of the sections and swap it in under the write lock.
type TempoMap struct {
	lock       sync.RWMutex
	metrics    *metrics
	frameRate  int64
	generation uint64

	log  *logrus.Entry
	opts options

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

// TempoMetric describes the tempo and meter governing a position.
type TempoMetric struct {
	Meter  rhythm.MeterSection
	Tempo  rhythm.TempoSection
	Sample int64
	Beat   float64
}

// Cursor remembers where a search ended so a nearby search can resume from there. It goes stale when the
// map is edited, in which case the next search starts over.
type Cursor struct {
	generation uint64
	tempo      int
	meter      int
}

// New creates a map with one tempo and one meter section at the start of the timeline.
func New(frameRate int64, opts ...Option) (*TempoMap, error) {
	if frameRate <= 0 {
		return nil, errors.WithStackTrace(fmt.Errorf("frame rate must be positive, got %d", frameRate))
	}

	o := newOptions(opts)
	if err := o.initialTempo.Validate(); err != nil {
		return nil, errors.WithStackTrace(err)
	}
	if err := o.initialMeter.Validate(); err != nil {
		return nil, errors.WithStackTrace(err)
	}

	w := newMetrics(frameRate, o.initialTempo, o.initialType, o.initialMeter)
	if err := w.recompute(o.logger, -1, true); err != nil {
		return nil, err
	}

	return &TempoMap{
		metrics:     w,
		frameRate:   frameRate,
		log:         o.logger.WithField("frame_rate", frameRate),
		opts:        o,
		subscribers: make(map[int]chan struct{}),
	}, nil
}

// FrameRate returns the sample rate positions are expressed in.
func (tm *TempoMap) FrameRate() int64 {
	return tm.frameRate
}

func (tm *TempoMap) NTempos() int {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return len(tm.metrics.tempos)
}

func (tm *TempoMap) NMeters() int {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return len(tm.metrics.meters)
}

// Sections returns copies of every section in timeline order.
func (tm *TempoMap) Sections() []rhythm.Section {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	out := make([]rhythm.Section, 0, len(tm.metrics.order))
	for _, id := range tm.metrics.order {
		out = append(out, tm.metrics.arena[id].Clone())
	}
	return out
}

// Section returns a copy of the section with the given handle.
func (tm *TempoMap) Section(id rhythm.SectionID) (rhythm.Section, bool) {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	s, ok := tm.metrics.arena[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Tempos returns copies of the tempo sections in timeline order.
func (tm *TempoMap) Tempos() []rhythm.TempoSection {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	out := make([]rhythm.TempoSection, len(tm.metrics.tempos))
	for i, ts := range tm.metrics.tempos {
		out[i] = *ts
	}
	return out
}

// Meters returns copies of the meter sections in timeline order.
func (tm *TempoMap) Meters() []rhythm.MeterSection {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	out := make([]rhythm.MeterSection, len(tm.metrics.meters))
	for i, ms := range tm.metrics.meters {
		out[i] = *ms
	}
	return out
}

// Subscribe returns a channel that receives a value after edits. Notifications coalesce: a subscriber that
// has not drained the channel sees one pending value however many edits happened. The returned function
// cancels the subscription.
func (tm *TempoMap) Subscribe() (<-chan struct{}, func()) {
	tm.subMu.Lock()
	defer tm.subMu.Unlock()

	id := tm.nextSub
	tm.nextSub++
	ch := make(chan struct{}, 1)
	tm.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			tm.subMu.Lock()
			defer tm.subMu.Unlock()
			delete(tm.subscribers, id)
		})
	}
}

// notify must not be called with the write lock held, subscribers are free to query the map.
func (tm *TempoMap) notify() {
	tm.subMu.Lock()
	defer tm.subMu.Unlock()

	for _, ch := range tm.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MetricAt returns the tempo and meter in effect at sample.
func (tm *TempoMap) MetricAt(sample int64) (TempoMetric, Cursor) {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	c := Cursor{
		generation: tm.generation,
		tempo:      tm.metrics.tempoIndexAtSample(sample),
		meter:      tm.metrics.meterIndexAtSample(sample),
	}
	return tm.metricAt(c, sample), c
}

// MetricAtFrom is MetricAt resuming from a cursor returned by an earlier search. Scanning forward from the
// cursor is cheap for nearby positions; a stale cursor or an earlier position falls back to a full search.
func (tm *TempoMap) MetricAtFrom(c Cursor, sample int64) (TempoMetric, Cursor) {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if c.generation != tm.generation || c.tempo >= len(w.tempos) || c.meter >= len(w.meters) ||
		w.tempos[c.tempo].Sample() > sample || w.meters[c.meter].Sample() > sample {
		c = Cursor{
			generation: tm.generation,
			tempo:      w.tempoIndexAtSample(sample),
			meter:      w.meterIndexAtSample(sample),
		}
		return tm.metricAt(c, sample), c
	}

	for c.tempo+1 < len(w.tempos) && w.tempos[c.tempo+1].Sample() <= sample {
		c.tempo++
	}
	for c.meter+1 < len(w.meters) && w.meters[c.meter+1].Sample() <= sample {
		c.meter++
	}
	return tm.metricAt(c, sample), c
}

func (tm *TempoMap) metricAt(c Cursor, sample int64) TempoMetric {
	w := tm.metrics
	return TempoMetric{
		Meter:  *w.meters[c.meter],
		Tempo:  *w.tempos[c.tempo],
		Sample: sample,
		Beat:   w.beatAtSampleFrom(c.tempo, sample),
	}
}

// MetricAtBBT returns the tempo and meter in effect at a bar, beat and tick.
func (tm *TempoMap) MetricAtBBT(bbt rhythm.BBT) TempoMetric {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	beat := w.bbtToBeats(bbt)
	ti := w.tempoIndexAtBeat(beat)
	return TempoMetric{
		Meter:  *w.meters[w.meterIndexAtBar(bbt.Bars)],
		Tempo:  *w.tempos[ti],
		Sample: roundSample(w.sampleAtBeatFrom(ti, beat)),
		Beat:   beat,
	}
}

// TempoSectionAt returns a copy of the tempo section in effect at sample.
func (tm *TempoMap) TempoSectionAt(sample int64) rhythm.TempoSection {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return *tm.metrics.tempos[tm.metrics.tempoIndexAtSample(sample)]
}

// MeterSectionAt returns a copy of the meter section in effect at sample.
func (tm *TempoMap) MeterSectionAt(sample int64) rhythm.MeterSection {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return *tm.metrics.meters[tm.metrics.meterIndexAtSample(sample)]
}

// TempoAt returns the tempo at sample. Inside a ramp this is the instantaneous tempo, expressed in the note
// type of the governing section.
func (tm *TempoMap) TempoAt(sample int64) rhythm.Tempo {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.tempoAt(sample)
}

func (w *metrics) tempoAt(sample int64) rhythm.Tempo {
	i := w.tempoIndexAtSample(sample)
	ts := w.tempos[i]
	end, endSample := w.tempoEnd(i)
	return rhythm.NewTempo(ts.TempoAtSample(sample, end, endSample, w.rate), ts.NoteType())
}

func (tm *TempoMap) MeterAt(sample int64) rhythm.Meter {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.meters[tm.metrics.meterIndexAtSample(sample)].Meter
}

// SamplesPerBeatAt returns the length of a beat, in the governing tempo's note type, at sample.
func (tm *TempoMap) SamplesPerBeatAt(sample int64) float64 {
	return tm.TempoAt(sample).SamplesPerBeat(tm.frameRate)
}
