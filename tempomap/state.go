package tempomap

import (
	"io"
	"math"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"gopkg.in/yaml.v3"
)

// StateVersion is the format version written by GetState. Version 1 states positioned tempo sections by bar,
// beat and tick only; they are still accepted.
const StateVersion = 2

// State is the persisted form of a map. It is what undo snapshots and session files are made of.
type State struct {
	Version   int          `yaml:"version"`
	FrameRate int64        `yaml:"frame_rate"`
	Tempos    []TempoState `yaml:"tempos"`
	Meters    []MeterState `yaml:"meters"`
}

type TempoState struct {
	BeatsPerMinute float64 `yaml:"beats_per_minute"`
	NoteType       float64 `yaml:"note_type"`
	Type           string  `yaml:"type"`
	Beat           float64 `yaml:"beat"`
	Sample         int64   `yaml:"sample"`
	LockStyle      string  `yaml:"lock_style,omitempty"`
	Movable        bool    `yaml:"movable"`
	BarOffset      float64 `yaml:"bar_offset"`

	// Start is the position of a version 1 tempo section.
	Start *rhythm.BBT `yaml:"start,omitempty"`
}

type MeterState struct {
	DivisionsPerBar float64    `yaml:"divisions_per_bar"`
	NoteType        float64    `yaml:"note_type"`
	BBT             rhythm.BBT `yaml:"bbt"`
	Beat            float64    `yaml:"beat"`
	Sample          int64      `yaml:"sample"`
	LockStyle       string     `yaml:"lock_style,omitempty"`
	Movable         bool       `yaml:"movable"`
}

// GetState returns the persisted form of the map.
func (tm *TempoMap) GetState() State {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	state := State{
		Version:   StateVersion,
		FrameRate: tm.frameRate,
		Tempos:    make([]TempoState, 0, len(w.tempos)),
		Meters:    make([]MeterState, 0, len(w.meters)),
	}
	for _, ts := range w.tempos {
		state.Tempos = append(state.Tempos, TempoState{
			BeatsPerMinute: ts.BeatsPerMinute(),
			NoteType:       ts.NoteType(),
			Type:           ts.Type().String(),
			Beat:           ts.Beat(),
			Sample:         ts.Sample(),
			LockStyle:      ts.PositionLockStyle().String(),
			Movable:        ts.Movable(),
			BarOffset:      ts.BarOffset(),
		})
	}
	for _, ms := range w.meters {
		state.Meters = append(state.Meters, MeterState{
			DivisionsPerBar: ms.DivisionsPerBar(),
			NoteType:        ms.NoteDivisor(),
			BBT:             ms.BBT(),
			Beat:            ms.Beat(),
			Sample:          ms.Sample(),
			LockStyle:       ms.PositionLockStyle().String(),
			Movable:         ms.Movable(),
		})
	}
	return state
}

// SetState replaces the contents of the map with a persisted state. On failure the map is left as it was and
// the error is a *StateError.
func (tm *TempoMap) SetState(state State) error {
	var n int
	err := tm.edit(true, func(m *metrics) error {
		w, err := tm.buildMetrics(state, m.nextID)
		if err != nil {
			return errors.WithStackTrace(err)
		}
		n = len(w.order)
		*m = *w
		return nil
	})
	if err != nil {
		return err
	}

	tm.log.WithField("sections", n).Debug("Loaded tempo map state")
	return nil
}

// buildMetrics hands out handles starting at firstID, so handles into the previous state do not alias
// sections of the new one.
func (tm *TempoMap) buildMetrics(state State, firstID rhythm.SectionID) (*metrics, error) {
	if state.Version < 1 || state.Version > StateVersion {
		return nil, stateErrorf("unsupported version %d", state.Version)
	}
	if state.FrameRate <= 0 {
		return nil, stateErrorf("frame rate must be positive, got %d", state.FrameRate)
	}
	if len(state.Tempos) == 0 || len(state.Meters) == 0 {
		return nil, stateErrorf("a tempo map needs at least one tempo and one meter")
	}

	rescale := func(sample int64) int64 {
		if state.FrameRate == tm.frameRate {
			return sample
		}
		return int64(math.Round(float64(sample) * float64(tm.frameRate) / float64(state.FrameRate)))
	}

	w := &metrics{
		rate:   tm.frameRate,
		arena:  make(map[rhythm.SectionID]rhythm.Section),
		nextID: firstID,
	}

	meters := make([]*rhythm.MeterSection, 0, len(state.Meters))
	for i, m := range state.Meters {
		meter := rhythm.NewMeter(m.DivisionsPerBar, m.NoteType)
		if err := meter.Validate(); err != nil {
			return nil, stateErrorf("meter %d: %v", i, err)
		}
		lock, err := rhythm.ParsePositionLockStyle(m.LockStyle)
		if err != nil {
			return nil, stateErrorf("meter %d: %v", i, err)
		}

		ms := rhythm.NewMeterSection(m.Beat, m.BBT, meter)
		ms.SetSample(rescale(m.Sample))
		ms.SetPositionLockStyle(lock)
		ms.SetMovable(m.Movable)
		meters = append(meters, ms)
	}

	if state.Version == 1 {
		// legacy meters were positioned by bar only
		for i := 1; i < len(meters); i++ {
			prev, cur := meters[i-1], meters[i]
			if cur.BBT().Bars < prev.BBT().Bars {
				return nil, stateErrorf("meter %d: bar %d is before bar %d", i, cur.BBT().Bars, prev.BBT().Bars)
			}
			cur.SetBeat(prev.Beat() + float64(cur.BBT().Bars-prev.BBT().Bars)*prev.PulsesPerBar())
			cur.SetPositionLockStyle(rhythm.MusicTime)
		}
	}

	for i, t := range state.Tempos {
		tempo := rhythm.NewTempo(t.BeatsPerMinute, t.NoteType)
		if err := tempo.Validate(); err != nil {
			return nil, stateErrorf("tempo %d: %v", i, err)
		}
		typ, err := rhythm.ParseTempoType(t.Type)
		if err != nil {
			return nil, stateErrorf("tempo %d: %v", i, err)
		}
		lock, err := rhythm.ParsePositionLockStyle(t.LockStyle)
		if err != nil {
			return nil, stateErrorf("tempo %d: %v", i, err)
		}

		beat := t.Beat
		if state.Version == 1 {
			if t.Start == nil {
				return nil, stateErrorf("tempo %d: missing start", i)
			}
			beat = legacyBeats(meters, *t.Start)
			lock = rhythm.MusicTime
		}

		ts := rhythm.NewTempoSection(beat, tempo, typ)
		ts.SetSample(rescale(t.Sample))
		ts.SetPositionLockStyle(lock)
		ts.SetMovable(t.Movable)
		if state.Version > 1 {
			ts.SetBarOffset(t.BarOffset)
		}
		w.insert(ts)
	}
	for _, ms := range meters {
		w.insert(ms)
	}

	fixedTempos, fixedMeters := 0, 0
	for _, s := range w.arena {
		m := s.Metric()
		if m.Movable() {
			if m.Beat() < 0 || m.Sample() < 0 {
				return nil, stateErrorf("section %d has a negative position", m.ID())
			}
			continue
		}
		if m.Beat() != 0 || m.Sample() != 0 {
			return nil, stateErrorf("fixed section %d is not at the start of the timeline", m.ID())
		}
		switch s.(type) {
		case *rhythm.TempoSection:
			fixedTempos++
		case *rhythm.MeterSection:
			fixedMeters++
		}
	}
	if fixedTempos != 1 || fixedMeters != 1 {
		return nil, stateErrorf("need exactly one fixed tempo and one fixed meter, got %d and %d", fixedTempos, fixedMeters)
	}

	w.sortOrder()
	w.reindex()
	if w.tempos[0].Movable() || w.meters[0].Movable() {
		return nil, stateErrorf("a movable section shares the start of the timeline")
	}
	if err := w.recompute(tm.log, -1, false); err != nil {
		return nil, stateErrorf("%v", err)
	}
	return w, nil
}

// legacyBeats converts a version 1 position through the loaded meters.
func legacyBeats(meters []*rhythm.MeterSection, bbt rhythm.BBT) float64 {
	ms := meters[0]
	for _, m := range meters[1:] {
		if m.BBT().Bars > bbt.Bars {
			break
		}
		ms = m
	}
	bars := float64(bbt.Bars) - float64(ms.BBT().Bars)
	beats := float64(bbt.Beats) - 1
	if beats < 0 {
		beats = 0
	}
	divisions := bars*ms.DivisionsPerBar() + beats + float64(bbt.Ticks)/rhythm.TicksPerBeat
	return ms.Beat() + divisions*ms.PulsesPerDivision()
}

// Save writes the state of the map as YAML.
func (tm *TempoMap) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tm.GetState()); err != nil {
		return errors.WithStackTrace(err)
	}
	return errors.WithStackTrace(enc.Close())
}

// Load replaces the contents of the map with a state written by Save. Unknown fields are rejected.
func (tm *TempoMap) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var state State
	if err := dec.Decode(&state); err != nil {
		return errors.WithStackTrace(stateErrorf("%v", err))
	}
	return tm.SetState(state)
}
