package tempomap

import (
	"math"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// edit runs fn on a private copy of the sections and swaps the copy in only if fn succeeds, so readers never
// see a half applied edit. Subscribers are notified after the lock is released.
func (tm *TempoMap) edit(notify bool, fn func(w *metrics) error) error {
	tm.lock.Lock()
	w := tm.metrics.clone()
	if err := fn(w); err != nil {
		tm.lock.Unlock()
		return err
	}
	tm.metrics = w
	tm.generation++
	tm.lock.Unlock()

	if notify {
		tm.notify()
	}
	return nil
}

// place derives the non-authoritative coordinate of s from the current beat function, so it can be inserted
// in order ahead of the recompute.
func (w *metrics) place(s rhythm.Section) {
	m := s.Metric()
	switch m.PositionLockStyle() {
	case rhythm.MusicTime:
		m.SetSample(floorSample(w.sampleAtBeatExact(m.Beat())))
	case rhythm.AudioTime:
		m.SetBeat(w.beatAtSample(m.Sample()))
	}
}

// moveTo puts s at pos while keeping its own lock style.
func (w *metrics) moveTo(s rhythm.Section, pos Position) error {
	m := s.Metric()
	switch m.PositionLockStyle() {
	case rhythm.MusicTime:
		beat := pos.Beat
		if pos.Lock == rhythm.AudioTime {
			beat = w.beatAtSample(pos.Sample)
		}
		if beat <= 0 {
			return errors.WithStackTrace(ErrInvalidPosition)
		}
		m.SetBeat(beat)
	case rhythm.AudioTime:
		sample := pos.Sample
		if pos.Lock == rhythm.MusicTime {
			sample = floorSample(w.sampleAtBeatExact(pos.Beat))
		}
		if sample <= 0 || sample > MaxSample {
			return errors.WithStackTrace(ErrInvalidPosition)
		}
		m.SetSample(sample)
	}
	w.place(s)
	return nil
}

func samePosition(m *rhythm.MetricSection, pos Position) bool {
	if pos.Lock == rhythm.AudioTime {
		return m.Sample() == pos.Sample
	}
	return math.Abs(m.Beat()-pos.Beat) < barEpsilon
}

func (w *metrics) tempoAtPosition(pos Position) *rhythm.TempoSection {
	for _, ts := range w.tempos {
		if ts.Movable() && samePosition(&ts.MetricSection, pos) {
			return ts
		}
	}
	return nil
}

func (w *metrics) meterAtPosition(pos Position) *rhythm.MeterSection {
	for _, ms := range w.meters {
		if ms.Movable() && samePosition(&ms.MetricSection, pos) {
			return ms
		}
	}
	return nil
}

// snapToBar moves a music-locked position to the next bar line, unless it already is on one.
func (w *metrics) snapToBar(pos Position) (Position, error) {
	if pos.Lock != rhythm.MusicTime {
		return pos, nil
	}
	lower, upper, _ := w.barBounds(pos.Beat)
	if pos.Beat-lower > barEpsilon {
		pos.Beat = upper
	} else {
		pos.Beat = lower
	}
	if pos.Beat <= 0 {
		return pos, errors.WithStackTrace(ErrInvalidPosition)
	}
	return pos, nil
}

func newTempoSection(pos Position, tempo rhythm.Tempo, typ rhythm.TempoType) *rhythm.TempoSection {
	if pos.Lock == rhythm.AudioTime {
		return rhythm.NewTempoSectionAtSample(pos.Sample, tempo, typ)
	}
	return rhythm.NewTempoSection(pos.Beat, tempo, typ)
}

func newMeterSection(pos Position, meter rhythm.Meter) *rhythm.MeterSection {
	if pos.Lock == rhythm.AudioTime {
		return rhythm.NewMeterSectionAtSample(pos.Sample, meter)
	}
	return rhythm.NewMeterSection(pos.Beat, rhythm.NewBBT(1, 1, 0), meter)
}

// AddTempo inserts a tempo change at pos and returns its handle. A tempo section already at pos takes the new
// tempo and type instead.
func (tm *TempoMap) AddTempo(tempo rhythm.Tempo, pos Position, typ rhythm.TempoType) (rhythm.SectionID, error) {
	if err := tempo.Validate(); err != nil {
		return 0, errors.WithStackTrace(err)
	}
	if err := pos.validate(); err != nil {
		return 0, err
	}

	var id rhythm.SectionID
	err := tm.edit(true, func(w *metrics) error {
		if ts := w.tempoAtPosition(pos); ts != nil {
			ts.SetTempo(tempo)
			ts.SetType(typ)
			id = ts.ID()
		} else {
			ts := newTempoSection(pos, tempo, typ)
			w.place(ts)
			id = w.insert(ts)
			w.reindex()
		}
		return w.recompute(tm.log, -1, true)
	})
	if err != nil {
		return 0, err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "tempo": tempo.String(), "type": typ.String(), "position": pos.String()}).
		Debug("Added tempo section")
	return id, nil
}

// AddMeter inserts a meter change at pos and returns its handle. A music-locked meter starts at the first bar
// line at or after pos.
func (tm *TempoMap) AddMeter(meter rhythm.Meter, pos Position) (rhythm.SectionID, error) {
	if err := meter.Validate(); err != nil {
		return 0, errors.WithStackTrace(err)
	}
	if err := pos.validate(); err != nil {
		return 0, err
	}

	var id rhythm.SectionID
	err := tm.edit(true, func(w *metrics) error {
		var err error
		id, err = w.addMeter(tm.log, meter, pos)
		return err
	})
	if err != nil {
		return 0, err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "meter": meter.String(), "position": pos.String()}).
		Debug("Added meter section")
	return id, nil
}

// AddMeterAtBBT inserts a meter change at the start of bar bbt.Bars. Bar 1 belongs to the initial meter.
func (tm *TempoMap) AddMeterAtBBT(meter rhythm.Meter, bbt rhythm.BBT) (rhythm.SectionID, error) {
	if err := meter.Validate(); err != nil {
		return 0, errors.WithStackTrace(err)
	}
	if bbt.Bars <= 1 {
		return 0, errors.WithStackTrace(ErrInvalidPosition)
	}

	var id rhythm.SectionID
	err := tm.edit(true, func(w *metrics) error {
		var err error
		id, err = w.addMeter(tm.log, meter, AtBeat(w.bbtToBeats(rhythm.NewBBT(bbt.Bars, 1, 0))))
		return err
	})
	if err != nil {
		return 0, err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "meter": meter.String(), "bbt": bbt.String()}).
		Debug("Added meter section")
	return id, nil
}

func (w *metrics) addMeter(log *logrus.Entry, meter rhythm.Meter, pos Position) (rhythm.SectionID, error) {
	pos, err := w.snapToBar(pos)
	if err != nil {
		return 0, err
	}

	var id rhythm.SectionID
	if ms := w.meterAtPosition(pos); ms != nil {
		ms.SetMeter(meter)
		id = ms.ID()
	} else {
		ms := newMeterSection(pos, meter)
		w.place(ms)
		id = w.insert(ms)
		w.reindex()
	}
	return id, w.recompute(log, -1, false)
}

// RemoveTempo removes a tempo section. The initial tempo cannot be removed.
func (tm *TempoMap) RemoveTempo(id rhythm.SectionID, notify bool) error {
	err := tm.edit(notify, func(w *metrics) error {
		ts, ok := w.tempoSection(id)
		if !ok {
			return errors.WithStackTrace(ErrSectionNotFound)
		}
		if !ts.Movable() {
			return errors.WithStackTrace(ErrNotRemovable)
		}
		w.remove(id)
		w.reindex()
		return w.recompute(tm.log, -1, true)
	})
	if err != nil {
		return err
	}

	tm.log.WithField("id", id).Debug("Removed tempo section")
	return nil
}

// RemoveMeter removes a meter section. The initial meter cannot be removed.
func (tm *TempoMap) RemoveMeter(id rhythm.SectionID, notify bool) error {
	err := tm.edit(notify, func(w *metrics) error {
		ms, ok := w.meterSection(id)
		if !ok {
			return errors.WithStackTrace(ErrSectionNotFound)
		}
		if !ms.Movable() {
			return errors.WithStackTrace(ErrNotRemovable)
		}
		w.remove(id)
		w.reindex()
		return w.recompute(tm.log, -1, false)
	})
	if err != nil {
		return err
	}

	tm.log.WithField("id", id).Debug("Removed meter section")
	return nil
}

// ReplaceTempo changes the tempo, type and position of a section in one step. The section keeps its handle
// and lock style. The initial tempo only takes the new tempo and type, pos is ignored for it.
func (tm *TempoMap) ReplaceTempo(id rhythm.SectionID, tempo rhythm.Tempo, pos Position, typ rhythm.TempoType) error {
	if err := tempo.Validate(); err != nil {
		return errors.WithStackTrace(err)
	}

	err := tm.edit(true, func(w *metrics) error {
		ts, ok := w.tempoSection(id)
		if !ok {
			return errors.WithStackTrace(ErrSectionNotFound)
		}
		ts.SetTempo(tempo)
		ts.SetType(typ)
		if !ts.Movable() {
			return w.recompute(tm.log, -1, true)
		}

		if err := pos.validate(); err != nil {
			return err
		}
		w.detach(id)
		w.reindex()
		if err := w.moveTo(ts, pos); err != nil {
			return err
		}
		if other := w.tempoAtPosition(positionOf(ts)); other != nil {
			w.remove(other.ID())
		}
		w.insert(ts)
		w.reindex()
		return w.recompute(tm.log, -1, true)
	})
	if err != nil {
		return err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "tempo": tempo.String(), "type": typ.String(), "position": pos.String()}).
		Debug("Replaced tempo section")
	return nil
}

// ReplaceMeter changes the meter and position of a section in one step. The section keeps its handle and
// lock style. The initial meter only takes the new meter, pos is ignored for it.
func (tm *TempoMap) ReplaceMeter(id rhythm.SectionID, meter rhythm.Meter, pos Position) error {
	if err := meter.Validate(); err != nil {
		return errors.WithStackTrace(err)
	}

	err := tm.edit(true, func(w *metrics) error {
		return w.replaceMeter(tm.log, id, meter, func() (Position, error) { return pos, pos.validate() })
	})
	if err != nil {
		return err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "meter": meter.String(), "position": pos.String()}).
		Debug("Replaced meter section")
	return nil
}

// ReplaceMeterAtBBT is ReplaceMeter with the new position given as a bar.
func (tm *TempoMap) ReplaceMeterAtBBT(id rhythm.SectionID, meter rhythm.Meter, bbt rhythm.BBT) error {
	if err := meter.Validate(); err != nil {
		return errors.WithStackTrace(err)
	}

	err := tm.edit(true, func(w *metrics) error {
		return w.replaceMeter(tm.log, id, meter, func() (Position, error) {
			if bbt.Bars <= 1 {
				return Position{}, errors.WithStackTrace(ErrInvalidPosition)
			}
			return AtBeat(w.bbtToBeats(rhythm.NewBBT(bbt.Bars, 1, 0))), nil
		})
	})
	if err != nil {
		return err
	}

	tm.log.WithFields(logrus.Fields{"id": id, "meter": meter.String(), "bbt": bbt.String()}).
		Debug("Replaced meter section")
	return nil
}

// replaceMeter resolves the new position only once the section has been detached, so positions given in
// bars are counted without it.
func (w *metrics) replaceMeter(log *logrus.Entry, id rhythm.SectionID, meter rhythm.Meter, at func() (Position, error)) error {
	ms, ok := w.meterSection(id)
	if !ok {
		return errors.WithStackTrace(ErrSectionNotFound)
	}
	ms.SetMeter(meter)
	if !ms.Movable() {
		return w.recompute(log, -1, false)
	}

	w.detach(id)
	w.reindex()
	if err := w.recompute(log, -1, false); err != nil {
		return err
	}

	pos, err := at()
	if err != nil {
		return err
	}
	if ms.PositionLockStyle() == rhythm.MusicTime {
		if pos.Lock == rhythm.AudioTime {
			pos = AtBeat(w.beatAtSample(pos.Sample))
		}
		if pos, err = w.snapToBar(pos); err != nil {
			return err
		}
	}
	if err := w.moveTo(ms, pos); err != nil {
		return err
	}
	if other := w.meterAtPosition(positionOf(ms)); other != nil {
		w.remove(other.ID())
	}
	w.insert(ms)
	w.reindex()
	return w.recompute(log, -1, false)
}

// positionOf returns the authoritative position of s.
func positionOf(s rhythm.Section) Position {
	m := s.Metric()
	if m.PositionLockStyle() == rhythm.AudioTime {
		return AtSample(m.Sample())
	}
	return AtBeat(m.Beat())
}

// SetPositionLockStyle changes which coordinate of a section is authoritative. Both coordinates already agree,
// so the section does not move.
func (tm *TempoMap) SetPositionLockStyle(id rhythm.SectionID, style rhythm.PositionLockStyle) error {
	if style != rhythm.MusicTime && style != rhythm.AudioTime {
		return errors.WithStackTrace(ErrInvalidPosition)
	}

	return tm.edit(true, func(w *metrics) error {
		s := w.section(id)
		if s == nil {
			return errors.WithStackTrace(ErrSectionNotFound)
		}
		if !s.Metric().Movable() {
			return errors.WithStackTrace(ErrInvalidPosition)
		}
		s.Metric().SetPositionLockStyle(style)
		if ts, ok := s.(*rhythm.TempoSection); ok && style == rhythm.MusicTime {
			ts.SetBarOffset(-1)
		}
		return w.recompute(tm.log, -1, false)
	})
}

// ChangeInitialTempo sets the tempo at the start of the timeline.
func (tm *TempoMap) ChangeInitialTempo(bpm, noteType float64) error {
	tempo := rhythm.NewTempo(bpm, noteType)
	if err := tempo.Validate(); err != nil {
		return errors.WithStackTrace(err)
	}

	return tm.edit(true, func(w *metrics) error {
		w.tempos[0].SetTempo(tempo)
		return w.recompute(tm.log, -1, true)
	})
}

// ChangeExistingTempoAt sets the tempo of the section in effect at sample, keeping its type and position.
func (tm *TempoMap) ChangeExistingTempoAt(sample int64, bpm, noteType float64) error {
	tempo := rhythm.NewTempo(bpm, noteType)
	if err := tempo.Validate(); err != nil {
		return errors.WithStackTrace(err)
	}

	return tm.edit(true, func(w *metrics) error {
		w.tempos[w.tempoIndexAtSample(sample)].SetTempo(tempo)
		return w.recompute(tm.log, -1, true)
	})
}

// shiftLocks remembers the lock style of sections an edit moves by sample, so they can be audio-locked for the
// recompute and restored afterwards.
type shiftLocks map[rhythm.SectionID]rhythm.PositionLockStyle

func (l shiftLocks) shift(m *rhythm.MetricSection, sample int64) {
	if _, ok := l[m.ID()]; !ok {
		l[m.ID()] = m.PositionLockStyle()
	}
	m.SetPositionLockStyle(rhythm.AudioTime)
	m.SetSample(sample)
}

func (l shiftLocks) restore(w *metrics) {
	for id, style := range l {
		s := w.section(id)
		if s == nil {
			continue
		}
		s.Metric().SetPositionLockStyle(style)
		if ts, ok := s.(*rhythm.TempoSection); ok && style == rhythm.MusicTime {
			ts.UpdateBarOffset(w.meters[w.meterIndexAtBeat(ts.Beat())])
		}
	}
}

// InsertTime opens a gap of amount samples at where. Sections at or after where move later by the gap.
func (tm *TempoMap) InsertTime(where, amount int64) error {
	if where < 0 || amount < 0 {
		return errors.WithStackTrace(ErrInvalidPosition)
	}
	if amount == 0 {
		return nil
	}

	return tm.edit(true, func(w *metrics) error {
		locks := shiftLocks{}
		for _, id := range w.order {
			m := w.arena[id].Metric()
			if !m.Movable() || m.Sample() < where {
				continue
			}
			if m.Sample() > MaxSample-amount {
				return errors.WithStackTrace(ErrInvalidPosition)
			}
			locks.shift(m, m.Sample()+amount)
		}
		if err := w.recompute(tm.log, -1, false); err != nil {
			return err
		}
		locks.restore(w)
		return nil
	})
}

// RemoveTime cuts amount samples out of the timeline at where. Sections inside the cut are removed, except that
// the last tempo and the last meter inside it move to where, so the music after the cut keeps its tempo and
// meter. Sections after the cut move earlier. It reports whether any section moved or was removed.
func (tm *TempoMap) RemoveTime(where, amount int64) (bool, error) {
	if where < 0 || amount < 0 {
		return false, errors.WithStackTrace(ErrInvalidPosition)
	}
	if amount == 0 {
		return false, nil
	}

	changed := false
	err := tm.edit(true, func(w *metrics) error {
		end := where + amount
		locks := shiftLocks{}

		var lastTempo *rhythm.TempoSection
		var lastMeter *rhythm.MeterSection
		tempoAtEnd, meterAtEnd := false, false

		for _, id := range slices.Clone(w.order) {
			s := w.arena[id]
			m := s.Metric()
			if !m.Movable() || m.Sample() < where {
				continue
			}
			changed = true

			if m.Sample() >= end {
				if m.Sample() == end {
					switch s.(type) {
					case *rhythm.TempoSection:
						tempoAtEnd = true
					case *rhythm.MeterSection:
						meterAtEnd = true
					}
				}
				locks.shift(m, m.Sample()-amount)
				continue
			}

			switch v := s.(type) {
			case *rhythm.TempoSection:
				if lastTempo != nil {
					w.remove(lastTempo.ID())
				}
				lastTempo = v
			case *rhythm.MeterSection:
				if lastMeter != nil {
					w.remove(lastMeter.ID())
				}
				lastMeter = v
			}
		}

		if lastTempo != nil {
			switch {
			case tempoAtEnd:
				w.remove(lastTempo.ID())
			case where == 0:
				w.tempos[0].SetTempo(lastTempo.Tempo)
				w.tempos[0].SetType(lastTempo.Type())
				w.remove(lastTempo.ID())
			default:
				locks.shift(&lastTempo.MetricSection, where)
			}
		}
		if lastMeter != nil {
			switch {
			case meterAtEnd:
				w.remove(lastMeter.ID())
			case where == 0:
				w.meters[0].SetMeter(lastMeter.Meter)
				w.remove(lastMeter.ID())
			default:
				locks.shift(&lastMeter.MetricSection, where)
			}
		}

		w.sortOrder()
		w.reindex()
		if err := w.recompute(tm.log, -1, false); err != nil {
			return err
		}
		locks.restore(w)
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// PredictTempoSample returns the sample a tempo section would land on if it were moved to bbt, without moving
// it. It is meant for previews while a marker is dragged.
func (tm *TempoMap) PredictTempoSample(id rhythm.SectionID, bbt rhythm.BBT) (int64, error) {
	tm.lock.RLock()
	w := tm.metrics.clone()
	tm.lock.RUnlock()

	ts, ok := w.tempoSection(id)
	if !ok {
		return 0, errors.WithStackTrace(ErrSectionNotFound)
	}
	if !ts.Movable() {
		return 0, errors.WithStackTrace(ErrInvalidPosition)
	}

	w.remove(id)
	w.reindex()
	if err := w.recompute(tm.log, -1, true); err != nil {
		return 0, err
	}

	beat := w.bbtToBeats(bbt)
	if beat <= 0 {
		return 0, errors.WithStackTrace(ErrInvalidPosition)
	}
	ts.SetPositionLockStyle(rhythm.MusicTime)
	ts.SetBeat(beat)
	w.place(ts)
	w.insert(ts)
	w.reindex()

	// sections after the new position do not affect it
	if err := w.recompute(tm.log, ts.Sample(), true); err != nil {
		return 0, err
	}
	return ts.Sample(), nil
}

// Clear drops every section except the initial pair, which go back to the map's initial tempo and meter.
func (tm *TempoMap) Clear() {
	o := tm.opts
	_ = tm.edit(true, func(w *metrics) error {
		fresh := newMetrics(w.rate, o.initialTempo, o.initialType, o.initialMeter)
		fresh.nextID = w.nextID
		if err := fresh.recompute(tm.log, -1, true); err != nil {
			return err
		}
		*w = *fresh
		return nil
	})
	tm.log.Debug("Cleared tempo map")
}
