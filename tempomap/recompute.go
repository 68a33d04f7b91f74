package tempomap

import (
	"math"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/sirupsen/logrus"
)

// barEpsilon tolerates rounding when counting whole bars between meter sections.
const barEpsilon = 1e-9

// recompute re-derives the non-authoritative coordinate of every section from the ones before it. Tempos go
// first since the beat function only depends on them, then meters, then tempo bar offsets.
//
// With end >= 0 derivation stops after the first section that starts beyond end and the sequence is not
// re-sorted. When reassign is false the stored bar offsets of music-locked tempos are kept.
func (w *metrics) recompute(log *logrus.Entry, end int64, reassign bool) error {
	if len(w.tempos) == 0 || len(w.meters) == 0 {
		return errors.WithStackTrace(ErrInconsistent)
	}

	first := w.tempos[0]
	first.SetBeat(0)
	first.SetSample(0)
	w.recomputeTempos(log, end)

	initial := w.meters[0]
	initial.SetBeat(0)
	initial.SetSample(0)
	initial.SetBBT(rhythm.NewBBT(1, 1, 0))
	w.recomputeMeters(log, end)

	for _, ts := range w.tempos {
		if ts.PositionLockStyle() != rhythm.MusicTime {
			continue
		}
		if !ts.Movable() {
			ts.SetBarOffset(0)
			continue
		}
		if reassign || ts.BarOffset() < 0 {
			ts.UpdateBarOffset(w.meters[w.meterIndexAtBeat(ts.Beat())])
		}
	}

	if end >= 0 {
		return nil
	}

	w.sortOrder()
	w.reindex()
	if err := w.checkOrder(); err != nil {
		return errors.WithStackTrace(err)
	}
	return nil
}

func (w *metrics) recomputeTempos(log *logrus.Entry, end int64) {
	for i := 1; i < len(w.tempos); i++ {
		prev, cur := w.tempos[i-1], w.tempos[i]
		if end >= 0 && prev.Sample() > end {
			return
		}

		switch cur.PositionLockStyle() {
		case rhythm.MusicTime:
			if cur.Beat() < prev.Beat() {
				clamped(log, cur, prev)
				cur.SetBeat(prev.Beat())
			}
			minutes := prev.RampMinutes(cur.Beat()-prev.Beat(), cur.Tempo)
			cur.SetSample(prev.Sample() + floorSample(rhythm.MinutesToSamples(minutes, w.rate)))
		case rhythm.AudioTime:
			if cur.Sample() < prev.Sample() {
				clamped(log, cur, prev)
				cur.SetSample(prev.Sample())
			}
			cur.SetBeat(prev.Beat() + prev.BeatAtSample(cur.Sample(), cur.Tempo, cur.Sample(), w.rate))
		}
	}
}

func (w *metrics) recomputeMeters(log *logrus.Entry, end int64) {
	for i := 1; i < len(w.meters); i++ {
		prev, cur := w.meters[i-1], w.meters[i]
		if end >= 0 && prev.Sample() > end {
			return
		}

		switch cur.PositionLockStyle() {
		case rhythm.MusicTime:
			if cur.Beat() < prev.Beat() {
				clamped(log, cur, prev)
				cur.SetBeat(prev.Beat())
			}
			cur.SetSample(floorSample(w.sampleAtBeatExact(cur.Beat())))
			if cur.Sample() < prev.Sample() {
				cur.SetSample(prev.Sample())
			}
		case rhythm.AudioTime:
			if cur.Sample() < prev.Sample() {
				clamped(log, cur, prev)
				cur.SetSample(prev.Sample())
			}
			cur.SetBeat(w.beatAtSample(cur.Sample()))
			if cur.Beat() < prev.Beat() {
				cur.SetBeat(prev.Beat())
			}
		}

		// a meter section always starts a new bar, so a part-filled bar before it counts as a whole one
		elapsed := (cur.Beat() - prev.Beat()) / prev.PulsesPerBar()
		bars := math.Floor(elapsed + barEpsilon)
		if elapsed-bars > barEpsilon {
			bars++
		}
		cur.SetBBT(rhythm.NewBBT(prev.BBT().Bars+uint32(bars), 1, 0))
	}
}

func clamped(log *logrus.Entry, cur, prev rhythm.Section) {
	log.WithFields(logrus.Fields{
		"section":     cur.Metric().ID(),
		"beat":        cur.Metric().Beat(),
		"sample":      cur.Metric().Sample(),
		"prev_beat":   prev.Metric().Beat(),
		"prev_sample": prev.Metric().Sample(),
	}).Warn("Section is out of order, clamping to the previous section")
}
