package tempomap

import (
	"math"

	"github.com/robmorgan/metric/rhythm"
)

// BeatAtSample returns the pulse position of sample. Only tempo sections affect the result.
func (tm *TempoMap) BeatAtSample(sample int64) float64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.beatAtSample(sample)
}

// SampleAtBeat returns the sample position of a pulse position, rounded to the nearest sample.
func (tm *TempoMap) SampleAtBeat(beat float64) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.sampleAtBeat(beat)
}

// TickAtSample returns the position of sample in ticks from the start of the timeline.
func (tm *TempoMap) TickAtSample(sample int64) float64 {
	return tm.BeatAtSample(sample) * rhythm.TicksPerBeat
}

func (tm *TempoMap) SampleAtTick(tick float64) int64 {
	return tm.SampleAtBeat(tick / rhythm.TicksPerBeat)
}

// SamplePlusBeats returns the sample that lies beats pulses after sample.
func (tm *TempoMap) SamplePlusBeats(sample int64, beats float64) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	return w.sampleAtBeat(w.beatAtSample(sample) + beats)
}

// SampleMinusBeats returns the sample that lies beats pulses before sample, stopping at zero.
func (tm *TempoMap) SampleMinusBeats(sample int64, beats float64) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	beat := w.beatAtSample(sample) - beats
	if beat <= 0 {
		return 0
	}
	return w.sampleAtBeat(beat)
}

// SamplewalkToBeats returns how many pulses are covered by walking distance samples from sample.
func (tm *TempoMap) SamplewalkToBeats(sample int64, distance int64) float64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	return w.beatAtSample(sample+distance) - w.beatAtSample(sample)
}

// BBTAtSample returns the bar, beat and tick of sample, counted from the last meter section before it.
func (tm *TempoMap) BBTAtSample(sample int64) rhythm.BBT {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if sample < 0 {
		sample = 0
	}
	return w.beatsToBBT(w.beatAtSample(sample))
}

func (tm *TempoMap) SampleAtBBT(bbt rhythm.BBT) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	return w.sampleAtBeat(w.bbtToBeats(bbt))
}

// BBTToBeats returns the pulse position of a bar, beat and tick.
func (tm *TempoMap) BBTToBeats(bbt rhythm.BBT) float64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.bbtToBeats(bbt)
}

// BeatsToBBT returns the bar, beat and tick of a pulse position. Negative positions map to 1|1|0.
func (tm *TempoMap) BeatsToBBT(beats float64) rhythm.BBT {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.beatsToBBT(beats)
}

// SamplePlusBBT offsets sample by a musical duration. The bars and beats of the duration are added to the
// BBT position of sample, carrying into the next beat or bar of whatever meter is in effect there.
func (tm *TempoMap) SamplePlusBBT(sample int64, duration rhythm.BBT) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if sample < 0 {
		sample = 0
	}
	return w.sampleAtBeat(w.bbtToBeats(w.addBBT(w.beatsToBBT(w.beatAtSample(sample)), duration)))
}

// BBTDurationAt returns how many samples a musical duration spans from pos, walking forward when dir is
// non-negative and backward otherwise. A backward walk stops at zero.
func (tm *TempoMap) BBTDurationAt(pos int64, duration rhythm.BBT, dir int) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if pos < 0 {
		pos = 0
	}

	beat := w.beatAtSample(pos)
	if dir >= 0 {
		return w.sampleAtBeat(w.bbtToBeats(w.addBBT(w.beatsToBBT(beat), duration))) - pos
	}

	ms := w.meters[w.meterIndexAtBeat(beat)]
	divisions := float64(duration.Bars)*ms.DivisionsPerBar() + float64(duration.Beats) +
		float64(duration.Ticks)/rhythm.TicksPerBeat
	start := beat - divisions*ms.PulsesPerDivision()
	if start <= 0 {
		return pos
	}
	return pos - w.sampleAtBeat(start)
}

// addBBT adds a duration to a position with tick and division carry.
func (w *metrics) addBBT(pos rhythm.BBT, duration rhythm.BBT) rhythm.BBT {
	ticks := pos.Ticks + duration.Ticks
	beats := pos.Beats + duration.Beats + ticks/uint32(rhythm.TicksPerBeat)
	out := rhythm.BBT{
		Bars:  pos.Bars + duration.Bars,
		Beats: beats,
		Ticks: ticks % uint32(rhythm.TicksPerBeat),
	}

	for {
		ms := w.meters[w.meterIndexAtBar(out.Bars)]
		perBar := uint32(math.Ceil(ms.DivisionsPerBar()))
		if out.Beats <= perBar {
			return out
		}
		out.Beats -= perBar
		out.Bars++
	}
}
