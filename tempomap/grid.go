package tempomap

import (
	"math"

	"github.com/robmorgan/metric/rhythm"
)

// BBTPoint is a meter division found by a grid scan, along with the sections governing it.
type BBTPoint struct {
	Sample int64
	Bar    uint32
	Beat   uint32
	Meter  rhythm.MeterSection
	Tempo  rhythm.TempoSection
}

// IsBar reports whether the point is the first division of a bar.
func (p BBTPoint) IsBar() bool {
	return p.Beat == 1
}

func (p BBTPoint) BBT() rhythm.BBT {
	return rhythm.NewBBT(p.Bar, p.Beat, 0)
}

// Grid returns every meter division in [start, end). Start is clamped to zero.
func (tm *TempoMap) Grid(start, end int64) []BBTPoint {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return nil
	}

	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.metrics.grid(start, end)
}

func (w *metrics) grid(start, end int64) []BBTPoint {
	var points []BBTPoint

	startBeat := w.beatAtSample(start)
	mi := w.meterIndexAtBeat(startBeat)
	ms := w.meters[mi]

	bars := math.Floor((startBeat - ms.Beat()) / ms.PulsesPerBar())
	if bars < 0 {
		bars = 0
	}
	barStart := ms.Beat() + bars*ms.PulsesPerBar()
	bar := ms.BBT().Bars + uint32(bars)
	ti := w.tempoIndexAtBeat(barStart)

	for {
		nextMeter := math.Inf(1)
		if mi+1 < len(w.meters) {
			nextMeter = w.meters[mi+1].Beat()
		}

		divisions := int(math.Ceil(ms.DivisionsPerBar() - barEpsilon))
		switched := false
		for j := 0; j < divisions; j++ {
			beat := barStart + float64(j)*ms.PulsesPerDivision()
			if beat >= nextMeter-barEpsilon {
				switched = true
				break
			}

			for ti+1 < len(w.tempos) && w.tempos[ti+1].Beat() <= beat {
				ti++
			}
			sample := roundSample(w.sampleAtBeatFrom(ti, beat))
			if sample >= end {
				return points
			}
			if sample >= start {
				points = append(points, BBTPoint{
					Sample: sample,
					Bar:    bar,
					Beat:   uint32(j + 1),
					Meter:  *ms,
					Tempo:  *w.tempos[ti],
				})
			}
		}

		if !switched && barStart+ms.PulsesPerBar() < nextMeter-barEpsilon {
			barStart += ms.PulsesPerBar()
			bar++
			continue
		}

		if mi+1 >= len(w.meters) {
			return points
		}
		mi++
		ms = w.meters[mi]
		barStart = ms.Beat()
		bar = ms.BBT().Bars
	}
}
