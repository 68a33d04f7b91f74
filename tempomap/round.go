package tempomap

import (
	"fmt"
	"math"
)

// RoundMode selects which grid line a position snaps to.
type RoundMode int

const (
	// RoundDown snaps towards the start of the timeline.
	RoundDown RoundMode = iota
	// RoundUp snaps towards the end of the timeline.
	RoundUp
	// RoundNearest snaps to the closer grid line, the later one on a tie.
	RoundNearest
)

func (m RoundMode) String() string {
	switch m {
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	case RoundNearest:
		return "nearest"
	}
	return fmt.Sprintf("RoundMode(%d)", int(m))
}

// ParseRoundMode is the inverse of RoundMode.String.
func ParseRoundMode(s string) (RoundMode, error) {
	switch s {
	case "down":
		return RoundDown, nil
	case "up":
		return RoundUp, nil
	case "nearest", "":
		return RoundNearest, nil
	}
	return RoundNearest, fmt.Errorf("unknown round mode %q", s)
}

// RoundToBar snaps sample to a bar line. A bar cut short by a meter change ends at the change.
func (tm *TempoMap) RoundToBar(sample int64, mode RoundMode) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if sample <= 0 {
		return 0
	}
	lower, upper, _ := w.barBounds(w.beatAtSample(sample))
	return pick(sample, w.sampleAtBeat(lower), w.sampleAtBeat(upper), mode)
}

// RoundToBeat snaps sample to a meter division.
func (tm *TempoMap) RoundToBeat(sample int64, mode RoundMode) int64 {
	return tm.RoundToBeatSubdivision(sample, 1, mode)
}

// RoundToBeatSubdivision snaps sample to a 1/sub fraction of a meter division. The grid restarts at every
// bar line.
func (tm *TempoMap) RoundToBeatSubdivision(sample int64, sub int, mode RoundMode) int64 {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	w := tm.metrics
	if sample <= 0 {
		return 0
	}
	if sub < 1 {
		sub = 1
	}

	beat := w.beatAtSample(sample)
	barStart, barEnd, ms := w.barBounds(beat)
	step := ms.PulsesPerDivision() / float64(sub)

	n := math.Floor((beat-barStart)/step + barEpsilon)
	lower := barStart + n*step
	upper := math.Min(lower+step, barEnd)
	return pick(sample, w.sampleAtBeat(lower), w.sampleAtBeat(upper), mode)
}

func pick(sample, lower, upper int64, mode RoundMode) int64 {
	if sample == lower || sample == upper {
		return sample
	}
	switch mode {
	case RoundDown:
		return lower
	case RoundUp:
		return upper
	}
	if sample-lower < upper-sample {
		return lower
	}
	return upper
}
