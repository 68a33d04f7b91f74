package tempomap

import (
	"testing"

	"github.com/robmorgan/metric/rhythm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampedMap ramps from 120 down to 60 over 16 beats, holds 60 until a 7/8 bar at beat 24, then ramps back up
// to 180 at an audio-locked section.
func rampedMap(t *testing.T) *TempoMap {
	t.Helper()

	tm := newTestMap(t, WithInitialTempo(rhythm.NewTempo(120, 4), rhythm.Ramp))
	_, err := tm.AddTempo(rhythm.NewTempo(60, 4), AtBeat(16), rhythm.Constant)
	require.NoError(t, err)
	_, err = tm.AddMeter(rhythm.NewMeter(7, 8), AtBeat(24))
	require.NoError(t, err)
	_, err = tm.AddTempo(rhythm.NewTempo(90, 4), AtBeat(26), rhythm.Ramp)
	require.NoError(t, err)
	_, err = tm.AddTempo(rhythm.NewTempo(180, 4), AtSample(60*rate), rhythm.Constant)
	require.NoError(t, err)
	return tm
}

func TestInvertibility(t *testing.T) {
	t.Parallel()

	tm := rampedMap(t)
	for sample := int64(0); sample < 80*rate; sample += 7919 {
		got := tm.SampleAtBeat(tm.BeatAtSample(sample))
		require.InDelta(t, float64(sample), float64(got), 1, "sample %d", sample)
	}
	for _, ts := range tm.Tempos() {
		assert.Equal(t, ts.Sample(), tm.SampleAtBeat(tm.BeatAtSample(ts.Sample())))
	}
}

func TestMonotonicity(t *testing.T) {
	t.Parallel()

	tm := rampedMap(t)

	// step across every section boundary one sample at a time
	for _, s := range tm.Sections() {
		prev := tm.BeatAtSample(s.Metric().Sample() - 50)
		for sample := s.Metric().Sample() - 49; sample < s.Metric().Sample()+50; sample++ {
			beat := tm.BeatAtSample(sample)
			require.Greater(t, beat, prev, "sample %d", sample)
			prev = beat
		}
	}

	prev := tm.BeatAtSample(0)
	for sample := int64(1000); sample < 80*rate; sample += 1000 {
		beat := tm.BeatAtSample(sample)
		require.Greater(t, beat, prev, "sample %d", sample)
		prev = beat
	}
}

func TestMeterDoesNotMoveBeats(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddTempo(rhythm.NewTempo(100, 4), AtBeat(6), rhythm.Ramp)
	require.NoError(t, err)
	_, err = tm.AddTempo(rhythm.NewTempo(140, 4), AtBeat(14), rhythm.Constant)
	require.NoError(t, err)

	var before []int64
	for beat := 0.0; beat < 20; beat += 0.5 {
		before = append(before, tm.SampleAtBeat(beat))
	}

	_, err = tm.AddMeter(rhythm.NewMeter(5, 8), AtBeat(4))
	require.NoError(t, err)
	_, err = tm.AddMeter(rhythm.NewMeter(3, 4), AtBeat(9))
	require.NoError(t, err)

	i := 0
	for beat := 0.0; beat < 20; beat += 0.5 {
		assert.Equal(t, before[i], tm.SampleAtBeat(beat), "beat %g", beat)
		i++
	}
}

func TestTicks(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	assert.InDelta(t, 960.0, tm.TickAtSample(spb/2), 1e-9)
	assert.Equal(t, int64(spb), tm.SampleAtTick(rhythm.TicksPerBeat))
}

func TestBeatArithmetic(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddTempo(rhythm.NewTempo(60, 4), AtBeat(4), rhythm.Constant)
	require.NoError(t, err)

	assert.Equal(t, int64(2*spb), tm.SamplePlusBeats(0, 2))
	// two beats at 120 then one at 60
	assert.Equal(t, int64(2*spb+2*spb+2*spb), tm.SamplePlusBeats(2*spb, 3))
	assert.Equal(t, int64(0), tm.SampleMinusBeats(spb, 2))
	assert.Equal(t, int64(3*spb), tm.SampleMinusBeats(4*spb+2*spb, 2))
	assert.InDelta(t, 2.0, tm.SamplewalkToBeats(0, 2*spb), 1e-12)
	assert.InDelta(t, 1.5, tm.SamplewalkToBeats(3*spb, 2*spb), 1e-12)
}

func TestBBTConversions(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddMeterAtBBT(rhythm.NewMeter(3, 4), rhythm.NewBBT(3, 1, 0))
	require.NoError(t, err)
	_, err = tm.AddMeterAtBBT(rhythm.NewMeter(6, 8), rhythm.NewBBT(5, 1, 0))
	require.NoError(t, err)

	testCases := []struct {
		beat float64
		bbt  rhythm.BBT
	}{
		{0, rhythm.NewBBT(1, 1, 0)},
		{5, rhythm.NewBBT(2, 2, 0)},
		{5.5, rhythm.NewBBT(2, 2, 960)},
		{8, rhythm.NewBBT(3, 1, 0)},
		{11, rhythm.NewBBT(4, 1, 0)},
		{13, rhythm.NewBBT(4, 3, 0)},
		// 3/4 from beat 8, two bars, so 6/8 starts at beat 14 with half-beat divisions
		{14, rhythm.NewBBT(5, 1, 0)},
		{15.5, rhythm.NewBBT(5, 4, 0)},
		{17.25, rhythm.NewBBT(6, 1, 960)},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.bbt, tm.BeatsToBBT(testCase.beat), "beat %g", testCase.beat)
		assert.InDelta(t, testCase.beat, tm.BBTToBeats(testCase.bbt), 1e-12, "bbt %v", testCase.bbt)
		assert.Equal(t, testCase.bbt, tm.BBTAtSample(tm.SampleAtBBT(testCase.bbt)), "bbt %v", testCase.bbt)
	}

	assert.Equal(t, rhythm.NewBBT(1, 1, 0), tm.BeatsToBBT(-3))
	assert.Equal(t, rhythm.NewBBT(1, 1, 0), tm.BBTAtSample(-100))
	assert.Equal(t, int64(11*spb), tm.SampleAtBBT(rhythm.NewBBT(4, 1, 0)))
}

func TestBBTDurations(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddMeterAtBBT(rhythm.NewMeter(3, 4), rhythm.NewBBT(3, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, int64(spb), tm.SamplePlusBBT(0, rhythm.NewBBT(0, 1, 0)))
	// 1|4|0 plus two beats carries into bar 2
	assert.Equal(t, int64(5*spb), tm.SamplePlusBBT(3*spb, rhythm.NewBBT(0, 2, 0)))
	// 2|4|0 plus two beats carries into the 3/4 bar
	assert.Equal(t, int64(9*spb), tm.SamplePlusBBT(7*spb, rhythm.NewBBT(0, 2, 0)))
	assert.Equal(t, int64(11*spb), tm.SamplePlusBBT(0, rhythm.NewBBT(2, 2, 1920)))

	assert.Equal(t, int64(4*spb), tm.BBTDurationAt(0, rhythm.NewBBT(1, 0, 0), 1))
	assert.Equal(t, int64(3*spb), tm.BBTDurationAt(8*spb, rhythm.NewBBT(1, 0, 0), 1))
	assert.Equal(t, int64(2*spb), tm.BBTDurationAt(8*spb, rhythm.NewBBT(0, 2, 0), -1))
	assert.Equal(t, int64(spb), tm.BBTDurationAt(spb, rhythm.NewBBT(0, 2, 0), -1))
}
