package rhythm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRampContinuity(t *testing.T) {
	t.Parallel()

	ts := NewTempoSection(0, NewTempo(120, 4), Ramp)
	end := NewTempo(60, 4)

	assert.InDelta(t, 120.0, ts.TempoAtTime(0, end, 2.0), 1e-9)
	assert.InDelta(t, 60.0, ts.TempoAtTime(2.0, end, 2.0), 1e-9)

	prev := ts.TempoAtTime(0, end, 2.0)
	for i := 1; i <= 200; i++ {
		bpm := ts.TempoAtTime(float64(i)*0.01, end, 2.0)
		require.Less(t, bpm, prev, "tempo must fall strictly at step %d", i)
		prev = bpm
	}
}

func TestRampContinuityInSamples(t *testing.T) {
	t.Parallel()

	const rate = 48000
	ts := NewTempoSectionAtSample(0, NewTempo(120, 4), Ramp)
	end := NewTempo(60, 4)
	endSample := int64(2 * 60 * rate)

	assert.InDelta(t, 120.0, ts.TempoAtSample(0, end, endSample, rate), 1e-9)
	assert.InDelta(t, 60.0, ts.TempoAtSample(endSample, end, endSample, rate), 1e-9)
	assert.InDelta(t, float64(endSample), float64(ts.SampleAtTempo(60, end, endSample, rate)), 1)
}

func TestConstantSectionIsLinear(t *testing.T) {
	t.Parallel()

	ts := NewTempoSection(0, NewTempo(120, 4), Constant)

	// at 120 bpm two beats take one second
	assert.InDelta(t, 2.0, ts.BeatAtTime(1.0/60.0, Tempo{}, 0), 1e-12)
	assert.InDelta(t, 1.0/60.0, ts.TimeAtBeat(2.0, Tempo{}, 0), 1e-12)
	assert.Equal(t, int64(48000), ts.SampleAtBeat(2.0, Tempo{}, 0, 48000))
	assert.Equal(t, 120.0, ts.TempoAtTime(5, NewTempo(60, 4), 1))
	assert.Equal(t, 0.0, ts.TimeAtTempo(90, NewTempo(60, 4), 1))
}

func TestRampWithEqualTempoDegenerates(t *testing.T) {
	t.Parallel()

	ramp := NewTempoSection(0, NewTempo(100, 4), Ramp)
	constant := NewTempoSection(0, NewTempo(100, 4), Constant)
	end := NewTempo(100, 4)

	for _, minutes := range []float64{0, 0.25, 1, 3.5} {
		assert.Equal(t, constant.BeatAtTime(minutes, end, 4), ramp.BeatAtTime(minutes, end, 4))
		assert.False(t, math.IsNaN(ramp.TempoAtTime(minutes, end, 4)))
	}
	assert.Equal(t, constant.RampMinutes(8, end), ramp.RampMinutes(8, end))
}

func TestRampInvertibility(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		start, end float64
		endMinutes float64
	}{
		{"accelerando", 90, 180, 1.5},
		{"ritardando", 140, 70, 0.75},
		{"gentle", 120, 121, 10},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ts := NewTempoSection(0, NewTempo(testCase.start, 4), Ramp)
			end := NewTempo(testCase.end, 4)
			for i := 0; i <= 10; i++ {
				minutes := testCase.endMinutes * float64(i) / 10
				beats := ts.BeatAtTime(minutes, end, testCase.endMinutes)
				assert.InDelta(t, minutes, ts.TimeAtBeat(beats, end, testCase.endMinutes), 1e-9)
			}

			bpm := (testCase.start + testCase.end) / 2
			minutes := ts.TimeAtTempo(bpm, end, testCase.endMinutes)
			assert.InDelta(t, bpm, ts.TempoAtTime(minutes, end, testCase.endMinutes), 1e-9)
		})
	}
}

func TestRampMinutesMatchesIntegral(t *testing.T) {
	t.Parallel()

	ts := NewTempoSection(0, NewTempo(120, 4), Ramp)
	end := NewTempo(60, 4)

	minutes := ts.RampMinutes(16, end)
	assert.InDelta(t, 16.0, ts.BeatAtTime(minutes, end, minutes), 1e-9)
	assert.InDelta(t, 60.0, ts.TempoAtTime(minutes, end, minutes), 1e-9)

	// slower than constant 120, faster than constant 60
	assert.Greater(t, minutes, 16.0/120.0)
	assert.Less(t, minutes, 16.0/60.0)
}

func TestNoteTypeScalesPulses(t *testing.T) {
	t.Parallel()

	// 60 eighth notes per minute is 30 quarter notes per minute
	tempo := NewTempo(60, 8)
	assert.Equal(t, 30.0, tempo.PulsesPerMinute())
	assert.Equal(t, 96000.0, tempo.SamplesPerPulse(48000))
	assert.Equal(t, 48000.0, tempo.SamplesPerBeat(48000))

	meter := NewMeter(6, 8)
	assert.Equal(t, 3.0, meter.PulsesPerBar())
	assert.Equal(t, 0.5, meter.PulsesPerDivision())
	assert.Equal(t, 12000.0, meter.SamplesPerGrid(NewTempo(120, 4), 48000))
	assert.Equal(t, 72000.0, meter.SamplesPerBar(NewTempo(120, 4), 48000))
}

func TestUpdateBarOffset(t *testing.T) {
	t.Parallel()

	meter := NewMeterSection(4, NewBBT(2, 1, 0), NewMeter(4, 4))
	ts := NewTempoSection(10, NewTempo(120, 4), Constant)
	assert.Equal(t, -1.0, ts.BarOffset())

	ts.UpdateBarOffset(meter)
	assert.InDelta(t, 0.5, ts.BarOffset(), 1e-12)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewTempo(120, 4).Validate())
	require.NoError(t, NewTempo(MinBeatsPerMinute, 4).Validate())
	require.ErrorIs(t, NewTempo(0, 4).Validate(), ErrInvalidTempo)
	require.ErrorIs(t, NewTempo(-10, 4).Validate(), ErrInvalidTempo)
	require.ErrorIs(t, NewTempo(120, 0).Validate(), ErrInvalidTempo)
	require.ErrorIs(t, NewTempo(math.NaN(), 4).Validate(), ErrInvalidTempo)

	require.NoError(t, NewMeter(4, 4).Validate())
	require.NoError(t, NewMeter(3.5, 8).Validate())
	require.ErrorIs(t, NewMeter(0.5, 4).Validate(), ErrInvalidMeter)
	require.ErrorIs(t, NewMeter(4, -4).Validate(), ErrInvalidMeter)
}
