package tempomap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireStateError(t *testing.T, err error) *StateError {
	t.Helper()

	require.Error(t, err)
	stateErr, ok := errors.Unwrap(err).(*StateError)
	require.True(t, ok, "expected a StateError, got %v", err)
	return stateErr
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	tm := rampedMap(t)
	_, err := tm.AddMeterAtBBT(rhythm.NewMeter(5, 4), rhythm.NewBBT(12, 1, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tm.Save(&buf))
	assert.Contains(t, buf.String(), "version: 2")

	loaded := newTestMap(t)
	require.NoError(t, loaded.Load(&buf))
	assert.Equal(t, tm.GetState(), loaded.GetState())

	want, got := tm.Grid(0, 60*rate), loaded.Grid(0, 60*rate)
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Sample, got[i].Sample)
		assert.Equal(t, want[i].BBT(), got[i].BBT())
	}
}

func TestSetStateNotifies(t *testing.T) {
	t.Parallel()

	src := newTestMap(t)
	_, err := src.AddTempo(rhythm.NewTempo(90, 4), AtBeat(4), rhythm.Constant)
	require.NoError(t, err)

	tm := newTestMap(t)
	oldID := tm.Tempos()[0].ID()
	ch, cancel := tm.Subscribe()
	defer cancel()

	require.NoError(t, tm.SetState(src.GetState()))
	select {
	case <-ch:
	default:
		t.Fatal("expected a notification")
	}

	// handles into the old state do not resolve to the new sections
	_, ok := tm.Section(oldID)
	assert.False(t, ok)
	assert.Equal(t, 2, tm.NTempos())
}

func TestLoadLegacyState(t *testing.T) {
	t.Parallel()

	legacy := `
version: 1
frame_rate: 48000
tempos:
  - beats_per_minute: 120
    note_type: 4
    type: Constant
    movable: false
    start: "1|1|0"
  - beats_per_minute: 90
    note_type: 4
    type: Constant
    movable: true
    start: "4|2|0"
meters:
  - divisions_per_bar: 4
    note_type: 4
    bbt: "1|1|0"
    movable: false
  - divisions_per_bar: 3
    note_type: 4
    bbt: "3|1|0"
    movable: true
`
	tm := newTestMap(t)
	require.NoError(t, tm.Load(strings.NewReader(legacy)))

	require.Equal(t, 2, tm.NTempos())
	require.Equal(t, 2, tm.NMeters())

	ms := tm.Meters()[1]
	assert.InDelta(t, 8.0, ms.Beat(), 1e-12)
	assert.Equal(t, rhythm.NewBBT(3, 1, 0), ms.BBT())

	// two bars of 4/4, one bar of 3/4 and one beat
	ts := tm.Tempos()[1]
	assert.InDelta(t, 12.0, ts.Beat(), 1e-12)
	assert.Equal(t, int64(12*spb), ts.Sample())
	assert.Equal(t, rhythm.MusicTime, ts.PositionLockStyle())
	assert.InDelta(t, 1.0/3.0, ts.BarOffset(), 1e-12)

	assert.Equal(t, StateVersion, tm.GetState().Version)
}

func TestFailedLoadLeavesMapUntouched(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddTempo(rhythm.NewTempo(90, 4), AtBeat(4), rhythm.Constant)
	require.NoError(t, err)
	before := tm.GetState()

	testCases := []struct {
		name  string
		state string
	}{
		{"unknown field", "version: 2\nframe_rate: 48000\ncolour: red\n"},
		{"not yaml", "tempos: [\n"},
		{"future version", "version: 9\nframe_rate: 48000\n"},
		{"bad frame rate", "version: 2\nframe_rate: 0\n"},
		{"no sections", "version: 2\nframe_rate: 48000\n"},
		{"bad tempo", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 0, note_type: 4, movable: false}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
		{"bad meter", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false}
meters:
  - {divisions_per_bar: 4, note_type: -4, bbt: "1|1|0", movable: false}
`},
		{"two fixed tempos", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false}
  - {beats_per_minute: 90, note_type: 4, movable: false}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
		{"fixed tempo not at start", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false, beat: 4, sample: 96000}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
		{"negative position", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false}
  - {beats_per_minute: 90, note_type: 4, movable: true, beat: -2}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
		{"bad lock style", `
version: 2
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false, lock_style: Sideways}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
		{"legacy tempo without start", `
version: 1
frame_rate: 48000
tempos:
  - {beats_per_minute: 120, note_type: 4, movable: false}
meters:
  - {divisions_per_bar: 4, note_type: 4, bbt: "1|1|0", movable: false}
`},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			requireStateError(t, tm.Load(strings.NewReader(testCase.state)))
			assert.Equal(t, before, tm.GetState())
		})
	}
}

func TestLoadRescalesFrameRate(t *testing.T) {
	t.Parallel()

	src, err := New(2 * rate)
	require.NoError(t, err)
	_, err = src.AddTempo(rhythm.NewTempo(90, 4), AtSample(8*spb), rhythm.Constant)
	require.NoError(t, err)
	_, err = src.AddMeter(rhythm.NewMeter(3, 4), AtBeat(8))
	require.NoError(t, err)

	tm := newTestMap(t)
	require.NoError(t, tm.SetState(src.GetState()))
	assert.Equal(t, int64(rate), tm.FrameRate())

	// 192000 samples at 96 kHz is two seconds, four beats at 120 bpm
	ts := tm.Tempos()[1]
	assert.Equal(t, int64(4*spb), ts.Sample())
	assert.InDelta(t, 4.0, ts.Beat(), 1e-9)
	assert.Equal(t, rhythm.AudioTime, ts.PositionLockStyle())

	assert.InDelta(t, 8.0, tm.Meters()[1].Beat(), 1e-12)
	assert.Equal(t, tm.SampleAtBeat(8), tm.Meters()[1].Sample())
}

func TestDump(t *testing.T) {
	t.Parallel()

	tm := newTestMap(t)
	_, err := tm.AddTempo(rhythm.NewTempo(90, 4), AtBeat(4), rhythm.Constant)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tm.Dump(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "3 sections")
}
