package monitor

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/transport"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func newTestModel(t *testing.T) (Model, *tempomap.TempoMap, *testingclock.FakeClock) {
	t.Helper()

	log, _ := test.NewNullLogger()
	entry := logrus.NewEntry(log)
	tm, err := tempomap.New(48000, tempomap.WithLogger(entry))
	require.NoError(t, err)

	fake := testingclock.NewFakeClock(time.Unix(0, 0))
	tr := transport.New(fake, tm, transport.WithLogger(entry))
	return New(tr, tm, nil), tm, fake
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestTransportKeys(t *testing.T) {
	t.Parallel()

	m, _, fake := newTestModel(t)
	assert.False(t, m.snapshot.Rolling)

	m, _ = press(t, m, " ")
	assert.True(t, m.snapshot.Rolling)

	fake.Step(time.Second)
	next, cmd := m.Update(tickMsg(fake.Now()))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, int64(48000), m.snapshot.Sample)
	assert.Equal(t, rhythm.NewBBT(1, 3, 0), m.snapshot.BBT)
	assert.Contains(t, m.View(), "1.1.3")

	m, _ = press(t, m, " ")
	assert.False(t, m.snapshot.Rolling)

	m, _ = press(t, m, "l")
	assert.Equal(t, int64(96000), m.snapshot.Sample)
	m, _ = press(t, m, "l")
	assert.Equal(t, int64(192000), m.snapshot.Sample)
	m, _ = press(t, m, "h")
	assert.Equal(t, int64(96000), m.snapshot.Sample)
	m, _ = press(t, m, "0")
	assert.Equal(t, int64(0), m.snapshot.Sample)

	// on the first bar there is nowhere further back to go
	m, _ = press(t, m, "h")
	assert.Equal(t, int64(0), m.snapshot.Sample)
}

func TestTempoKeys(t *testing.T) {
	t.Parallel()

	m, tm, _ := newTestModel(t)
	_, err := tm.AddTempo(rhythm.NewTempo(90, 4), tempomap.AtBeat(8), rhythm.Constant)
	require.NoError(t, err)

	m, _ = press(t, m, "]")
	m, _ = press(t, m, "]")
	assert.NoError(t, m.err)
	assert.Equal(t, 122.0, tm.TempoAt(0).BeatsPerMinute())

	// only the section under the play head changes
	m.tr.Locate(tm.SampleAtBeat(8))
	m, _ = press(t, m, "[")
	assert.Equal(t, 89.0, tm.TempoAt(tm.SampleAtBeat(8)).BeatsPerMinute())
	assert.Equal(t, 122.0, tm.TempoAt(0).BeatsPerMinute())
	assert.Equal(t, 89.0, m.snapshot.Tempo.BeatsPerMinute())
}

func TestBeatsAreCounted(t *testing.T) {
	t.Parallel()

	m, tm, _ := newTestModel(t)
	for _, p := range tm.Grid(0, 48000) {
		next, _ := m.Update(BeatMsg(p))
		m = next.(Model)
	}
	assert.Equal(t, 2, m.beats)
	assert.Equal(t, rhythm.NewBBT(1, 2, 0), m.last.BBT())
	assert.Contains(t, m.View(), "2 beats reported")
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, cmd := press(t, m, "q")
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
