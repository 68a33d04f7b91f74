package transport

import (
	"context"
	"testing"
	"time"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

const rate = 48000

// samples per quarter note at 120 bpm
const spb = 24000

func newTestTransport(t *testing.T, opts ...Option) (*Transport, *tempomap.TempoMap, *testingclock.FakeClock) {
	t.Helper()

	log, _ := test.NewNullLogger()
	entry := logrus.NewEntry(log)
	tm, err := tempomap.New(rate, tempomap.WithLogger(entry))
	require.NoError(t, err)

	fake := testingclock.NewFakeClock(time.Unix(0, 0))
	opts = append([]Option{WithLogger(entry)}, opts...)
	return New(fake, tm, opts...), tm, fake
}

func TestPosition(t *testing.T) {
	t.Parallel()

	tr, _, fake := newTestTransport(t)
	assert.Equal(t, int64(0), tr.Sample())
	assert.False(t, tr.Rolling())

	// nothing moves while stopped
	fake.Step(time.Second)
	assert.Equal(t, int64(0), tr.Sample())

	tr.Start()
	assert.True(t, tr.Rolling())
	fake.Step(time.Second)
	assert.Equal(t, int64(rate), tr.Sample())

	tr.Stop()
	assert.False(t, tr.Rolling())
	fake.Step(time.Second)
	assert.Equal(t, int64(rate), tr.Sample())

	tr.Locate(-5)
	assert.Equal(t, int64(0), tr.Sample())

	tr.Locate(4 * spb)
	tr.Start()
	fake.Step(500 * time.Millisecond)
	assert.Equal(t, int64(4*spb+rate/2), tr.Sample())

	// locating while rolling keeps it rolling
	tr.Locate(spb)
	fake.Step(500 * time.Millisecond)
	assert.Equal(t, int64(spb+rate/2), tr.Sample())
	assert.True(t, tr.Rolling())
}

func TestPositionIgnoresTempoEdits(t *testing.T) {
	t.Parallel()

	tr, tm, fake := newTestTransport(t)
	tr.Start()
	fake.Step(2 * time.Second)

	before := tr.Snapshot()
	assert.InDelta(t, 4.0, before.Beat, 1e-9)

	require.NoError(t, tm.ChangeInitialTempo(60, 4))
	after := tr.Snapshot()
	assert.Equal(t, before.Sample, after.Sample)
	assert.InDelta(t, 2.0, after.Beat, 1e-9)
	assert.Equal(t, rhythm.NewTempo(60, 4), after.Tempo)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	tr.Locate(5*spb + spb/2)

	s := tr.Snapshot()
	assert.False(t, s.Rolling)
	assert.InDelta(t, 5.5, s.Beat, 1e-9)
	assert.Equal(t, rhythm.NewBBT(2, 2, 960), s.BBT)
	assert.Equal(t, rhythm.NewMeter(4, 4), s.Meter)
	assert.Equal(t, rhythm.NewTempo(120, 4), s.Tempo)
	assert.InDelta(t, 0.5, s.BeatPhase, 1e-9)
	assert.InDelta(t, 0.375, s.BarPhase, 1e-9)
	assert.Equal(t, "1.2.2", s.Marker())
	assert.False(t, s.IsDownBeat())
	assert.Equal(t, int64(spb/2), tr.DistanceFromBeat(s))

	tr.Locate(5*spb + spb/4*3)
	assert.Equal(t, int64(-spb/4), tr.DistanceFromBeat(tr.Snapshot()))
}

func TestSnapshotPhrases(t *testing.T) {
	t.Parallel()

	tr, tm, _ := newTestTransport(t, WithBarsPerPhrase(2))
	_, err := tm.AddMeterAtBBT(rhythm.NewMeter(3, 4), rhythm.NewBBT(3, 1, 0))
	require.NoError(t, err)

	tr.Locate(8 * spb)
	s := tr.Snapshot()
	assert.Equal(t, rhythm.NewBBT(3, 1, 0), s.BBT)
	assert.Equal(t, rhythm.NewMeter(3, 4), s.Meter)
	assert.Equal(t, "2.1.1", s.Marker())
	assert.True(t, s.IsPhraseStart())

	tr.Locate(11 * spb)
	s = tr.Snapshot()
	assert.Equal(t, "2.2.1", s.Marker())
	assert.True(t, s.IsDownBeat())
	assert.False(t, s.IsPhraseStart())
	assert.Equal(t, uint32(2), s.Phrase())
}

func TestRunReportsCrossedBeats(t *testing.T) {
	t.Parallel()

	tr, tm, fake := newTestTransport(t)
	beats := make(chan tempomap.BBTPoint, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	tr.Start()
	go func() {
		done <- tr.Run(ctx, 100*time.Millisecond, func(p tempomap.BBTPoint) {
			beats <- p
		})
	}()

	receive := func() tempomap.BBTPoint {
		select {
		case p := <-beats:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a beat")
		}
		return tempomap.BBTPoint{}
	}

	require.Eventually(t, fake.HasWaiters, 5*time.Second, time.Millisecond)
	fake.Step(time.Second)
	assert.Equal(t, int64(0), receive().Sample)
	p := receive()
	assert.Equal(t, int64(spb), p.Sample)
	assert.Equal(t, rhythm.NewBBT(1, 2, 0), p.BBT())

	// half the speed from beat 2 on, so the next second only crosses one beat
	_, err := tm.AddTempo(rhythm.NewTempo(60, 4), tempomap.AtBeat(2), rhythm.Constant)
	require.NoError(t, err)

	require.Eventually(t, fake.HasWaiters, 5*time.Second, time.Millisecond)
	fake.Step(time.Second)
	p = receive()
	assert.Equal(t, int64(2*spb), p.Sample)
	assert.Equal(t, 60.0, p.Tempo.BeatsPerMinute())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, beats)
}

func TestRunRejectsBadTick(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	err := tr.Run(context.Background(), 0, func(tempomap.BBTPoint) {})
	assert.True(t, errors.IsError(err, ErrInvalidTick))
}
