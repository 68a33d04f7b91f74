package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/logger"
	"github.com/robmorgan/metric/tempomap"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
)

// DefaultBarsPerPhrase is how many bars make up a phrase in snapshot markers.
const DefaultBarsPerPhrase = 8

// Transport is a play head moving over a tempo map in real time. Its position is kept in samples, so edits to
// the map never move it, they only change which beat it is on.
type Transport struct {
	mu      sync.Mutex
	clock   clock.Clock
	tm      *tempomap.TempoMap
	log     *logrus.Entry
	phrase  uint32
	rolling bool

	// the position was anchorSample at anchorTime
	anchorSample int64
	anchorTime   time.Time

	// walked is how far Run has reported beats
	walked int64
	cursor tempomap.Cursor
}

type Option func(*Transport)

func WithLogger(l *logrus.Entry) Option {
	return func(t *Transport) {
		t.log = l
	}
}

// WithBarsPerPhrase sets the phrase length used by Snapshot.Marker. Values below one are ignored.
func WithBarsPerPhrase(bars uint32) Option {
	return func(t *Transport) {
		if bars > 0 {
			t.phrase = bars
		}
	}
}

// New creates a stopped transport at the start of tm.
func New(cl clock.Clock, tm *tempomap.TempoMap, opts ...Option) *Transport {
	t := &Transport{
		clock:  cl,
		tm:     tm,
		log:    logger.GetProjectLogger(),
		phrase: DefaultBarsPerPhrase,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start sets the transport rolling from where it is.
func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rolling {
		return
	}
	t.anchorTime = t.clock.Now()
	t.rolling = true
	t.log.WithField("sample", t.anchorSample).Debug("Transport started")
}

// Stop halts the transport, keeping its position.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.rolling {
		return
	}
	t.anchorSample = t.sampleLocked()
	t.rolling = false
	t.log.WithField("sample", t.anchorSample).Debug("Transport stopped")
}

// Locate moves the transport to sample. Negative positions clamp to zero. Beats skipped over are not reported.
func (t *Transport) Locate(sample int64) {
	if sample < 0 {
		sample = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.anchorSample = sample
	t.anchorTime = t.clock.Now()
	t.walked = sample
	t.cursor = tempomap.Cursor{}
	t.log.WithField("sample", sample).Debug("Transport located")
}

// Sample returns the current position.
func (t *Transport) Sample() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sampleLocked()
}

func (t *Transport) Rolling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolling
}

func (t *Transport) sampleLocked() int64 {
	if !t.rolling {
		return t.anchorSample
	}
	elapsed := t.clock.Since(t.anchorTime)
	return t.anchorSample + int64(elapsed.Seconds()*float64(t.tm.FrameRate()))
}

// Run reports every grid point the transport crosses to onBeat, checking once per tick, until ctx is done.
// Reporting resumes from the last point reported, or from the last Locate.
// onBeat is called from a single goroutine with no locks held, so it may query the map or the transport.
func (t *Transport) Run(ctx context.Context, tick time.Duration, onBeat func(tempomap.BBTPoint)) error {
	if tick <= 0 {
		return errors.WithStackTrace(ErrInvalidTick)
	}

	changes, cancel := t.tm.Subscribe()
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		timer := t.clock.NewTimer(tick)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C():
				t.advance(onBeat)
				timer.Reset(tick)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				t.reanchor()
			}
		}
	})
	return g.Wait()
}

func (t *Transport) advance(onBeat func(tempomap.BBTPoint)) {
	t.mu.Lock()
	from, to := t.walked, t.sampleLocked()
	if to > from {
		t.walked = to
	}
	t.mu.Unlock()

	for _, p := range t.tm.Grid(from, to) {
		onBeat(p)
	}
}

// reanchor drops the search cursor after a map edit. The sample position is untouched.
func (t *Transport) reanchor() {
	t.mu.Lock()
	t.cursor = tempomap.Cursor{}
	sample := t.sampleLocked()
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"sample": sample, "beat": t.tm.BeatAtSample(sample)}).
		Debug("Tempo map changed, re-anchoring transport")
}
