package tempomap

import (
	"github.com/robmorgan/metric/logger"
	"github.com/robmorgan/metric/rhythm"
	"github.com/sirupsen/logrus"
)

var (
	defaultTempo = rhythm.NewTempo(120, 4)
	defaultMeter = rhythm.NewMeter(4, 4)
)

// DefaultTempo is the tempo of a new map unless WithInitialTempo says otherwise: 120 quarter notes a minute.
func DefaultTempo() rhythm.Tempo {
	return defaultTempo
}

// DefaultMeter is the meter of a new map unless WithInitialMeter says otherwise: 4/4.
func DefaultMeter() rhythm.Meter {
	return defaultMeter
}

type options struct {
	logger       *logrus.Entry
	initialTempo rhythm.Tempo
	initialType  rhythm.TempoType
	initialMeter rhythm.Meter
}

// Option configures a TempoMap.
type Option func(*options)

// WithLogger sets the logger used for edit tracing and recompute diagnostics.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInitialTempo sets the tempo of the section at the start of the timeline.
func WithInitialTempo(t rhythm.Tempo, typ rhythm.TempoType) Option {
	return func(o *options) {
		o.initialTempo = t
		o.initialType = typ
	}
}

// WithInitialMeter sets the meter of the section at the start of the timeline.
func WithInitialMeter(m rhythm.Meter) Option {
	return func(o *options) {
		o.initialMeter = m
	}
}

func newOptions(opts []Option) options {
	o := options{
		initialTempo: defaultTempo,
		initialType:  rhythm.Constant,
		initialMeter: defaultMeter,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetProjectLogger()
	}
	return o
}
