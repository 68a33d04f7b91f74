package config

import (
	"os"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/logger"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents options that configure the global behavior of the program
type Config struct {
	// Project logger
	Logger *logrus.Entry `yaml:"-"`

	// FrameRate is the sample rate new tempo maps are created at.
	FrameRate int64 `yaml:"frame_rate"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`

	Tempo TempoConfig `yaml:"tempo"`
	Meter MeterConfig `yaml:"meter"`

	// BarsPerPhrase groups bars for transport markers.
	BarsPerPhrase uint32 `yaml:"bars_per_phrase"`

	// The slowest and fastest tempo of the range tempo markers are coloured across.
	MinTempo float64 `yaml:"min_tempo"`
	MaxTempo float64 `yaml:"max_tempo"`
}

// TempoConfig is the initial tempo of new maps.
type TempoConfig struct {
	BeatsPerMinute float64 `yaml:"beats_per_minute"`
	NoteType       float64 `yaml:"note_type"`
	Type           string  `yaml:"type"`
}

// MeterConfig is the initial meter of new maps.
type MeterConfig struct {
	DivisionsPerBar float64 `yaml:"divisions_per_bar"`
	NoteType        float64 `yaml:"note_type"`
}

// NewConfig creates a Config with reasonable defaults for real usage
func NewConfig() (Config, error) {
	tempo, meter := tempomap.DefaultTempo(), tempomap.DefaultMeter()
	return Config{
		Logger:    logger.GetProjectLogger(),
		FrameRate: 48000,
		LogLevel:  logrus.InfoLevel.String(),
		Tempo: TempoConfig{
			BeatsPerMinute: tempo.BeatsPerMinute(),
			NoteType:       tempo.NoteType(),
			Type:           rhythm.Constant.String(),
		},
		Meter: MeterConfig{
			DivisionsPerBar: meter.DivisionsPerBar(),
			NoteType:        meter.NoteDivisor(),
		},
		BarsPerPhrase: 8,
		MinTempo:      60,
		MaxTempo:      180,
	}, nil
}

// LoadFile reads a YAML config file over the defaults. Keys missing from the file keep their default value.
func LoadFile(path string) (Config, error) {
	cfg, err := NewConfig()
	if err != nil {
		return cfg, err
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.WithStackTrace(err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.WithStackTrace(err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Logger.WithField("path", path).Debug("Loaded config file")
	return cfg, nil
}

// Validate checks the initial tempo and meter, and that the other settings are usable.
func (c Config) Validate() error {
	if c.FrameRate <= 0 {
		return errors.WithStackTrace(ErrInvalidFrameRate)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.WithStackTrace(err)
	}
	if _, err := rhythm.ParseTempoType(c.Tempo.Type); err != nil {
		return errors.WithStackTrace(err)
	}
	if err := rhythm.NewTempo(c.Tempo.BeatsPerMinute, c.Tempo.NoteType).Validate(); err != nil {
		return errors.WithStackTrace(err)
	}
	if err := rhythm.NewMeter(c.Meter.DivisionsPerBar, c.Meter.NoteType).Validate(); err != nil {
		return errors.WithStackTrace(err)
	}
	return nil
}

// InitialTempo returns the configured initial tempo, clamped to the range the command line accepts.
func (c Config) InitialTempo() rhythm.Tempo {
	return rhythm.NewTempo(utils.ClampBeatsPerMinute(c.Tempo.BeatsPerMinute), c.Tempo.NoteType)
}

func (c Config) InitialMeter() rhythm.Meter {
	return rhythm.NewMeter(utils.ClampDivisionsPerBar(c.Meter.DivisionsPerBar), c.Meter.NoteType)
}

// MapOptions returns the options that create tempo maps as configured.
func (c Config) MapOptions() []tempomap.Option {
	typ, err := rhythm.ParseTempoType(c.Tempo.Type)
	if err != nil {
		typ = rhythm.Constant
	}
	opts := []tempomap.Option{
		tempomap.WithInitialTempo(c.InitialTempo(), typ),
		tempomap.WithInitialMeter(c.InitialMeter()),
	}
	if c.Logger != nil {
		opts = append(opts, tempomap.WithLogger(c.Logger))
	}
	return opts
}

// NewMap creates an empty tempo map with the configured frame rate and initial sections.
func (c Config) NewMap() (*tempomap.TempoMap, error) {
	return tempomap.New(c.FrameRate, c.MapOptions()...)
}
