package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(48000), cfg.FrameRate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, rhythm.NewTempo(120, 4), cfg.InitialTempo())
	assert.Equal(t, rhythm.NewMeter(4, 4), cfg.InitialMeter())
	assert.NotNil(t, cfg.Logger)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
frame_rate: 44100
tempo:
  beats_per_minute: 90
  note_type: 4
  type: Ramp
meter:
  divisions_per_bar: 3
  note_type: 4
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44100), cfg.FrameRate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint32(8), cfg.BarsPerPhrase)

	tm, err := cfg.NewMap()
	require.NoError(t, err)
	assert.Equal(t, int64(44100), tm.FrameRate())
	assert.Equal(t, rhythm.NewTempo(90, 4), tm.Tempos()[0].Tempo)
	assert.Equal(t, rhythm.Ramp, tm.Tempos()[0].Type())
	assert.Equal(t, rhythm.NewMeter(3, 4), tm.Meters()[0].Meter)
}

func TestLoadFileClampsTempo(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(writeConfig(t, "tempo:\n  beats_per_minute: 5000\n  note_type: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.InitialTempo().BeatsPerMinute())
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		contents string
		expected error
	}{
		{"unknown key", "colour: red\n", nil},
		{"bad frame rate", "frame_rate: -1\n", ErrInvalidFrameRate},
		{"bad tempo", "tempo:\n  beats_per_minute: 0\n  note_type: 4\n", rhythm.ErrInvalidTempo},
		{"bad meter", "meter:\n  divisions_per_bar: 0\n  note_type: 4\n", rhythm.ErrInvalidMeter},
		{"bad tempo type", "tempo:\n  beats_per_minute: 120\n  note_type: 4\n  type: Wobble\n", nil},
		{"bad log level", "log_level: loud\n", nil},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadFile(writeConfig(t, testCase.contents))
			require.Error(t, err)
			if testCase.expected != nil {
				assert.True(t, errors.IsError(err, testCase.expected), "got %v", err)
			}
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
