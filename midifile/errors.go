package midifile

import "errors"

var (
	// ErrUnsupportedTimeFormat is returned for files timed in SMPTE frames rather than ticks per quarter note.
	ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format")

	// ErrUnrepresentableMeter is returned when a meter has no MIDI time signature equivalent.
	ErrUnrepresentableMeter = errors.New("meter cannot be written as a MIDI time signature")
)
