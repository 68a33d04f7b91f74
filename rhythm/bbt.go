package rhythm

import (
	"fmt"
	"strconv"
	"strings"
)

// BBT is a bar, beat, tick position. Bars and beats count from one, ticks from zero.
type BBT struct {
	Bars  uint32
	Beats uint32
	Ticks uint32
}

// NewBBT returns the BBT position bars|beats|ticks.
func NewBBT(bars, beats, ticks uint32) BBT {
	return BBT{Bars: bars, Beats: beats, Ticks: ticks}
}

// IsBar reports whether the position is exactly on the first beat of a bar.
func (b BBT) IsBar() bool {
	return b.Beats == 1 && b.Ticks == 0
}

// Less orders BBT positions lexicographically.
func (b BBT) Less(o BBT) bool {
	if b.Bars != o.Bars {
		return b.Bars < o.Bars
	}
	if b.Beats != o.Beats {
		return b.Beats < o.Beats
	}
	return b.Ticks < o.Ticks
}

// String formats the position the way the editor shows it, e.g. "3|2|960".
func (b BBT) String() string {
	return fmt.Sprintf("%d|%d|%d", b.Bars, b.Beats, b.Ticks)
}

// ParseBBT parses a "bars|beats|ticks" string. The ticks part is optional.
func ParseBBT(s string) (BBT, error) {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) < 2 || len(parts) > 3 {
		return BBT{}, fmt.Errorf("malformed BBT %q, expected bars|beats|ticks", s)
	}

	vals := make([]uint32, 3)
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return BBT{}, fmt.Errorf("malformed BBT %q: %v", s, err)
		}
		vals[i] = uint32(v)
	}

	if vals[0] < 1 || vals[1] < 1 {
		return BBT{}, fmt.Errorf("malformed BBT %q, bars and beats count from 1", s)
	}
	if float64(vals[2]) >= TicksPerBeat {
		return BBT{}, fmt.Errorf("malformed BBT %q, ticks must be below %d", s, int(TicksPerBeat))
	}

	return BBT{Bars: vals[0], Beats: vals[1], Ticks: vals[2]}, nil
}

// MarshalText lets BBT values travel as plain strings in YAML state.
func (b BBT) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BBT) UnmarshalText(text []byte) error {
	v, err := ParseBBT(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
