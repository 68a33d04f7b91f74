// Package midifile moves tempo maps in and out of standard MIDI files. Only the tempo and time signature meta
// events are read or written.
package midifile

import (
	"io"
	"math"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/logger"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"
)

// DefaultResolution is the number of ticks per quarter note Export uses when given zero.
const DefaultResolution = 960

// rampStep is how often a ramp is sampled on export, in quarter notes.
const rampStep = 0.25

type event struct {
	tick  int64
	tempo *rhythm.Tempo
	meter *rhythm.Meter
}

// Import builds a new tempo map from the meta events of a MIDI file. Events at tick zero become the initial
// tempo and meter. Every tempo change is constant, since a MIDI file has no ramps.
func Import(r io.Reader, frameRate int64, opts ...tempomap.Option) (*tempomap.TempoMap, error) {
	mid, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}
	ticks, ok := mid.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.WithStackTrace(ErrUnsupportedTimeFormat)
	}

	events := readEvents(mid)

	var later []event
	for _, ev := range events {
		switch {
		case ev.tick > 0:
			later = append(later, ev)
		case ev.tempo != nil:
			opts = append(opts, tempomap.WithInitialTempo(*ev.tempo, rhythm.Constant))
		case ev.meter != nil:
			opts = append(opts, tempomap.WithInitialMeter(*ev.meter))
		}
	}

	tm, err := tempomap.New(frameRate, opts...)
	if err != nil {
		return nil, err
	}

	for _, ev := range later {
		pos := tempomap.AtBeat(float64(ev.tick) / float64(ticks))
		if ev.meter != nil {
			_, err = tm.AddMeter(*ev.meter, pos)
		} else {
			_, err = tm.AddTempo(*ev.tempo, pos, rhythm.Constant)
		}
		if err != nil {
			return nil, err
		}
	}

	logger.GetProjectLogger().WithFields(logrus.Fields{
		"resolution": uint16(ticks),
		"tempos":     tm.NTempos(),
		"meters":     tm.NMeters(),
	}).Debug("Imported tempo map from MIDI file")
	return tm, nil
}

// readEvents collects the tempo and time signature events of every track, ordered by tick with meters first.
func readEvents(mid *smf.SMF) []event {
	var events []event
	for _, track := range mid.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)

			var bpm float64
			var num, denom, cpt, dsqpq uint8
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				tempo := rhythm.NewTempo(bpm, 4)
				events = append(events, event{tick: tick, tempo: &tempo})
			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				meter := rhythm.NewMeter(float64(num), float64(denom))
				events = append(events, event{tick: tick, meter: &meter})
			}
		}
	}

	slices.SortStableFunc(events, compareEvents)
	return events
}

func compareEvents(a, b event) int {
	switch {
	case a.tick < b.tick:
		return -1
	case a.tick > b.tick:
		return 1
	}
	return rank(a) - rank(b)
}

func rank(ev event) int {
	if ev.meter != nil {
		return 0
	}
	return 1
}

// Export writes the tempo and meter sections of tm as a single track MIDI file. Ramps are written as a
// staircase of tempo changes, one per sixteenth note.
func Export(w io.Writer, tm *tempomap.TempoMap, resolution uint16) error {
	if resolution == 0 {
		resolution = DefaultResolution
	}
	res := float64(resolution)
	toTick := func(beat float64) int64 {
		return int64(math.Round(beat * res))
	}

	var events []event
	for _, ms := range tm.Meters() {
		num, denom := ms.DivisionsPerBar(), ms.NoteDivisor()
		if !representable(num, denom) {
			logger.GetProjectLogger().WithField("meter", ms.Meter.String()).Error("Meter has no MIDI time signature")
			return errors.WithStackTrace(ErrUnrepresentableMeter)
		}
		meter := ms.Meter
		events = append(events, event{tick: toTick(ms.Beat()), meter: &meter})
	}

	tempos := tm.Tempos()
	for i, ts := range tempos {
		tempo := rhythm.NewTempo(ts.PulsesPerMinute(), 4)
		events = append(events, event{tick: toTick(ts.Beat()), tempo: &tempo})

		if ts.Type() != rhythm.Ramp || i+1 >= len(tempos) {
			continue
		}
		for beat := ts.Beat() + rampStep; beat < tempos[i+1].Beat()-rampStep/2; beat += rampStep {
			step := rhythm.NewTempo(tm.TempoAt(tm.SampleAtBeat(beat)).PulsesPerMinute(), 4)
			events = append(events, event{tick: toTick(beat), tempo: &step})
		}
	}

	slices.SortStableFunc(events, compareEvents)

	var track smf.Track
	var last int64
	for _, ev := range events {
		delta := uint32(ev.tick - last)
		last = ev.tick
		if ev.meter != nil {
			track.Add(delta, smf.MetaMeter(uint8(ev.meter.DivisionsPerBar()), uint8(ev.meter.NoteDivisor())))
		} else {
			track.Add(delta, smf.MetaTempo(ev.tempo.BeatsPerMinute()))
		}
	}
	track.Close(0)

	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(resolution)
	if err := mid.Add(track); err != nil {
		return errors.WithStackTrace(err)
	}
	if _, err := mid.WriteTo(w); err != nil {
		return errors.WithStackTrace(err)
	}
	return nil
}

// representable reports whether a meter fits a MIDI time signature: a whole number of divisions and a power of
// two note value.
func representable(num, denom float64) bool {
	if num != math.Trunc(num) || num < 1 || num > math.MaxUint8 {
		return false
	}
	if denom != math.Trunc(denom) || denom < 1 || denom > 128 {
		return false
	}
	d := int(denom)
	return d&(d-1) == 0
}
