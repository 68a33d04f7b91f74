package cmd

import (
	"fmt"
	"strconv"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/utils"
	"github.com/spf13/cobra"
)

func newNewCmd(o *options) *cobra.Command {
	var (
		bpm   float64
		note  float64
		meter string
		ramp  bool
	)

	cmd := &cobra.Command{
		Use:   "new FILE",
		Short: "Create a tempo map holding only the initial tempo and meter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tempo") {
				o.cfg.Tempo.BeatsPerMinute = bpm
			}
			if cmd.Flags().Changed("note") {
				o.cfg.Tempo.NoteType = note
			}
			if ramp {
				o.cfg.Tempo.Type = rhythm.Ramp.String()
			}
			if meter != "" {
				m, err := parseMeter(meter)
				if err != nil {
					return err
				}
				o.cfg.Meter.DivisionsPerBar = m.DivisionsPerBar()
				o.cfg.Meter.NoteType = m.NoteDivisor()
			}
			if err := o.cfg.Validate(); err != nil {
				return err
			}

			tm, err := o.cfg.NewMap()
			if err != nil {
				return err
			}
			if err := saveMap(tm, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s at %d Hz\n", args[0], tm.FrameRate())
			return nil
		},
	}

	cmd.Flags().Float64Var(&bpm, "tempo", 0, "Initial tempo in beats per minute")
	cmd.Flags().Float64Var(&note, "note", 0, "Note value of a beat of the initial tempo, 4 is a quarter note")
	cmd.Flags().StringVar(&meter, "meter", "", "Initial meter, e.g. 3/4")
	cmd.Flags().BoolVar(&ramp, "ramp", false, "Ramp the initial tempo into the next one")
	return cmd
}

func newAddTempoCmd(o *options) *cobra.Command {
	var (
		pos  positionFlags
		note float64
		ramp bool
	)

	cmd := &cobra.Command{
		Use:   "add-tempo FILE BPM",
		Short: "Add a tempo change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bpm, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.WithStackTrace(err)
			}

			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			at, err := pos.position(cmd, tm)
			if err != nil {
				return err
			}

			typ := rhythm.Constant
			if ramp {
				typ = rhythm.Ramp
			}
			tempo := rhythm.NewTempo(utils.ClampBeatsPerMinute(bpm), note)
			id, err := tm.AddTempo(tempo, at, typ)
			if err != nil {
				return err
			}
			if err := saveMap(tm, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added tempo #%d %v at %v\n", id, tempo, at)
			return nil
		},
	}

	pos.register(cmd, true)
	cmd.Flags().Float64Var(&note, "note", 4, "Note value of a beat, 4 is a quarter note")
	cmd.Flags().BoolVar(&ramp, "ramp", false, "Ramp into the next tempo")
	return cmd
}

func newAddMeterCmd(o *options) *cobra.Command {
	var pos positionFlags

	cmd := &cobra.Command{
		Use:   "add-meter FILE METER",
		Short: "Add a meter change, e.g. add-meter song.yaml 3/4 --bbt 5|1|0",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meter, err := parseMeter(args[1])
			if err != nil {
				return err
			}
			meter = rhythm.NewMeter(utils.ClampDivisionsPerBar(meter.DivisionsPerBar()), meter.NoteDivisor())

			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}

			var id rhythm.SectionID
			if cmd.Flags().Changed("bbt") {
				bbt, err := rhythm.ParseBBT(pos.bbt)
				if err != nil {
					return err
				}
				id, err = tm.AddMeterAtBBT(meter, bbt)
				if err != nil {
					return err
				}
			} else {
				at, err := pos.position(cmd, tm)
				if err != nil {
					return err
				}
				if id, err = tm.AddMeter(meter, at); err != nil {
					return err
				}
			}

			if err := saveMap(tm, args[0]); err != nil {
				return err
			}
			added, _ := tm.Section(id)
			fmt.Fprintf(cmd.OutOrStdout(), "added meter #%d %v at %v\n", id, meter, added.(*rhythm.MeterSection).BBT())
			return nil
		},
	}

	pos.register(cmd, true)
	return cmd
}

func newRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove FILE ID",
		Short: "Remove a tempo or meter change by the number show prints",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.WithStackTrace(err)
			}
			id := rhythm.SectionID(n)

			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}

			s, ok := tm.Section(id)
			if !ok {
				return errors.WithStackTrace(tempomap.ErrSectionNotFound)
			}
			switch s.(type) {
			case *rhythm.TempoSection:
				err = tm.RemoveTempo(id, true)
			case *rhythm.MeterSection:
				err = tm.RemoveMeter(id, true)
			}
			if err != nil {
				return err
			}

			if err := saveMap(tm, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed #%d\n", id)
			return nil
		},
	}
}

// newTimeCmd builds insert-time, or remove-time when insert is false.
func newTimeCmd(o *options, insert bool) *cobra.Command {
	var (
		pos    positionFlags
		amount int64
	)

	use, short := "insert-time FILE", "Open a gap in the timeline, moving later changes"
	if !insert {
		use, short = "remove-time FILE", "Cut a stretch of the timeline, pulling later changes back"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			where, err := pos.resolve(cmd, tm)
			if err != nil {
				return err
			}

			if insert {
				err = tm.InsertTime(where, amount)
			} else {
				var moved bool
				moved, err = tm.RemoveTime(where, amount)
				if err == nil && !moved {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to move")
				}
			}
			if err != nil {
				return err
			}
			return saveMap(tm, args[0])
		},
	}

	pos.register(cmd, true)
	cmd.Flags().Int64Var(&amount, "amount", 0, "Length of the gap or cut in samples")
	cmd.MarkFlagRequired("amount")
	return cmd
}
