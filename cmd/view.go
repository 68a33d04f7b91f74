package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/gruntwork-io/go-commons/errors"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/robmorgan/metric/rhythm"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/utils"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF"))
	barStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	slowColour, _ = colorful.Hex("#3B82F6")
	fastColour, _ = colorful.Hex("#EF4444")
)

// tempoColour places bpm between min and max and blends from blue for the slowest to red for the fastest.
func tempoColour(bpm, min, max float64) lipgloss.Color {
	if max <= min {
		return lipgloss.Color(slowColour.Hex())
	}
	t := (utils.Clamp(bpm, min, max) - min) / (max - min)
	return lipgloss.Color(slowColour.BlendLab(fastColour, t).Clamped().Hex())
}

func (o *options) tempoStyle(tempo rhythm.Tempo) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(tempoColour(tempo.PulsesPerMinute(), o.cfg.MinTempo, o.cfg.MaxTempo))
}

func newShowCmd(o *options) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "List the tempo and meter changes of a map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dump {
				return tm.Dump(out)
			}

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s  %d Hz  %d tempos  %d meters",
				args[0], tm.FrameRate(), tm.NTempos(), tm.NMeters())))
			for _, s := range tm.Sections() {
				if err := o.printSection(out, tm, s); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print the raw sections instead")
	return cmd
}

func (o *options) printSection(w io.Writer, tm *tempomap.TempoMap, s rhythm.Section) error {
	m := s.Metric()
	where := fmt.Sprintf("%-10v beat %9.3f  sample %10d  %v", tm.BBTAtSample(m.Sample()), m.Beat(), m.Sample(), m.PositionLockStyle())

	var line string
	switch s := s.(type) {
	case *rhythm.TempoSection:
		line = o.tempoStyle(s.Tempo).Render(fmt.Sprintf("#%-4d tempo %-8s %-10v", m.ID(), fmt.Sprintf("%g/%g", s.BeatsPerMinute(), s.NoteType()), s.Type()))
	case *rhythm.MeterSection:
		line = meterStyle.Render(fmt.Sprintf("#%-4d meter %-8v %-10s", m.ID(), s.Meter, ""))
	}
	_, err := fmt.Fprintf(w, "%s %s\n", line, dimStyle.Render(where))
	return errors.WithStackTrace(err)
}

func newGridCmd(o *options) *cobra.Command {
	var (
		from positionFlags
		bars uint32
	)

	cmd := &cobra.Command{
		Use:   "grid FILE",
		Short: "Print the beat grid of a number of bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			start, err := from.resolve(cmd, tm)
			if err != nil {
				return err
			}
			start = tm.RoundToBar(start, tempomap.RoundDown)
			end := tm.SamplePlusBBT(start, rhythm.NewBBT(bars, 0, 0))

			out := cmd.OutOrStdout()
			for _, p := range tm.Grid(start, end) {
				label := fmt.Sprintf("%-8v %10d", p.BBT(), p.Sample)
				if p.IsBar() {
					label = barStyle.Render(label)
				}
				fmt.Fprintf(out, "%s  %s %s\n", label, p.Meter.Meter, o.tempoStyle(tm.TempoAt(p.Sample)).Render(tm.TempoAt(p.Sample).String()))
			}
			return nil
		},
	}

	from.register(cmd, false)
	cmd.Flags().Uint32Var(&bars, "bars", 4, "Number of bars to print")
	return cmd
}

func newConvertCmd(o *options) *cobra.Command {
	var pos positionFlags

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Show a position as samples, beats and bars|beats|ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			sample, err := pos.resolve(cmd, tm)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tempo := tm.TempoAt(sample)
			fmt.Fprintf(out, "sample  %d\n", sample)
			fmt.Fprintf(out, "beat    %.6f\n", tm.BeatAtSample(sample))
			fmt.Fprintf(out, "bbt     %v\n", tm.BBTAtSample(sample))
			fmt.Fprintf(out, "tempo   %s\n", o.tempoStyle(tempo).Render(tempo.String()))
			fmt.Fprintf(out, "meter   %v\n", tm.MeterAt(sample))
			return nil
		},
	}

	pos.register(cmd, true)
	return cmd
}

func newRoundCmd(o *options) *cobra.Command {
	var (
		pos  positionFlags
		mode string
		to   string
		sub  int
	)

	cmd := &cobra.Command{
		Use:   "round FILE",
		Short: "Snap a position to the beat or bar grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, err := tempomap.ParseRoundMode(mode)
			if err != nil {
				return err
			}
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			sample, err := pos.resolve(cmd, tm)
			if err != nil {
				return err
			}

			var snapped int64
			switch to {
			case "bar":
				snapped = tm.RoundToBar(sample, rm)
			case "beat":
				snapped = tm.RoundToBeatSubdivision(sample, sub, rm)
			default:
				return fmt.Errorf("cannot round to %q, expected beat or bar", to)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %v\n", snapped, tm.BBTAtSample(snapped))
			return nil
		},
	}

	pos.register(cmd, true)
	cmd.Flags().StringVar(&mode, "mode", "nearest", "Rounding direction: down, up or nearest")
	cmd.Flags().StringVar(&to, "to", "beat", "Grid to snap to: beat or bar")
	cmd.Flags().IntVar(&sub, "sub", 1, "Subdivisions of a beat to snap to")
	return cmd
}
