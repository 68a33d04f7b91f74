package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/monitor"
	"github.com/robmorgan/metric/tempomap"
	"github.com/robmorgan/metric/transport"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

func newPlayCmd(o *options) *cobra.Command {
	var (
		pos      positionFlags
		tick     time.Duration
		headless bool
		length   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a tempo map against the wall clock",
		Long: `Play a tempo map against the wall clock.

By default an interactive view shows the play head. With --headless every beat crossed is printed as a line
instead, until interrupted or until --for has passed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}
			from, err := pos.resolve(cmd, tm)
			if err != nil {
				return err
			}

			tr := transport.New(clock.RealClock{}, tm,
				transport.WithLogger(o.cfg.Logger), transport.WithBarsPerPhrase(o.cfg.BarsPerPhrase))
			tr.Locate(from)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if length > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, length)
				defer cancel()
			}

			if headless {
				return o.playHeadless(ctx, cmd, tr, tick)
			}
			return o.playInteractive(ctx, tr, tm, tick)
		},
	}

	pos.register(cmd, false)
	cmd.Flags().DurationVar(&tick, "tick", 10*time.Millisecond, "How often the play head is checked for crossed beats")
	cmd.Flags().BoolVar(&headless, "headless", false, "Print beats instead of showing the interactive view")
	cmd.Flags().DurationVar(&length, "for", 0, "Stop after this long, zero plays until interrupted")
	return cmd
}

func (o *options) playHeadless(ctx context.Context, cmd *cobra.Command, tr *transport.Transport, tick time.Duration) error {
	out := cmd.OutOrStdout()
	tr.Start()
	defer tr.Stop()

	return tr.Run(ctx, tick, func(p tempomap.BBTPoint) {
		line := fmt.Sprintf("%-8v %10d  %v %v", p.BBT(), p.Sample, p.Meter.Meter, p.Tempo.Tempo)
		if p.IsBar() {
			line = barStyle.Render(line)
		}
		fmt.Fprintln(out, line)
	})
}

func (o *options) playInteractive(ctx context.Context, tr *transport.Transport, tm *tempomap.TempoMap, tick time.Duration) error {
	colour := func(bpm float64) lipgloss.Color {
		return tempoColour(bpm, o.cfg.MinTempo, o.cfg.MaxTempo)
	}
	p := tea.NewProgram(monitor.New(tr, tm, colour), tea.WithContext(ctx))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tr.Run(ctx, tick, func(pt tempomap.BBTPoint) {
			p.Send(monitor.BeatMsg(pt))
		})
	}()

	_, err := p.Run()
	cancel()
	if runErr := <-done; runErr != nil {
		return runErr
	}
	if err != nil && !errors.IsError(err, tea.ErrProgramKilled) {
		return errors.WithStackTrace(err)
	}
	return nil
}
