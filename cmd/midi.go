package cmd

import (
	"fmt"
	"os"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/metric/midifile"
	"github.com/spf13/cobra"
)

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import-midi MIDI FILE",
		Short: "Build a tempo map from the tempo and time signature events of a MIDI file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.WithStackTrace(err)
			}
			defer f.Close()

			tm, err := midifile.Import(f, o.cfg.FrameRate, o.cfg.MapOptions()...)
			if err != nil {
				return err
			}
			if err := saveMap(tm, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tempos and %d meters into %s\n", tm.NTempos(), tm.NMeters(), args[1])
			return nil
		},
	}
}

func newExportCmd(o *options) *cobra.Command {
	var resolution uint16

	cmd := &cobra.Command{
		Use:   "export-midi FILE MIDI",
		Short: "Write the tempo and meter changes of a map to a MIDI file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.loadMap(args[0])
			if err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return errors.WithStackTrace(err)
			}
			if err := midifile.Export(f, tm, resolution); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.WithStackTrace(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().Uint16Var(&resolution, "resolution", midifile.DefaultResolution, "Ticks per quarter note")
	return cmd
}
