package cmd

import (
	"fmt"
	"os"

	"github.com/robmorgan/metric/config"
	"github.com/robmorgan/metric/logger"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

// NewRootCmd builds the metric command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "metric",
		Short: "Inspect and edit tempo maps",
		Long: `metric keeps tempo maps: the tempo and meter changes of a piece of music, positioned either in
beats or in audio samples.

Maps are stored as YAML state files. They can be created, edited, converted to and from standard MIDI
files, and played back against the wall clock.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}

	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level, overrides the config file")

	root.AddCommand(
		newNewCmd(o),
		newShowCmd(o),
		newGridCmd(o),
		newConvertCmd(o),
		newRoundCmd(o),
		newAddTempoCmd(o),
		newAddMeterCmd(o),
		newRemoveCmd(o),
		newTimeCmd(o, true),
		newTimeCmd(o, false),
		newImportCmd(o),
		newExportCmd(o),
		newPlayCmd(o),
	)
	return root
}

func (o *options) load() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFile(o.configPath)
	} else {
		o.cfg, err = config.NewConfig()
	}
	if err != nil {
		return err
	}

	level := o.cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	if err := logger.SetGlobalLogLevelFromString(level); err != nil {
		return err
	}
	o.cfg.Logger = logger.GetProjectLogger()
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
