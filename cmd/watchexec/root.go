package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchexec/corewatch/internal/config"
	"github.com/watchexec/corewatch/internal/logging"
	"github.com/watchexec/corewatch/internal/orchestrator"
	"github.com/watchexec/corewatch/internal/source"
	"github.com/watchexec/corewatch/internal/supervisor"
	"github.com/watchexec/corewatch/internal/werrors"
)

// exitCode is set by runWatch before rootCmd.Execute returns, and read by
// main after rootCmd.Execute to pick the process exit status (spec §6
// "Exit codes").
var exitCode int

var rootOptions = config.Default()

var rootCmd = &cobra.Command{
	Use:   "watchexec [flags] -- command [args...]",
	Short: "Run a command whenever watched paths change",
	Long: `watchexec watches a set of paths and runs a command whenever matching
filesystem events occur, debouncing bursts of changes and restarting (or
queuing, signalling, or ignoring) the command according to --on-busy-update.

Examples:
  watchexec -w src -- npm test
  watchexec -e rs --restart -- cargo run
  watchexec --postpone -- make build`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

func init() {
	v := viper.New()
	v.SetEnvPrefix("watchexec")
	v.AutomaticEnv()
	config.BindFlags(rootCmd, v, &rootOptions)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	o := rootOptions
	o.Command = args

	origin := o.ProjectOrigin
	if origin == "" {
		wd, err := os.Getwd()
		if err != nil {
			return reportAndFail(err)
		}
		origin = wd
	}
	if err := config.LoadAndApplyProjectFile(cmd, &o, origin); err != nil {
		return reportAndFail(err)
	}

	snap, err := config.Resolve(o)
	if err != nil {
		return reportAndFail(err)
	}

	logger := logging.New("watchexec", logging.Config{
		LogFile: snap.LogFile,
		Level:   logging.LevelFromCount(snap.Verbose),
		Quiet:   snap.Quiet,
	})

	live := config.NewLive(snap)
	orch := orchestrator.New(live, logger)

	ctx := context.Background()

	if len(snap.Command.Options.Sockets) > 0 {
		listeners, err := supervisor.OpenSockets(snap.Command.Options.Sockets)
		if err != nil {
			return reportAndFail(err)
		}
		orch.PrebindSockets(listeners)
	}

	orch.AddSource(source.NewSignal())
	if snap.Interactive || snap.StdinQuit {
		orch.AddSource(source.NewKeyboard(os.Stdin, snap.StdinQuit))
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		return reportAndFail(err)
	}
	exitCode = summary.ExitCode
	return nil
}

func reportAndFail(err error) error {
	fmt.Fprintln(os.Stderr, renderErr(err))
	exitCode = 1
	return err
}

// renderErr prefers werrors.Error's caret-style Render, falling back to a
// plain message for ordinary errors (spec §7).
func renderErr(err error) string {
	if werr, ok := err.(*werrors.Error); ok {
		return "watchexec: " + werr.Render()
	}
	return "watchexec: " + err.Error()
}
