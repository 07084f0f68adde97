package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchexec/corewatch/internal/config"
)

var configOptions = config.Default()

var configCmd = &cobra.Command{
	Use:   "config [flags] -- command [args...]",
	Short: "Resolve flags/project-file/argfiles and print the config as YAML",
	Long: `config resolves exactly the configuration a real run would use — CLI
flags, the .watchexec.toml project file, and argfile expansion — and prints
it as YAML without starting any watcher or command. Useful for diagnosing
why a particular flag combination isn't doing what's expected.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConfigDump,
}

func init() {
	v := viper.New()
	v.SetEnvPrefix("watchexec")
	v.AutomaticEnv()
	config.BindFlags(configCmd, v, &configOptions)
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	o := configOptions
	o.Command = args
	o.OnlyEmitEvents = true // config dump never requires a command to be given

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

	out, err := config.DumpYAML(snap)
	if err != nil {
		return reportAndFail(err)
	}
	fmt.Print(string(out))
	return nil
}
