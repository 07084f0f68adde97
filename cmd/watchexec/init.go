package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/catppuccin/go"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/watchexec/corewatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively write a .watchexec.toml project file",
	Long: `init asks a few questions about how this project likes to be watched
and writes the answers to .watchexec.toml in the current directory, so
future invocations of watchexec here don't need to repeat the same flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInit,
}

// wizardPalette borrows Catppuccin Mocha's accent colors for the form, the
// same palette family this ecosystem's terminal UIs reach for.
var wizardPalette = catppuccin.Mocha

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return reportAndFail(err)
	}
	path := filepath.Join(wd, ".watchexec.toml")
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "%s already exists; remove it first to re-run init\n", path)
		exitCode = 1
		return fmt.Errorf("refusing to overwrite %s", path)
	}

	pf := config.ProjectFile{
		Watch:       []string{"."},
		Debounce:    50 * time.Millisecond,
		StopSignal:  "SIGTERM",
		StopTimeout: 10 * time.Second,
	}
	var watchCSV, ignoreCSV, extsCSV string
	var useShell bool

	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(wizardPalette.Mauve().Hex)).Bold(true)
	fmt.Println(accent.Render("watchexec init") + " — let's set up .watchexec.toml")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Paths to watch (comma-separated)").
				Placeholder(".").
				Value(&watchCSV),
			huh.NewInput().
				Title("Glob patterns to ignore (comma-separated, optional)").
				Value(&ignoreCSV),
			huh.NewInput().
				Title("File extensions to restrict to (comma-separated, optional)").
				Value(&extsCSV),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What should happen when a batch arrives while the command is running?").
				Options(
					huh.NewOption("queue — wait, then run once more", "queue"),
					huh.NewOption("restart — stop and start over", "restart"),
					huh.NewOption("signal — deliver a signal and keep running", "signal"),
					huh.NewOption("do nothing — ignore the batch", "do-nothing"),
				).
				Value(&pf.OnBusyUpdate),
			huh.NewConfirm().
				Title("Run the command through a shell?").
				Value(&useShell),
		),
	)

	if err := form.Run(); err != nil {
		return reportAndFail(err)
	}

	pf.Watch = splitCSV(watchCSV, pf.Watch)
	pf.Ignores = splitCSV(ignoreCSV, nil)
	pf.Extensions = splitCSV(extsCSV, nil)
	if useShell {
		pf.Shell = defaultShellFor(os.Getenv("SHELL"))
	} else {
		pf.Shell = "none"
	}

	f, err := os.Create(path)
	if err != nil {
		return reportAndFail(err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(pf); err != nil {
		return reportAndFail(err)
	}

	fmt.Println(accent.Render("wrote ") + path)
	return nil
}

func splitCSV(s string, fallback []string) []string {
	if s == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func defaultShellFor(shellEnv string) string {
	if shellEnv != "" {
		return shellEnv
	}
	return "sh"
}
