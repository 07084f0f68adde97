package orchestrator

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/muesli/termenv"
)

// statusOutput picks a termenv color profile for snap.Color (spec §6
// "--color auto|always|never"), so status lines degrade to plain text on
// a dumb terminal or when explicitly disabled.
func statusOutput(color string) *termenv.Output {
	switch color {
	case "always":
		return termenv.NewOutput(os.Stdout, termenv.WithProfile(termenv.ANSI256))
	case "never":
		return termenv.NewOutput(os.Stdout, termenv.WithProfile(termenv.Ascii))
	default:
		return termenv.NewOutput(os.Stdout)
	}
}

// printRunStatus prints the "done in Xms" / exit-code line after a
// supervised command finishes, styled per --color, and honours --timings,
// --bell and --notify (spec §6 Output options).
func printRunStatus(snap statusSnapshot, disposition string, code int, elapsed time.Duration) {
	if snap.Timings {
		out := statusOutput(snap.Color)
		style := out.String(fmt.Sprintf("[%s, code %d, %s]", disposition, code, elapsed.Round(time.Millisecond)))
		if disposition == "success" {
			style = style.Foreground(out.Color("#a6e3a1"))
		} else {
			style = style.Foreground(out.Color("#f38ba8"))
		}
		fmt.Fprintln(os.Stdout, style.String())
	}
	if snap.Bell {
		fmt.Fprint(os.Stdout, "\a")
	}
	if snap.Notify {
		notifyDesktop(fmt.Sprintf("watchexec: %s", disposition), fmt.Sprintf("exit code %d", code))
	}
}

// statusSnapshot is the subset of config.Snapshot printRunStatus needs;
// kept narrow so it can be constructed from a plain config.Snapshot without
// importing the whole package into this file's signature.
type statusSnapshot struct {
	Color   string
	Bell    bool
	Notify  bool
	Timings bool
}

// notifyDesktop best-effort shells out to the host's notification command,
// the same way the rest of this ecosystem's tools shell out to external
// binaries (jj/git) rather than linking a platform notification library —
// there is no cross-platform desktop-notification dependency anywhere in
// this module's pack to wire instead. Failure (binary missing, headless
// environment) is silently ignored: a missed notification is not worth
// failing a run over.
func notifyDesktop(title, body string) {
	var cmd *exec.Cmd
	switch {
	case exec.Command("which", "notify-send").Run() == nil:
		cmd = exec.Command("notify-send", title, body)
	case exec.Command("which", "osascript").Run() == nil:
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		return
	}
	_ = cmd.Run()
}
