// Package signame normalises and parses signal names per spec §6: case
// insensitive, accepting "SIGTERM", "TERM", or "15". The tables are the same
// on every platform: there is no Windows console-control mapping here, and
// KILL is not an accepted name.
package signame

import (
	"strconv"
	"strings"

	"github.com/watchexec/corewatch/internal/event"
)

// aliases maps every accepted spelling (already uppercased, "SIG" stripped)
// to the normalised event.SignalName.
var aliases = map[string]event.SignalName{
	"HUP":  event.SigHangup,
	"INT":  event.SigInterrupt,
	"QUIT": event.SigQuit,
	"TERM": event.SigTerminate,
	"USR1": event.SigUser1,
	"USR2": event.SigUser2,
	"CONT": event.SigContinue,
	"STOP": event.SigSuspend,
	"TSTP": event.SigTerminalSuspend,
}

// numericAliases maps the common POSIX signal numbers to their name, for
// inputs like "15" (SIGTERM on Linux/amd64).
var numericAliases = map[string]event.SignalName{
	"1":  event.SigHangup,
	"2":  event.SigInterrupt,
	"3":  event.SigQuit,
	"15": event.SigTerminate,
	"10": event.SigUser1,
	"12": event.SigUser2,
	"18": event.SigContinue,
	"19": event.SigSuspend,
	"20": event.SigTerminalSuspend,
}

// Parse normalises a user-supplied signal spelling such as "SIGTERM",
// "term", or "15" into an event.SignalName. ok is false for unrecognised
// input.
func Parse(s string) (event.SignalName, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	if _, err := strconv.Atoi(trimmed); err == nil {
		name, ok := numericAliases[trimmed]
		return name, ok
	}
	upper := strings.ToUpper(trimmed)
	upper = strings.TrimPrefix(upper, "SIG")
	name, ok := aliases[upper]
	return name, ok
}

// MustParse is Parse but panics on invalid input; only used for internal
// constant tables, never on user input (use Parse + werrors.Configuration
// for that).
func MustParse(s string) event.SignalName {
	name, ok := Parse(s)
	if !ok {
		panic("signame: invalid signal " + s)
	}
	return name
}

// String renders name back to its canonical "SIGXXXX" spelling, used for
// logging and for forwarding to child-facing diagnostics.
func String(name event.SignalName) string {
	switch name {
	case event.SigHangup:
		return "SIGHUP"
	case event.SigInterrupt:
		return "SIGINT"
	case event.SigQuit:
		return "SIGQUIT"
	case event.SigTerminate:
		return "SIGTERM"
	case event.SigUser1:
		return "SIGUSR1"
	case event.SigUser2:
		return "SIGUSR2"
	case event.SigContinue:
		return "SIGCONT"
	case event.SigSuspend:
		return "SIGSTOP"
	case event.SigTerminalSuspend:
		return "SIGTSTP"
	default:
		return string(name)
	}
}

// IsTerminating reports whether name is one of the signals that, when
// unmapped, causes the watcher itself to exit gracefully per spec §4.5
// ("Unmapped interrupt/terminate cause watcher exit").
func IsTerminating(name event.SignalName) bool {
	return name == event.SigInterrupt || name == event.SigTerminate
}
