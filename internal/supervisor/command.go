// Package supervisor manages the lifecycle of zero or more commands, each
// run in its own process group, per spec §4.6. Its process-control idiom
// (a monitor goroutine closing a waitDone channel, grace-timeout escalation
// to force-kill, process-group signalling) is adapted from the
// loykin-provisr process supervision code in the retrieval pack.
package supervisor

import (
	"time"

	"github.com/watchexec/corewatch/internal/event"
)

// GroupMode selects how a child's process group is established at launch,
// per spec §3 "Command.Options: grouping mode (group|session|none)".
type GroupMode int

const (
	// GroupNone delivers signals only to the immediate child.
	GroupNone GroupMode = iota
	// GroupProcessGroup (setpgid on Unix) targets the whole tree with signals.
	GroupProcessGroup
	// GroupSession (setsid on Unix) additionally detaches the controlling TTY.
	GroupSession
)

// Program is either a direct executable invocation or a shell command line
// (spec §3 "Program: either (a) a direct executable... or (b) a shell
// spec..."). Exactly one of Direct or Shell is non-nil.
type Program struct {
	Direct *DirectProgram
	Shell  *ShellProgram
}

// DirectProgram runs Path with Args, bypassing any shell.
type DirectProgram struct {
	Path string
	Args []string
}

// ShellProgram runs Command through Shell (e.g. "sh", "-c"), or cmd.exe on
// Windows. Flags are additional shell arguments inserted before the command
// string (e.g. the Windows cmd.exe "/C" positioned before the script).
type ShellProgram struct {
	Shell   string
	Flags   []string
	Command string
}

// Socket describes one pre-bound listening socket inherited by the child,
// per spec §6 "Socket-passing". The supervisor owns the underlying
// os.File/net.Listener across restarts; only the child's inherited
// descriptor is recreated per spawn.
type Socket struct {
	Network string // "tcp", "tcp4", "tcp6", "unix"
	Address string
}

// Options is spec §3's Command.Options: working directory, extra
// environment variables, grouping mode, and inherited listening sockets.
type Options struct {
	WorkDir     string
	Env         map[string]string
	Group       GroupMode
	Sockets     []Socket
	StopSignal  event.SignalName // default event.SigTerminate
	StopTimeout time.Duration    // grace period before force-kill
}

// Command is spec §3's Command: a description of one child process to
// launch, independent of any particular invocation's triggering events.
type Command struct {
	Program Program
	Options Options
}
