//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/watchexec/corewatch/internal/event"
)

// applyGroup configures cmd's process-group discipline for mode, per spec
// §4.6 "Unix uses setsid or setpgid". os/exec pins the field's type to
// syscall.SysProcAttr regardless of which package issues the later kill(2).
func applyGroup(cmd *exec.Cmd, mode GroupMode) {
	switch mode {
	case GroupSession:
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	case GroupProcessGroup:
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	case GroupNone:
		// no SysProcAttr: signals reach only the immediate child.
	}
}

var unixSignals = map[event.SignalName]unix.Signal{
	event.SigHangup:          unix.SIGHUP,
	event.SigInterrupt:       unix.SIGINT,
	event.SigQuit:            unix.SIGQUIT,
	event.SigTerminate:       unix.SIGTERM,
	event.SigUser1:           unix.SIGUSR1,
	event.SigUser2:           unix.SIGUSR2,
	event.SigContinue:        unix.SIGCONT,
	event.SigSuspend:         unix.SIGSTOP,
	event.SigTerminalSuspend: unix.SIGTSTP,
}

// target resolves pid to the kill(2) target for mode: the PID itself when
// grouping is disabled, or the negative PID (process-group id, since setpgid
// makes the leader's PID equal its PGID) to reach the whole group.
func target(pid int, mode GroupMode) int {
	if mode == GroupNone {
		return pid
	}
	return -pid
}

// deliverSignal sends name to pid (or its process group, per mode).
func deliverSignal(pid int, mode GroupMode, name event.SignalName) error {
	sig, ok := unixSignals[name]
	if !ok {
		sig = unix.SIGTERM
	}
	return unix.Kill(target(pid, mode), sig)
}

// forceKill sends SIGKILL to pid (or its process group, per mode).
func forceKill(pid int, mode GroupMode) error {
	return unix.Kill(target(pid, mode), unix.SIGKILL)
}
