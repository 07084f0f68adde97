//go:build windows

package supervisor

import (
	"os"
	"os/exec"

	"github.com/watchexec/corewatch/internal/event"
)

// applyGroup on Windows is a no-op at spawn time. Real group-wide signal
// delivery on Windows requires assigning the child to a Job Object and
// routing stop requests through TerminateJobObject/GenerateConsoleCtrlEvent
// rather than os.Process.Kill; that integration is not implemented in this
// build (documented limitation, not exercised by the Linux-hosted tests).
func applyGroup(cmd *exec.Cmd, mode GroupMode) {}

// deliverSignal has no general signal-delivery equivalent on Windows outside
// a Job Object: interrupt/terminate are approximated as Process.Kill, and
// any other signal name is reported unsupported.
func deliverSignal(pid int, mode GroupMode, name event.SignalName) error {
	if name == event.SigInterrupt || name == event.SigTerminate {
		proc, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		return proc.Kill()
	}
	return errUnsupportedSignal
}

func forceKill(pid int, mode GroupMode) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

var errUnsupportedSignal = &unsupportedSignalError{}

type unsupportedSignalError struct{}

func (*unsupportedSignalError) Error() string {
	return "supervisor: signal delivery unsupported on this platform"
}
