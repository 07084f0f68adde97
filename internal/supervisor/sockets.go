package supervisor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
)

// listenFDsFirstFD is the conventional starting file descriptor number for
// passed sockets (spec §6, "LISTEN_FDS_FIRST_FD (start offset, default 3)").
// Descriptors 0-2 are stdin/stdout/stderr.
const listenFDsFirstFD = 3

// OpenSockets binds one listener per Socket, ready to be handed to a child
// via attachSocketListeners. Sockets are owned by the caller (typically the
// Supervisor) and survive Job restarts — only the inherited descriptor is
// recreated per spawn (spec §4.6, "Sockets remain owned by the supervisor
// across child restarts").
func OpenSockets(specs []Socket) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(specs))
	for _, s := range specs {
		l, err := net.Listen(networkOrDefault(s.Network), s.Address)
		if err != nil {
			for _, opened := range listeners {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("supervisor: open socket %s %s: %w", s.Network, s.Address, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

func networkOrDefault(network string) string {
	if network == "" {
		return "tcp"
	}
	return network
}

// socketFile extracts the inheritable *os.File backing a listener, for the
// net.Listener implementations this package creates (TCP and Unix).
func socketFile(l net.Listener) (*os.File, error) {
	switch t := l.(type) {
	case *net.TCPListener:
		return t.File()
	case *net.UnixListener:
		return t.File()
	default:
		return nil, fmt.Errorf("supervisor: unsupported listener type %T", l)
	}
}

// attachSocketListeners wires cmd.ExtraFiles to the Job's pre-bound
// sockets and sets the LISTEN_FDS/LISTEN_FDS_FIRST_FD environment pair per
// spec §6 "Socket-passing": given already-bound listeners, it appends their
// files to cmd.ExtraFiles (landing at
// listenFDsFirstFD, listenFDsFirstFD+1, ...) and sets the conventional
// environment variables.
func attachSocketListeners(cmd *exec.Cmd, listeners []net.Listener) error {
	if len(listeners) == 0 {
		return nil
	}
	files := make([]*os.File, 0, len(listeners))
	for _, l := range listeners {
		f, err := socketFile(l)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	cmd.ExtraFiles = append(cmd.ExtraFiles, files...)
	cmd.Env = append(cmd.Env,
		"LISTEN_FDS="+strconv.Itoa(len(listeners)),
		"LISTEN_FDS_FIRST_FD="+strconv.Itoa(listenFDsFirstFD),
	)
	return nil
}
