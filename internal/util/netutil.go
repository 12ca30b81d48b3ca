package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/net/netutil"
	"golang.org/x/sys/unix"
)

// ListenFdsEnvKey is the environment variable carrying inherited listening socket FDs,
// as colon-separated numbers.
const ListenFdsEnvKey = "LISTEN_FDS"

// SetCloexec sets or clears the close-on-exec flag for a file descriptor.
func SetCloexec(fd uintptr, enabled bool) error {
	flags, err := unix.FcntlInt(fd, unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("fcntl F_GETFD failed for fd %d: %w", fd, err)
	}
	if enabled {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}
	if _, err := unix.FcntlInt(fd, unix.F_SETFD, flags); err != nil {
		return fmt.Errorf("fcntl F_SETFD failed for fd %d: %w", fd, err)
	}
	return nil
}

// CreateListener creates a TCP listener on address. With reusePort, SO_REUSEPORT is set
// on the socket before bind so several processes can share the port.
func CreateListener(network, address string, reusePort bool) (net.Listener, error) {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil, fmt.Errorf("unsupported network type: %s, only 'tcp', 'tcp4', or 'tcp6' are supported for CreateListener", network)
	}

	lc := net.ListenConfig{}
	if reusePort {
		lc.Control = func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		}
	}

	l, err := lc.Listen(context.Background(), network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s %s: %w", network, address, err)
	}
	return l, nil
}

// NewListenerFromFD creates a net.Listener from an inherited file descriptor. The
// listener owns a close-on-exec duplicate and fd itself is closed.
func NewListenerFromFD(fd uintptr) (net.Listener, error) {
	file := os.NewFile(fd, fmt.Sprintf("listener-from-fd-%d", fd))
	if file == nil {
		return nil, fmt.Errorf("os.NewFile returned nil for FD %d", fd)
	}
	// net.FileListener dups the descriptor; the original is closed with file.
	listener, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("net.FileListener failed for FD %d: %w", fd, err)
	}
	return listener, nil
}

// ParseInheritedListenerFDs retrieves the file descriptor numbers listed in the given
// environment variable. An unset or empty variable yields no FDs.
func ParseInheritedListenerFDs(envVarName string) ([]uintptr, error) {
	fdsEnv := os.Getenv(envVarName)
	if fdsEnv == "" {
		return nil, nil
	}

	fdStrings := strings.Split(fdsEnv, ":")
	fds := make([]uintptr, 0, len(fdStrings))
	for _, fdStr := range fdStrings {
		fdInt, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, fmt.Errorf("invalid FD number in environment variable %s (value: %q): %s (%w)", envVarName, fdsEnv, fdStr, err)
		}
		if fdInt < 0 {
			return nil, fmt.Errorf("invalid negative FD number in environment variable %s (value: %q): %d", envVarName, fdsEnv, fdInt)
		}
		fds = append(fds, uintptr(fdInt))
	}
	return fds, nil
}

// InheritedListener returns a listener built from the first FD in LISTEN_FDS, or nil
// when the variable is not set. The remaining FDs are not served and are marked
// close-on-exec so they do not leak into child processes.
func InheritedListener() (net.Listener, error) {
	fds, err := ParseInheritedListenerFDs(ListenFdsEnvKey)
	if err != nil || len(fds) == 0 {
		return nil, err
	}
	for _, fd := range fds[1:] {
		if err := SetCloexec(fd, true); err != nil {
			return nil, fmt.Errorf("failed to mark unused inherited FD %d close-on-exec: %w", fd, err)
		}
	}
	return NewListenerFromFD(fds[0])
}

// LimitListener caps the number of simultaneously accepted connections on l.
// max <= 0 returns l unchanged.
func LimitListener(l net.Listener, max int) net.Listener {
	if max <= 0 {
		return l
	}
	return netutil.LimitListener(l, max)
}

// IsAddrInUse checks if the error indicates an "address already in use" condition.
func IsAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, unix.EADDRINUSE) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "address already in use")
}
