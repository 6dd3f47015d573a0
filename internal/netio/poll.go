package netio

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// FD extracts the underlying file descriptor of a *net.TCPConn or
// *net.TCPListener so it can be handed to unix.Poll. Both types implement
// syscall.Conn via SyscallConn.
func FD(c syscall.Conn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	ctrlErr := raw.Control(func(fdv uintptr) {
		fd = int(fdv)
	})
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

// WaitReadable polls fds for readability (or hangup/error, which the
// caller's subsequent read will surface as EOF) with the given timeout.
// A zero-length fds slice still honors the timeout. Ready[i] corresponds
// to fds[i]. timedOut is true when the call returned because the timeout
// elapsed rather than because any fd became ready.
func WaitReadable(fds []int, timeout time.Duration) (ready []bool, timedOut bool, err error) {
	pollfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	timeoutMs := int(timeout / time.Millisecond)
	n, err := unix.Poll(pollfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			// Treat a signal interruption as a spurious wakeup: nothing ready yet.
			return make([]bool, len(fds)), false, nil
		}
		return nil, false, err
	}

	ready = make([]bool, len(fds))
	if n == 0 {
		return ready, true, nil
	}
	for i, pfd := range pollfds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			ready[i] = true
		}
	}
	return ready, false, nil
}
