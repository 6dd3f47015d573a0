// Package netio implements the blocking framed I/O helpers shared by the
// CSP and the SPs: send-all / receive-all loops that tolerate transient
// would-block conditions by retrying, a readiness poller built on poll(2),
// and a best-effort TCP tuning hook.
package netio

import (
	"io"
	"net"
	"time"
)

// DefaultRetryDelay is the spec's "delay one second, retry" interval for
// transient would-block conditions on SendAll and RecvAll.
const DefaultRetryDelay = time.Second

// SendAll writes every byte of buf to conn, retrying after DefaultRetryDelay
// on a transient timeout and failing on any other error or on a write that
// makes no progress.
func SendAll(conn net.Conn, buf []byte) error {
	written := 0
	defer conn.SetWriteDeadline(time.Time{})
	for written < len(buf) {
		conn.SetWriteDeadline(time.Now().Add(DefaultRetryDelay))
		n, err := conn.Write(buf[written:])
		written += n
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrShortWrite
		}
	}
	return nil
}

// RecvAll reads exactly len(buf) bytes into buf, retrying after
// DefaultRetryDelay on a transient timeout and failing on any other read
// error or EOF.
func RecvAll(conn net.Conn, buf []byte) error {
	read := 0
	defer conn.SetReadDeadline(time.Time{})
	for read < len(buf) {
		conn.SetReadDeadline(time.Now().Add(DefaultRetryDelay))
		n, err := conn.Read(buf[read:])
		read += n
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// RecvTry reads exactly len(buf) bytes the way RecvAll does, except the
// first transient timeout fails the call immediately with ErrWouldBlock
// instead of retrying. Used to probe a socket that a readiness poll has
// already selected, where any further blocking would stall the whole
// switch loop.
func RecvTry(conn net.Conn, buf []byte) (int, error) {
	const probe = 20 * time.Millisecond
	read := 0
	defer conn.SetReadDeadline(time.Time{})
	for read < len(buf) {
		conn.SetReadDeadline(time.Now().Add(probe))
		n, err := conn.Read(buf[read:])
		read += n
		if err != nil {
			if isTimeout(err) {
				return read, ErrWouldBlock
			}
			if err == io.EOF {
				return read, io.ErrUnexpectedEOF
			}
			return read, err
		}
	}
	return read, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
