package netio

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// TuneOptions are OS-level hints applied to a freshly accepted or dialed
// TCP connection. None of them affect correctness: a platform that
// rejects one of these calls is simply left with its default behavior.
type TuneOptions struct {
	KeepAlive       bool
	KeepAlivePeriod time.Duration
	// RecvLowWatermark, when > 0, sets SO_RCVLOWAT: the kernel won't wake
	// a blocked reader until at least this many bytes are buffered. Useful
	// as a hint when chunks are read in large, known-size pieces.
	RecvLowWatermark int
}

// DefaultTuneOptions mirrors the conservative defaults the reference
// implementation hints at: keepalive on, no low-watermark tuning.
var DefaultTuneOptions = TuneOptions{KeepAlive: true, KeepAlivePeriod: 30 * time.Second}

// Tune applies opts to conn on a best-effort basis. Every failure is
// swallowed: these are OS hints, never load-bearing for correctness.
func Tune(conn net.Conn, opts TuneOptions) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if opts.KeepAlive {
		_ = tc.SetKeepAlive(true)
		if opts.KeepAlivePeriod > 0 {
			_ = tc.SetKeepAlivePeriod(opts.KeepAlivePeriod)
		}
	}
	if opts.RecvLowWatermark > 0 {
		fd, err := FD(tc)
		if err != nil {
			return
		}
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVLOWAT, opts.RecvLowWatermark)
	}
}
