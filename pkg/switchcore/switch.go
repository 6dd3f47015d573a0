// Package switchcore implements the Communication Switch Process: the
// central arbiter that admits, queues, and forwards unicast transfers
// between Station Processes over TCP.
package switchcore

import (
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/queue"
	"github.com/chaseleif/starswitch/internal/wire"
	"github.com/chaseleif/starswitch/pkg/config"
)

// ErrInvalidHandshake is returned by Run when the very first connection's
// initial frame fails validation: src != dst, id out of range, or the
// announced cluster size is nonsensical. Startup is aborted before the
// simulation begins, per the protocol-violation error policy.
var ErrInvalidHandshake = errors.New("switchcore: invalid initial handshake")

type peerState struct {
	conn           net.Conn
	fd             int
	connected      bool
	waiting        bool
	forwardedBytes uint64
}

// Switch holds all state for one running CSP: the peer table, the two
// bounded queues, and the round-robin cursor. It is not safe for
// concurrent use; Run owns it for its entire lifetime.
type Switch struct {
	cfg    config.Config
	logger *logrus.Entry
	tuning netio.TuneOptions

	listener   *net.TCPListener
	listenerFD int

	n                 int
	peers             []peerState
	reqQ              *queue.RequestQueue
	dataQ             *queue.DataQueue
	doneCount         int
	connectionsNeeded int
	cursor            int

	// OnListening, if set, is invoked once with the listener's actual
	// address right after bind, before Run blocks waiting for the first
	// SP to connect. Tests use it to discover an ephemeral port; it is
	// nil in normal operation.
	OnListening func(addr string)
}

// New creates a Switch. logger should already carry whatever fields the
// caller wants attached to every log line (component="csp" is conventional).
func New(cfg config.Config, logger *logrus.Entry, tuning netio.TuneOptions) *Switch {
	return &Switch{cfg: cfg, logger: logger, tuning: tuning}
}

// Run listens on addr, blocks for the first connection to learn the
// cluster size, and then drives the main admission/forwarding loop until
// every SP has sent quit-ready. It returns nil on a clean shutdown.
func (s *Switch) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("csp: listen %s: %w", addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("csp: listener is not a TCP listener")
	}
	s.listener = tcpLn
	s.listenerFD, err = netio.FD(tcpLn)
	if err != nil {
		ln.Close()
		return fmt.Errorf("csp: listener fd: %w", err)
	}
	if s.OnListening != nil {
		s.OnListening(tcpLn.Addr().String())
	}

	if err := s.awaitFirstConnection(); err != nil {
		ln.Close()
		return err
	}

	s.logger.Infof("cluster size %d announced, entering main loop", s.n)
	err = s.mainLoop()
	s.shutdown()
	return err
}

// awaitFirstConnection blocks for the very first SP to connect and
// announce the cluster size, allocating every per-peer structure once N is
// known. A failure here aborts startup entirely, per spec's
// protocol-violation policy.
func (s *Switch) awaitFirstConnection() error {
	conn, err := s.listener.Accept()
	if err != nil {
		return fmt.Errorf("csp: accept first connection: %w", err)
	}
	netio.Tune(conn, s.tuning)

	buf := make([]byte, wire.HeaderSize)
	if err := netio.RecvAll(conn, buf); err != nil {
		conn.Close()
		return fmt.Errorf("csp: read initial handshake: %w", err)
	}
	h := wire.Decode(buf)
	n := int(h.Total())
	id := int(h.Src)
	if h.Src != h.Dst || n <= 0 || n > 256 || id < 0 || id >= n {
		conn.Close()
		return fmt.Errorf("%w: src=%d dst=%d n=%d", ErrInvalidHandshake, h.Src, h.Dst, n)
	}

	s.n = n
	s.peers = make([]peerState, n)
	s.reqQ = queue.NewRequestQueue(s.cfg.RequestQueueSize)
	s.dataQ = queue.NewDataQueue(s.cfg.DataQueueSize)
	s.connectionsNeeded = n - 1

	fd, err := netio.FD(conn.(*net.TCPConn))
	if err != nil {
		conn.Close()
		return fmt.Errorf("csp: peer fd: %w", err)
	}
	s.peers[id] = peerState{conn: conn, fd: fd, connected: true}
	s.logger.Infof("accepted peer %d (1/%d connected)", id, n)
	return nil
}

// validHandshake checks a subsequent (post-startup) connection's initial
// frame against the rules established by the first connection.
func (s *Switch) validHandshake(h wire.Header) bool {
	id := int(h.Src)
	return h.Src == h.Dst && id >= 0 && id < s.n && h.Total() == uint64(s.n)
}

// acceptOne accepts exactly one pending connection on the listener and, if
// its handshake is valid, installs it into the peer table. Failures here
// are logged and the connection dropped; they never abort the switch.
func (s *Switch) acceptOne() {
	conn, err := s.listener.Accept()
	if err != nil {
		s.logger.WithError(err).Warn("accept failed")
		return
	}
	netio.Tune(conn, s.tuning)

	buf := make([]byte, wire.HeaderSize)
	if err := netio.RecvAll(conn, buf); err != nil {
		s.logger.WithError(err).Warn("read handshake failed, dropping connection")
		conn.Close()
		return
	}
	h := wire.Decode(buf)
	if !s.validHandshake(h) {
		s.logger.Warnf("rejected malformed handshake src=%d dst=%d total=%d", h.Src, h.Dst, h.Total())
		conn.Close()
		return
	}

	id := int(h.Src)
	fd, err := netio.FD(conn.(*net.TCPConn))
	if err != nil {
		s.logger.WithError(err).Warn("peer fd failed, dropping connection")
		conn.Close()
		return
	}
	s.peers[id] = peerState{conn: conn, fd: fd, connected: true}
	s.connectionsNeeded--
	s.logger.Infof("accepted peer %d (%d/%d connected)", id, s.n-s.connectionsNeeded, s.n)
}

// disconnect drops a peer after a transport-fatal error: it closes the
// connection, marks it unconnected, and frees any data-queue slot it
// owned so the switch doesn't stall waiting on a dead socket. Per the
// Non-goals, there is no reconnect.
func (s *Switch) disconnect(id int) {
	if !s.peers[id].connected {
		return
	}
	s.peers[id].conn.Close()
	s.peers[id].connected = false
	s.peers[id].waiting = false
	if j := s.dataQ.FindBySrc(id); j >= 0 {
		s.dataQ.MarkFree(j)
	}
	s.logger.Warnf("dropped peer %d", id)
}

// shutdown sends every connected peer a quit confirmation, logs the
// per-peer forwarded-byte totals (a feature carried over from the
// original reference's exit summary), and closes all sockets.
func (s *Switch) shutdown() {
	for i := range s.peers {
		if !s.peers[i].connected {
			continue
		}
		h := wire.NewDataHeader(uint32(i), uint32(i), 0, 0)
		if err := netio.SendAll(s.peers[i].conn, wire.Marshal(h)); err != nil {
			s.logger.WithError(err).Warnf("quit confirm to %d failed", i)
		}
		s.peers[i].conn.Close()
		s.logger.Infof("sp %d forwarded %d bytes total", i, s.peers[i].forwardedBytes)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.logger.Info("Ending simulation")
}
