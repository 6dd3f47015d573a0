// Package station implements the Station Process: a command-file-driven
// sender and receiver that speaks the switch's request/accept/retry
// handshake and chunked data transfer protocol over a single TCP
// connection to the switch.
package station

import (
	"context"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaseleif/starswitch/internal/backoff"
	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/script"
	"github.com/chaseleif/starswitch/internal/wire"
	"github.com/chaseleif/starswitch/pkg/config"
)

// FileOpener abstracts the filesystem so tests can substitute in-memory
// file payloads without touching disk. Reader must also implement
// io.Closer; *os.File satisfies this directly.
type FileOpener func(path string) (io.ReadCloser, int64, error)

// Station drives one SP's command file against a single connection to
// the switch. It is not safe for concurrent use.
type Station struct {
	id  int
	n   int
	cfg config.Config

	conn   net.Conn
	logger *logrus.Entry
	parser *script.Parser
	backoffPolicy backoff.Policy
	openFile FileOpener

	state         State
	waitRemaining int
	exhausted     bool
	quitConfirmed bool

	// idleSlot is the base duration idle sleeps for; tests override it to
	// keep the coin-flip idle tick from actually costing a real second.
	idleSlot time.Duration

	pending *outbound
}

// outbound tracks one accepted-or-pending data transfer request this
// station initiated.
type outbound struct {
	directiveSeq int // the S in "Frame S, To SP D"; logged when the request is sent
	dst          int
	total        uint64
	failCount    int
	accepted     bool

	// awaitingReply is true from the moment a request (or resend) is
	// written until its accept/reject reply is processed, so
	// driveOutbound never sends a second copy while one is already in
	// flight.
	awaitingReply bool
	nextAttempt   time.Time

	remaining uint64
	seqNo     uint32
	reader    io.Reader
	closer    io.Closer
}

// New builds a Station for SP id within a cluster of size n. commands is
// the already-open command file (or an interactive console reader);
// openFile is used as given for file payloads (cmd/sp passes one built on
// os.Open); New supplies no default.
func New(id, n int, cfg config.Config, logger *logrus.Entry, commands io.Reader, openFile FileOpener) *Station {
	seed := rand.NewSource(time.Now().UnixNano() + int64(id))
	return &Station{
		id:            id,
		n:             n,
		cfg:           cfg,
		logger:        logger,
		parser:        script.NewParser(commands),
		openFile:      openFile,
		backoffPolicy: backoff.NewPolicy(seed).WithSlot(cfg.BackoffSlot),
		idleSlot:      time.Second,
	}
}

// Dial connects to addr and performs the initial handshake announcing
// this SP's id and the cluster size.
func (st *Station) Dial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	netio.Tune(conn, netio.DefaultTuneOptions)
	st.conn = conn
	h := wire.NewTotalHeader(uint32(st.id), uint32(st.id), uint64(st.n))
	return netio.SendAll(conn, wire.Marshal(h))
}

// Run drives the command file to completion: sending frames, waiting on
// requested inbound counts, retrying rejected requests with backoff, and
// finally signaling quit-ready and waiting for the switch's confirmation.
func (st *Station) Run(ctx context.Context) error {
	defer st.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if st.pending != nil {
			if err := st.driveOutbound(); err != nil {
				return err
			}
		}

		if st.state.has(StateBlocked) {
			if err := st.blockingReceiveOnce(); err != nil {
				return err
			}
			continue
		}

		acted, err := st.pollInbound()
		if err != nil {
			return err
		}
		if acted {
			continue
		}

		if st.pending == nil {
			advanced, err := st.advanceScript()
			if err != nil {
				return err
			}
			if advanced {
				continue
			}
		}

		if st.readyToFinish() {
			return st.finish()
		}

		st.idle()
	}
}

// readyToFinish reports whether the command file is exhausted, nothing
// is pending, and no Wait directive is still outstanding.
func (st *Station) readyToFinish() bool {
	return st.exhausted && st.pending == nil && st.waitRemaining == 0 && !st.state.has(StateFinished)
}

// idle sleeps one idleSlot with probability one half, otherwise returns
// immediately, mirroring the original's sigalrm-driven coin-flip tick so
// that not every SP in a cluster polls in lockstep.
func (st *Station) idle() {
	if st.backoffPolicy.Coin() {
		time.Sleep(st.idleSlot)
	}
}
