package station

import (
	"time"

	"github.com/chaseleif/starswitch/internal/backoff"
	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/wire"
)

// pollInbound makes one non-blocking attempt to read a header from the
// switch and, if one arrived, dispatches it. acted is false only when
// nothing was available (netio.ErrWouldBlock). Used whenever there is
// still outbound work this station could otherwise be doing.
func (st *Station) pollInbound() (acted bool, err error) {
	buf := make([]byte, wire.HeaderSize)
	if _, err := netio.RecvTry(st.conn, buf); err != nil {
		if err == netio.ErrWouldBlock {
			return false, nil
		}
		return false, err
	}
	return true, st.dispatchHeader(wire.Decode(buf))
}

// blockingReceiveOnce waits for exactly one header with recv_all
// semantics. It is used instead of pollInbound whenever this station has
// nothing else to do but wait: a Wait directive still outstanding
// (StateBlocked) or the quit-ready/quit-confirm exchange (finish).
func (st *Station) blockingReceiveOnce() error {
	buf := make([]byte, wire.HeaderSize)
	if err := netio.RecvAll(st.conn, buf); err != nil {
		return err
	}
	return st.dispatchHeader(wire.Decode(buf))
}

// dispatchHeader routes one decoded header to the self-directed, reply,
// or inbound-data handler, shared by both the non-blocking poll and the
// blocking receive paths.
func (st *Station) dispatchHeader(h wire.Header) error {
	switch {
	case wire.IsSelfDirected(h, uint32(st.id)):
		return st.handleSelfDirected(h)
	case h.Src == uint32(st.id):
		return st.handleReply(h)
	default:
		return st.handleInboundData(h)
	}
}

// handleSelfDirected processes a self-addressed header: either the
// switch's quit confirmation (Total()==0) or a deadlock-break wake
// (nonzero), which unconditionally clears any outstanding wait block.
func (st *Station) handleSelfDirected(h wire.Header) error {
	if h.Total() == 0 {
		st.quitConfirmed = true
		st.logger.Infof("sp %d received quit confirmation", st.id)
		return nil
	}
	st.waitRemaining = 0
	st.state &^= StateBlocked
	st.logger.Infof("sp %d woken to break deadlock", st.id)
	return nil
}

// handleReply processes an accept/reject reply to our own pending
// request: PayloadLen()==1 means accepted, 0 means rejected. A rejected
// request is retried with binary-exponential backoff; the
// backoff.MaxFailCount-th consecutive reject abandons it instead.
func (st *Station) handleReply(h wire.Header) error {
	p := st.pending
	if p == nil {
		st.logger.Warnf("sp %d got a reply with no pending request, ignoring", st.id)
		return nil
	}
	p.awaitingReply = false

	if h.PayloadLen() == 1 {
		p.accepted = true
		p.failCount = 0
		st.logger.Infof("sp %d request to %d accepted", st.id, p.dst)
		return nil
	}

	p.failCount++
	if p.failCount >= backoff.MaxFailCount {
		st.abandon()
		return nil
	}
	delay := st.backoffPolicy.Delay(p.failCount)
	p.nextAttempt = time.Now().Add(delay)
	st.logger.Infof("sp %d request to %d rejected, retrying in %s (attempt %d)", st.id, p.dst, delay, p.failCount)
	return nil
}

// handleInboundData receives the payload of a data frame addressed to us
// and, if a Wait directive is outstanding, counts it against that
// directive's remaining frame count.
func (st *Station) handleInboundData(h wire.Header) error {
	payload := make([]byte, h.PayloadLen())
	if err := netio.RecvAll(st.conn, payload); err != nil {
		return err
	}
	st.logger.Infof("sp %d received %d bytes from %d (seq %d)", st.id, len(payload), h.Src, h.Seq())

	if st.waitRemaining > 0 {
		st.waitRemaining--
		if st.waitRemaining == 0 {
			st.state &^= StateBlocked
		}
	}
	return nil
}
