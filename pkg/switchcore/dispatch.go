package switchcore

import (
	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/queue"
	"github.com/chaseleif/starswitch/internal/wire"
)

// sendReply writes a 16-byte header back to the connection owned by peer
// `to`. Replies always travel to the peer that originated the exchange,
// never to the frame's nominal destination field.
func (s *Switch) sendReply(to int, h wire.Header) error {
	return netio.SendAll(s.peers[to].conn, wire.Marshal(h))
}

func (s *Switch) sendAccept(src, dst int) {
	h := wire.NewDataHeader(uint32(src), uint32(dst), 0, 1)
	if err := s.sendReply(src, h); err != nil {
		s.logger.WithError(err).Warnf("accept reply to %d failed", src)
		s.disconnect(src)
	}
}

func (s *Switch) sendReject(src, dst int) {
	h := wire.NewDataHeader(uint32(src), uint32(dst), 0, 0)
	if err := s.sendReply(src, h); err != nil {
		s.logger.WithError(err).Warnf("reject reply to %d failed", src)
		s.disconnect(src)
	}
}

// handleSignal reads one header from id with recv_try semantics and
// dispatches it. A would-block here means the readiness signal raced
// with the peer's own write buffering; it is logged at Debug and treated
// as a no-op rather than an error, per clarified handling of recv_try
// short reads.
func (s *Switch) handleSignal(id int) {
	buf := make([]byte, wire.HeaderSize)
	_, err := netio.RecvTry(s.peers[id].conn, buf)
	if err != nil {
		if err == netio.ErrWouldBlock {
			s.logger.Debugf("recv_try on sp %d came back empty", id)
			return
		}
		s.logger.WithError(err).Warnf("read from %d failed", id)
		s.disconnect(id)
		return
	}
	s.dispatch(id, wire.Decode(buf))
}

// dispatch interprets one header received from peer id: a quit-ready
// notice, a wait notice, a malformed-destination request, or a live data
// transfer request. It never blocks the main loop; every branch either
// replies immediately or queues state for a later promotion.
func (s *Switch) dispatch(id int, h wire.Header) {
	if wire.IsSelfDirected(h, uint32(id)) {
		if h.Total() == 0 {
			s.doneCount++
			s.logger.Infof("sp %d signaled quit-ready (%d/%d done)", id, s.doneCount, s.n)
			return
		}
		s.peers[id].waiting = true
		return
	}

	dst := int(h.Dst)
	if dst < 0 || dst >= s.n {
		s.logger.Warnf("sp %d sent malformed destination %d, rejecting", id, h.Dst)
		s.sendReject(id, id+1)
		return
	}

	total := h.Total()
	if total == 0 {
		s.logger.Warnf("sp %d sent a zero-byte transfer request to %d, rejecting", id, dst)
		s.sendReject(id, dst)
		return
	}
	if idx := s.dataQ.FindFree(); idx >= 0 && s.peers[dst].connected {
		s.dataQ.Admit(idx, queue.DataEntry{Src: id, Dst: dst, Remaining: wire.AdmittedSize(total)})
		s.sendAccept(id, dst)
		return
	}
	if s.reqQ.Push(queue.RequestEntry{Src: id, Dst: dst, Total: total}) {
		return
	}
	s.sendReject(id, dst)
}

// maybeBreakDeadlock fires when a poll timeout finds every not-yet-done
// peer connected and blocked in a wait notice (waiting + done == n; a
// disconnected, not-done peer prevents it): it wakes every waiter with
// a nonzero self-directed frame so the simulation can make forward
// progress instead of hanging forever.
func (s *Switch) maybeBreakDeadlock() {
	waiting := 0
	for i := range s.peers {
		if s.peers[i].connected && s.peers[i].waiting {
			waiting++
		}
	}
	if waiting == 0 || waiting+s.doneCount != s.n {
		return
	}
	for i := range s.peers {
		if !s.peers[i].connected || !s.peers[i].waiting {
			continue
		}
		h := wire.NewDataHeader(uint32(i), uint32(i), 0, 1)
		if err := s.sendReply(i, h); err != nil {
			s.logger.WithError(err).Warnf("wake to %d failed", i)
			s.disconnect(i)
			continue
		}
		s.peers[i].waiting = false
		s.logger.Infof("woke sp %d to break deadlock", i)
	}
}
