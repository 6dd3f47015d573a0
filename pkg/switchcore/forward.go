package switchcore

import (
	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/queue"
	"github.com/chaseleif/starswitch/internal/wire"
)

// forwardChunk reads exactly one chunk (up to MaxFrameSize bytes) of a
// live data-queue entry's remaining payload from its source and relays it
// unchanged to its destination, freeing the slot once Remaining reaches
// zero. A transport error on either leg drops the offending peer.
func (s *Switch) forwardChunk(src, dataIdx int) {
	entry := s.dataQ.Get(dataIdx)
	chunk := entry.Remaining
	if chunk > wire.MaxFrameSize {
		chunk = wire.MaxFrameSize
	}
	buf := entry.Scratch[:chunk]

	if err := netio.RecvAll(s.peers[src].conn, buf); err != nil {
		s.logger.WithError(err).Warnf("read chunk from %d failed", src)
		s.disconnect(src)
		return
	}

	dst := entry.Dst
	if !s.peers[dst].connected {
		s.logger.Warnf("dropping chunk for disconnected peer %d", dst)
		s.dataQ.MarkFree(dataIdx)
		return
	}
	if err := netio.SendAll(s.peers[dst].conn, buf); err != nil {
		s.logger.WithError(err).Warnf("write chunk to %d failed", dst)
		s.disconnect(dst)
		return
	}

	entry.Remaining -= chunk
	s.peers[src].forwardedBytes += chunk
	if entry.Remaining == 0 {
		s.dataQ.MarkFree(dataIdx)
	}
}

// promoteUntilDry repeatedly tries to move the front of the request
// queue into a free data-queue slot, sending the requester an accept
// reply on every successful promotion, until neither queue can make
// further progress. A request whose destination isn't connected yet, or
// for which no data slot is free, is left in place rather than dropped.
func (s *Switch) promoteUntilDry() {
	for {
		front, ok := s.reqQ.Front()
		if !ok {
			return
		}
		if !s.peers[front.Dst].connected {
			return
		}
		idx := s.dataQ.FindFree()
		if idx < 0 {
			return
		}
		s.reqQ.PopFront()
		admitted := wire.AdmittedSize(front.Total)
		s.dataQ.Admit(idx, queue.DataEntry{Src: front.Src, Dst: front.Dst, Remaining: admitted})
		s.sendAccept(front.Src, front.Dst)
	}
}
