package switchcore

import "github.com/chaseleif/starswitch/internal/netio"

// mainLoop is the single-threaded poll/dispatch cycle: build the fd set,
// block for readiness or a timeout, then run exactly one of the accept,
// forwarding, or signal/request branches before looping again. It returns
// when every SP has signaled quit-ready, or on an unrecoverable poll error.
func (s *Switch) mainLoop() error {
	for {
		if s.doneCount == s.n {
			return nil
		}

		set := s.buildFDSet()
		ready, timedOut, err := netio.WaitReadable(set.fds, s.cfg.PollTimeout)
		if err != nil {
			return err
		}

		if timedOut {
			s.maybeBreakDeadlock()
			continue
		}

		if s.connectionsNeeded > 0 {
			if lidx, ok := set.indexOf[-1]; ok && ready[lidx] {
				s.acceptOne()
				continue
			}
		}

		forwardID, dataIdx, readyID, hasForward, hasReady := s.scan(ready, set)
		switch {
		case hasForward:
			s.peers[forwardID].waiting = false
			s.forwardChunk(forwardID, dataIdx)
			s.cursor = (forwardID + 1) % s.n
			s.promoteUntilDry()
		case hasReady:
			s.peers[readyID].waiting = false
			s.handleSignal(readyID)
			s.cursor = (readyID + 1) % s.n
			s.promoteUntilDry()
		}
	}
}
