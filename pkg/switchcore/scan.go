package switchcore

// fdSet is the per-iteration list of file descriptors handed to the
// poller, alongside a lookup from peer id (or -1 for the listener) to
// that fd's index in the ready slice the poller returns.
type fdSet struct {
	fds      []int
	indexOf  map[int]int // peer id -> index; listener uses id -1
}

// buildFDSet lists the listener (while still accepting new peers) and
// every currently connected peer.
func (s *Switch) buildFDSet() fdSet {
	set := fdSet{indexOf: make(map[int]int, len(s.peers)+1)}
	if s.connectionsNeeded > 0 {
		set.indexOf[-1] = len(set.fds)
		set.fds = append(set.fds, s.listenerFD)
	}
	for id := range s.peers {
		if !s.peers[id].connected {
			continue
		}
		set.indexOf[id] = len(set.fds)
		set.fds = append(set.fds, s.peers[id].fd)
	}
	return set
}

// scan walks the peer table in round-robin order starting at s.cursor,
// looking for the first peer that is both readiness-signalled and has a
// live data-queue entry (a forward candidate), while separately noting
// the very first readiness-signalled peer encountered regardless of
// data-queue membership (a signal/request candidate). One pass serves
// both the forwarding and signal/request branches of the main loop.
func (s *Switch) scan(ready []bool, set fdSet) (forwardID, dataIdx, readyID int, hasForward, hasReady bool) {
	for step := 0; step < s.n; step++ {
		id := (s.cursor + step) % s.n
		if !s.peers[id].connected {
			continue
		}
		idx, ok := set.indexOf[id]
		if !ok || !ready[idx] {
			continue
		}
		if !hasReady {
			readyID = id
			hasReady = true
		}
		if j := s.dataQ.FindBySrc(id); j >= 0 {
			forwardID, dataIdx, hasForward = id, j, true
			return
		}
	}
	return
}
