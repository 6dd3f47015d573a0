package station

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/script"
	"github.com/chaseleif/starswitch/internal/wire"
)

// advanceScript pulls and applies the next command-file directive. It
// returns advanced=false once the file is exhausted, recorded on
// st.exhausted so Run can decide when to finish.
func (st *Station) advanceScript() (bool, error) {
	d, err := st.parser.Next()
	if err == io.EOF {
		st.exhausted = true
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch d.Kind {
	case script.KindWait:
		st.waitRemaining += d.WaitCount
		if d.WaitCount > 0 {
			st.state |= StateBlocked
		}
		return true, nil
	case script.KindFrame:
		if err := st.startFrame(d); err != nil {
			return false, err
		}
		return true, nil
	default:
		return true, nil
	}
}

// startFrame opens the directive's payload source, builds the pending
// outbound transfer, and sends its initial request. An empty file is
// skipped entirely: no request is sent, matching the original's
// size==0 short-circuit.
func (st *Station) startFrame(d script.Directive) error {
	var reader io.Reader
	var closer io.Closer
	var total uint64
	var flag State

	switch {
	case d.IsFile:
		f, size, err := st.openFile(d.FilePath)
		if err != nil {
			text := fmt.Sprintf("Error opening: %s", d.FilePath)
			reader = strings.NewReader(text)
			total = uint64(len(text))
			flag = StateText
		} else if size == 0 {
			f.Close()
			st.logger.Infof("sp %d: frame %d, skipping empty file %s", st.id, d.Seq, d.FilePath)
			return nil
		} else {
			reader = f
			closer = f
			total = uint64(size)
			flag = StateFile
		}
	default:
		reader = strings.NewReader(d.Text)
		total = uint64(len(d.Text))
		flag = StateText
	}

	st.state |= flag
	st.pending = &outbound{
		directiveSeq: d.Seq,
		dst:          d.Dst,
		total:        total,
		remaining:    total,
		reader:       reader,
		closer:       closer,
	}
	st.logger.Infof("sp %d: frame %d, request to send %d bytes to sp %d", st.id, d.Seq, total, d.Dst)
	return st.sendRequest()
}

// sendRequest writes the canonical total-size request header. It is used
// both for the first attempt and for every resend: the header is never
// mutated between attempts, only re-sent verbatim.
func (st *Station) sendRequest() error {
	h := wire.NewTotalHeader(uint32(st.id), uint32(st.pending.dst), st.pending.total)
	st.pending.awaitingReply = true
	return netio.SendAll(st.conn, wire.Marshal(h))
}

// driveOutbound advances the currently pending transfer by one step: a
// (re)send of the request while unaccepted, or one more data chunk once
// accepted. It is a no-op while waiting on a reply or a backoff timer.
func (st *Station) driveOutbound() error {
	p := st.pending
	if p.accepted {
		return st.sendNextChunk()
	}
	if p.awaitingReply {
		return nil
	}
	if p.failCount > 0 && time.Now().Before(p.nextAttempt) {
		return nil
	}
	return st.sendRequest()
}

// sendNextChunk streams up to MaxDataSize bytes of the pending transfer's
// remaining payload as one data frame. When the payload is exhausted the
// transfer is considered complete and cleared.
func (st *Station) sendNextChunk() error {
	p := st.pending
	chunkLen := p.remaining
	if chunkLen > wire.MaxDataSize {
		chunkLen = wire.MaxDataSize
	}
	payload := make([]byte, chunkLen)
	if chunkLen > 0 {
		if _, err := io.ReadFull(p.reader, payload); err != nil {
			return err
		}
	}

	h := wire.NewDataHeader(uint32(st.id), uint32(p.dst), p.seqNo, uint32(chunkLen))
	frame := append(wire.Marshal(h), payload...)
	if err := netio.SendAll(st.conn, frame); err != nil {
		return err
	}

	p.seqNo++
	p.remaining -= chunkLen
	if p.remaining == 0 {
		if p.closer != nil {
			p.closer.Close()
		}
		st.state &^= StateText | StateFile
		st.pending = nil
	}
	return nil
}

// abandon gives up on the pending transfer after it has been rejected
// backoff.MaxFailCount times in a row.
func (st *Station) abandon() {
	p := st.pending
	st.logger.Warnf("sp %d abandoning transfer to %d after %d rejects", st.id, p.dst, p.failCount)
	if p.closer != nil {
		p.closer.Close()
	}
	st.state &^= StateText | StateFile
	st.pending = nil
}
