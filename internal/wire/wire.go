// Package wire packs and unpacks the fixed 16-byte frame header shared by
// the CSP and every SP: two 32-bit big-endian integers (src, dst) followed
// by either one 64-bit integer (an initial request's total size) or two
// 32-bit integers (a data frame's sequence number and payload length).
package wire

import "encoding/binary"

const (
	// HeaderSize is the fixed length of every frame header on the wire.
	HeaderSize = 16
	// MaxFrameSize is the largest frame the CSP will ever forward in one
	// chunk, header included.
	MaxFrameSize = 4096
	// MaxDataSize is the largest payload that fits in a single chunk once
	// the header is accounted for.
	MaxDataSize = MaxFrameSize - HeaderSize
)

// Header is the decoded form of a 16-byte frame header. The trailing 8
// bytes are interpreted either as a single 64-bit total size (request/
// handshake/wait/quit forms) or as two 32-bit fields, Seq and PayloadLen
// (data-frame form). Callers pick the accessor that matches the context;
// both views address the same underlying bytes.
type Header struct {
	Src uint32
	Dst uint32
	A   uint32
	B   uint32
}

// Total interprets the trailing 8 bytes as a big-endian uint64.
func (h Header) Total() uint64 {
	return uint64(h.A)<<32 | uint64(h.B)
}

// WithTotal returns a copy of h with the trailing 8 bytes set from total.
func (h Header) WithTotal(total uint64) Header {
	h.A = uint32(total >> 32)
	h.B = uint32(total)
	return h
}

// Seq returns the sequence-number field of a data frame header.
func (h Header) Seq() uint32 { return h.A }

// PayloadLen returns the payload-length field of a data frame header.
func (h Header) PayloadLen() uint32 { return h.B }

// NewDataHeader builds a data-frame/signal-form header from its four parts.
func NewDataHeader(src, dst, seq, payloadLen uint32) Header {
	return Header{Src: src, Dst: dst, A: seq, B: payloadLen}
}

// NewTotalHeader builds an initial-request-form header carrying a 64-bit
// total size in the trailing 8 bytes.
func NewTotalHeader(src, dst uint32, total uint64) Header {
	return Header{Src: src, Dst: dst}.WithTotal(total)
}

// Encode writes h into buf as 16 big-endian bytes. buf must be at least
// HeaderSize bytes long.
func Encode(buf []byte, h Header) {
	binary.BigEndian.PutUint32(buf[0:4], h.Src)
	binary.BigEndian.PutUint32(buf[4:8], h.Dst)
	binary.BigEndian.PutUint32(buf[8:12], h.A)
	binary.BigEndian.PutUint32(buf[12:16], h.B)
}

// Marshal is a convenience wrapper around Encode that allocates its own
// buffer.
func Marshal(h Header) []byte {
	buf := make([]byte, HeaderSize)
	Encode(buf, h)
	return buf
}

// Decode reads a Header from the first HeaderSize bytes of buf.
func Decode(buf []byte) Header {
	return Header{
		Src: binary.BigEndian.Uint32(buf[0:4]),
		Dst: binary.BigEndian.Uint32(buf[4:8]),
		A:   binary.BigEndian.Uint32(buf[8:12]),
		B:   binary.BigEndian.Uint32(buf[12:16]),
	}
}

// IsSelfDirected reports whether the header is one of the self-addressed
// signal forms (handshake, wait notice, wait wake, quit-ready/confirm),
// i.e. src == dst == id.
func IsSelfDirected(h Header, id uint32) bool {
	return h.Src == id && h.Dst == id
}

// AdmittedSize computes the number of bytes (header + payload, over every
// chunk) that a transfer of payload bytes consumes once admitted into a
// data-queue slot: payload + HeaderSize * ceil(payload / MaxDataSize).
func AdmittedSize(payload uint64) uint64 {
	chunks := (payload + MaxDataSize - 1) / MaxDataSize
	return payload + HeaderSize*chunks
}
