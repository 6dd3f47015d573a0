package netio

import "errors"

var (
	// ErrWouldBlock is returned by RecvTry when no data is available yet.
	ErrWouldBlock = errors.New("netio: would block")
	// ErrShortWrite is returned by SendAll when the peer stops accepting
	// bytes without ever reporting a hard error.
	ErrShortWrite = errors.New("netio: short write")
)
