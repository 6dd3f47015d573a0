package netio

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAllRecvAllRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte("hello, frame")
	done := make(chan error, 1)
	go func() {
		done <- SendAll(client, payload)
	}()

	got := make([]byte, len(payload))
	require.NoError(t, RecvAll(server, got))
	assert.Equal(t, payload, got)
	require.NoError(t, <-done)
}

func TestRecvTryWouldBlock(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	buf := make([]byte, 4)
	_, err := RecvTry(server, buf)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestRecvTrySucceedsWhenDataReady(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_ = SendAll(client, []byte("data"))
	}()
	time.Sleep(10 * time.Millisecond)

	buf := make([]byte, 4)
	n, err := RecvTry(server, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "data", string(buf))
}

func TestWaitReadableTCPLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	tcpLn := ln.(*net.TCPListener)

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptedCh <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn := <-acceptedCh
	defer serverConn.Close()

	listenerFD, err := FD(tcpLn)
	require.NoError(t, err)

	// Nothing written yet: listener not ready, should time out.
	ready, timedOut, err := WaitReadable([]int{listenerFD}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, timedOut)
	assert.False(t, ready[0])

	// Now make the server connection's fd readable.
	serverFD, err := FD(serverConn.(*net.TCPConn))
	require.NoError(t, err)
	_, err = clientConn.Write([]byte("x"))
	require.NoError(t, err)

	ready, timedOut, err = WaitReadable([]int{serverFD}, time.Second)
	require.NoError(t, err)
	assert.False(t, timedOut)
	assert.True(t, ready[0])
}
