package switchcore

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/wire"
	"github.com/chaseleif/starswitch/pkg/config"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

func startSwitch(t *testing.T, cfg config.Config) (addr string, runErr <-chan error) {
	t.Helper()
	sw := New(cfg, testLogger(), netio.TuneOptions{})
	addrCh := make(chan string, 1)
	sw.OnListening = func(a string) { addrCh <- a }
	errCh := make(chan error, 1)
	go func() { errCh <- sw.Run("127.0.0.1:0") }()

	select {
	case a := <-addrCh:
		return a, errCh
	case <-time.After(2 * time.Second):
		t.Fatal("switch never started listening")
		return "", nil
	}
}

func handshake(t *testing.T, addr string, id, n int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write(wire.Marshal(wire.NewTotalHeader(uint32(id), uint32(id), uint64(n))))
	require.NoError(t, err)
	return conn
}

func readHeader(t *testing.T, conn net.Conn) wire.Header {
	t.Helper()
	buf := make([]byte, wire.HeaderSize)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return wire.Decode(buf)
}

func quit(t *testing.T, conn net.Conn, id int) {
	t.Helper()
	_, err := conn.Write(wire.Marshal(wire.NewTotalHeader(uint32(id), uint32(id), 0)))
	require.NoError(t, err)
}

func TestTwoStationHelloDelivery(t *testing.T) {
	cfg := config.Default()
	cfg.PollTimeout = 200 * time.Millisecond
	addr, runErr := startSwitch(t, cfg)

	sp0 := handshake(t, addr, 0, 2)
	sp1 := handshake(t, addr, 1, 2)

	payload := []byte("hello")
	req := wire.NewTotalHeader(0, 1, uint64(len(payload)))
	_, err := sp0.Write(wire.Marshal(req))
	require.NoError(t, err)

	acc := readHeader(t, sp0)
	assert.Equal(t, uint32(1), acc.PayloadLen(), "expected immediate accept")

	frame := append(wire.Marshal(wire.NewDataHeader(0, 1, 0, uint32(len(payload)))), payload...)
	_, err = sp0.Write(frame)
	require.NoError(t, err)

	got := readHeader(t, sp1)
	assert.Equal(t, uint32(len(payload)), got.PayloadLen())
	buf := make([]byte, got.PayloadLen())
	_, err = io.ReadFull(sp1, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf)

	quit(t, sp0, 0)
	quit(t, sp1, 1)

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("switch did not shut down after both quits")
	}
}

func TestMalformedDestinationRejected(t *testing.T) {
	cfg := config.Default()
	cfg.PollTimeout = 200 * time.Millisecond
	addr, _ := startSwitch(t, cfg)

	sp0 := handshake(t, addr, 0, 2)
	_ = handshake(t, addr, 1, 2)

	bad := wire.NewTotalHeader(0, 99, 4)
	_, err := sp0.Write(wire.Marshal(bad))
	require.NoError(t, err)

	reply := readHeader(t, sp0)
	assert.Equal(t, uint32(0), reply.Src)
	assert.Equal(t, uint32(1), reply.Dst, "malformed rejection uses dst = src+1")
}

func TestRequestQueuedThenPromotedOnFree(t *testing.T) {
	cfg := config.Default()
	cfg.DataQueueSize = 1
	cfg.PollTimeout = 200 * time.Millisecond
	addr, _ := startSwitch(t, cfg)

	sp0 := handshake(t, addr, 0, 3)
	sp1 := handshake(t, addr, 1, 3)
	sp2 := handshake(t, addr, 2, 3)

	// sp0 -> sp1 fills the single data slot immediately.
	_, err := sp0.Write(wire.Marshal(wire.NewTotalHeader(0, 1, 10)))
	require.NoError(t, err)
	first := readHeader(t, sp0)
	require.Equal(t, uint32(1), first.PayloadLen())

	// sp2 -> sp1 has no free slot, so it queues with no immediate reply.
	_, err = sp2.Write(wire.Marshal(wire.NewTotalHeader(2, 1, 5)))
	require.NoError(t, err)

	// Drain sp0's transfer so the slot frees and sp2's request promotes.
	payload := []byte("0123456789")
	frame := append(wire.Marshal(wire.NewDataHeader(0, 1, 0, uint32(len(payload)))), payload...)
	_, err = sp0.Write(frame)
	require.NoError(t, err)

	got := readHeader(t, sp1)
	assert.Equal(t, uint32(len(payload)), got.PayloadLen())
	buf := make([]byte, got.PayloadLen())
	_, err = io.ReadFull(sp1, buf)
	require.NoError(t, err)

	promoted := readHeader(t, sp2)
	assert.Equal(t, uint32(1), promoted.PayloadLen(), "sp2's queued request should now be accepted")
}

func TestDeadlockWakeBroadcast(t *testing.T) {
	cfg := config.Default()
	cfg.PollTimeout = 50 * time.Millisecond
	addr, _ := startSwitch(t, cfg)

	sp0 := handshake(t, addr, 0, 2)
	sp1 := handshake(t, addr, 1, 2)

	// Every connected peer reports waiting for a frame that will never
	// come; once both are waiting the timeout branch must wake them.
	_, err := sp0.Write(wire.Marshal(wire.NewTotalHeader(0, 0, 1)))
	require.NoError(t, err)
	_, err = sp1.Write(wire.Marshal(wire.NewTotalHeader(1, 1, 1)))
	require.NoError(t, err)

	sp0.SetReadDeadline(time.Now().Add(2 * time.Second))
	sp1.SetReadDeadline(time.Now().Add(2 * time.Second))
	wake0 := readHeader(t, sp0)
	wake1 := readHeader(t, sp1)
	assert.NotEqual(t, uint32(0), wake0.PayloadLen())
	assert.NotEqual(t, uint32(0), wake1.PayloadLen())
}
