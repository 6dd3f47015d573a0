package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := NewDataHeader(1, 2, 7, 123)
	buf := Marshal(h)
	assert.Len(t, buf, HeaderSize)
	got := Decode(buf)
	assert.Equal(t, h, got)
	assert.EqualValues(t, 7, got.Seq())
	assert.EqualValues(t, 123, got.PayloadLen())
}

func TestTotalHeaderRoundTrip(t *testing.T) {
	h := NewTotalHeader(0, 1, 10000)
	buf := Marshal(h)
	got := Decode(buf)
	assert.EqualValues(t, 10000, got.Total())
}

func TestIsSelfDirected(t *testing.T) {
	h := NewTotalHeader(3, 3, 0)
	assert.True(t, IsSelfDirected(h, 3))
	assert.False(t, IsSelfDirected(h, 4))
}

func TestAdmittedSize(t *testing.T) {
	cases := []struct {
		payload uint64
		want    uint64
	}{
		{0, 0},
		{MaxDataSize, MaxDataSize + HeaderSize},
		{MaxDataSize + 1, MaxDataSize + 1 + 2*HeaderSize},
		{10000, 10000 + 3*HeaderSize},
	}
	for _, c := range cases {
		assert.EqualValues(t, c.want, AdmittedSize(c.payload))
	}
}
