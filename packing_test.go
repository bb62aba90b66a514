package crazyflie

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalfFloatRoundTrip(t *testing.T) {
	cases := []float32{0, 1, -1, 0.5, -0.5, 3.14159, 65504, -65504, 1e-5}
	for _, v := range cases {
		got := unpackFloat16(packFloat16(v))
		assert.InDeltaf(t, float64(v), float64(got), 0.01, "round trip of %v", v)
	}
}

func TestHalfFloatZero(t *testing.T) {
	assert.Equal(t, float32(0), unpackFloat16(packFloat16(0)))
}

func TestQuaternionCompressRoundTrip(t *testing.T) {
	q := [4]float32{0.1, 0.2, 0.3, float32(math.Sqrt(1 - 0.1*0.1 - 0.2*0.2 - 0.3*0.3))}
	comp := quatCompress(q)
	out := quatDecompress(comp)

	var sumSq float32
	for _, v := range out {
		sumSq += v * v
	}
	assert.InDelta(t, 1.0, sumSq, 0.01)
}

func TestIdentityQuaternionCompress(t *testing.T) {
	q := [4]float32{0, 0, 0, 1}
	out := quatDecompress(quatCompress(q))
	assert.InDelta(t, 1.0, out[3], 0.02)
}

func TestScalarPacking(t *testing.T) {
	var buf []byte
	buf = putU16(buf, 4660)
	buf = putI16(buf, -1)
	buf = putU32(buf, 305419896)
	buf = putF32(buf, 3.5)

	assert.Equal(t, uint16(4660), getU16(buf[0:2]))
	assert.Equal(t, int16(-1), getI16(buf[2:4]))
	assert.Equal(t, uint32(305419896), getU32(buf[4:8]))
	assert.Equal(t, float32(3.5), getF32(buf[8:12]))
}
