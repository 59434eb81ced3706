package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVectors(t *testing.T) {
	// XMODEM ("123456789" with init 0) and CCITT-FALSE (init 0xFFFF) check
	// values from the usual catalog.
	assert.Equal(t, uint16(0x31C3), CRC16(CRCInitZero, []byte("123456789")))
	assert.Equal(t, uint16(0x29B1), CRC16(CRCInitAllOnes, []byte("123456789")))
	assert.Equal(t, CRCInitZero, CRC16(CRCInitZero, nil))
	assert.Equal(t, CRCInitAllOnes, CRC16(CRCInitAllOnes, nil))
}

func TestCRC16RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0xFF, 0xFF, 0xFF},
		[]byte("pit lane telemetry"),
		{0x01, 0xFF, 0xFF, 0x33, 0x01, 0x00, 0x00},
	}
	for _, init := range []uint16{CRCInitZero, CRCInitAllOnes} {
		for _, p := range payloads {
			framed := AppendCRC16(append([]byte(nil), p...), init)
			assert.True(t, VerifyCRC16(framed, init), "init=%#04x payload=%x", init, p)
		}
	}
}

func TestCRC16DetectsSingleBitFlips(t *testing.T) {
	payload := []byte{0x01, 0xFF, 0xFF, 0x33, 0x01, 0x04, 0x00, 0xE8, 0x03, 0x3A, 0x07}
	framed := AppendCRC16(append([]byte(nil), payload...), CRCInitZero)

	for i := 0; i < len(payload); i++ {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), framed...)
			mutated[i] ^= 1 << bit
			if VerifyCRC16(mutated, CRCInitZero) {
				t.Fatalf("bit flip at byte %d bit %d went undetected", i, bit)
			}
		}
	}
}

func TestVerifyCRC16TooShort(t *testing.T) {
	assert.False(t, VerifyCRC16(nil, CRCInitZero))
	assert.False(t, VerifyCRC16([]byte{0x12}, CRCInitZero))
}
