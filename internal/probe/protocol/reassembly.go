package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Multi-block transfer packets are at most 20 bytes (the usable ATT payload
// at the default MTU).
//
// Header packet, always 20 bytes:
//
//	offset 0..1  0xA5 0x5A
//	offset 2..3  total transfer length, uint16 little-endian
//	offset 4..5  block count, uint16 little-endian
//	offset 6..19 zero padding
//
// Data block, 4-byte header plus up to 16 payload bytes:
//
//	offset 0     0xA5
//	offset 1..2  block number, uint16 little-endian, counted from zero
//	offset 3     payload byte count n (1..16)
//	offset 4..   n payload bytes
//
// The transfer stream is the envelope bytes followed by one trailing additive
// checksum byte (mod-256 sum of the envelope bytes); the total length in the
// header packet includes that byte.
const (
	packetSize     = 20
	blockHeaderLen = 4
	blockPayload   = packetSize - blockHeaderLen

	headerMarker0 = 0xA5
	headerMarker1 = 0x5A
)

// sum8 is the additive checksum over a transfer stream.
func sum8(data []byte) byte {
	var s byte
	for _, b := range data {
		s += b
	}
	return s
}

// Fragment splits an encoded envelope into a header packet followed by
// numbered data blocks, appending the additive checksum byte.
func Fragment(envelope []byte) [][]byte {
	stream := make([]byte, 0, len(envelope)+1)
	stream = append(stream, envelope...)
	stream = append(stream, sum8(envelope))

	blocks := (len(stream) + blockPayload - 1) / blockPayload

	header := make([]byte, packetSize)
	header[0] = headerMarker0
	header[1] = headerMarker1
	binary.LittleEndian.PutUint16(header[2:4], uint16(len(stream)))
	binary.LittleEndian.PutUint16(header[4:6], uint16(blocks))

	packets := make([][]byte, 0, blocks+1)
	packets = append(packets, header)

	for i := 0; i < blocks; i++ {
		start := i * blockPayload
		end := start + blockPayload
		if end > len(stream) {
			end = len(stream)
		}
		chunk := stream[start:end]

		pkt := make([]byte, 0, blockHeaderLen+len(chunk))
		pkt = append(pkt, headerMarker0)
		pkt = binary.LittleEndian.AppendUint16(pkt, uint16(i))
		pkt = append(pkt, byte(len(chunk)))
		pkt = append(pkt, chunk...)
		packets = append(packets, pkt)
	}
	return packets
}

// Reassembler accumulates inbound packets of one multi-block transfer. It is
// owned by a single connection and never shared; a fresh header packet resets
// any partial assembly.
type Reassembler struct {
	expected  int
	nextBlock int
	buf       []byte
	active    bool

	rate NotifyRate
}

// NewReassembler returns an idle reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Reset discards any partial assembly.
func (r *Reassembler) Reset() {
	r.expected = 0
	r.nextBlock = 0
	r.buf = r.buf[:0]
	r.active = false
}

// Rate exposes the notification-rate diagnostic.
func (r *Reassembler) Rate() *NotifyRate { return &r.rate }

// Feed consumes one inbound packet. It returns the completed transfer stream
// (checksum stripped) when the final block lands and the additive checksum
// verifies. Out-of-order and duplicate blocks are ignored without advancing
// assembly state; a checksum or length failure discards the assembly and
// returns an error so the caller can log it. The next transfer starts fresh
// either way.
func (r *Reassembler) Feed(pkt []byte) ([]byte, error) {
	r.rate.Mark(time.Now())

	if len(pkt) >= 6 && pkt[0] == headerMarker0 && pkt[1] == headerMarker1 {
		r.Reset()
		total := int(binary.LittleEndian.Uint16(pkt[2:4]))
		if total < 1 {
			return nil, fmt.Errorf("protocol: header announces empty transfer")
		}
		r.expected = total
		r.active = true
		return nil, nil
	}

	if !r.active {
		// Data before a header; nothing to attach it to.
		return nil, nil
	}
	if len(pkt) < blockHeaderLen || pkt[0] != headerMarker0 {
		return nil, nil
	}

	num := int(binary.LittleEndian.Uint16(pkt[1:3]))
	if num != r.nextBlock {
		// Strictly ascending order. A duplicate or a gap never advances the
		// counter; a gapped assembly can therefore never complete.
		return nil, nil
	}
	n := int(pkt[3])
	if n < 1 || blockHeaderLen+n > len(pkt) {
		r.Reset()
		return nil, fmt.Errorf("protocol: block %d has invalid payload length %d", num, n)
	}

	r.buf = append(r.buf, pkt[blockHeaderLen:blockHeaderLen+n]...)
	r.nextBlock++

	if len(r.buf) < r.expected {
		return nil, nil
	}
	if len(r.buf) > r.expected {
		r.Reset()
		return nil, fmt.Errorf("protocol: assembly overran announced length")
	}

	stream := r.buf
	body, check := stream[:len(stream)-1], stream[len(stream)-1]
	if sum8(body) != check {
		r.Reset()
		return nil, fmt.Errorf("protocol: transfer checksum mismatch")
	}

	out := make([]byte, len(body))
	copy(out, body)
	r.Reset()
	return out, nil
}

// NotifyRate tracks how many notifications arrived in the last rolling
// second. Diagnostic only.
type NotifyRate struct {
	window []time.Time
}

// Mark records one notification at time t.
func (nr *NotifyRate) Mark(t time.Time) {
	nr.window = append(nr.window, t)
	cutoff := t.Add(-time.Second)
	i := 0
	for i < len(nr.window) && nr.window[i].Before(cutoff) {
		i++
	}
	nr.window = nr.window[i:]
}

// PerSecond returns the count of notifications in the last second as of t.
func (nr *NotifyRate) PerSecond(t time.Time) int {
	cutoff := t.Add(-time.Second)
	n := 0
	for _, ts := range nr.window {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}
