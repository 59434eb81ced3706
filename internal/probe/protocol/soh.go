package protocol

import (
	"encoding/binary"
	"fmt"
)

// SOH frame layout, shared by every framed probe family:
//
//	offset 0     start marker 0x01 (SOH)
//	offset 1..2  device address, uint16 little-endian (0xFFFF = broadcast)
//	offset 3     command code
//	offset 4     status (replies) / sub-code (requests)
//	offset 5..6  payload length, uint16 little-endian
//	offset 7..   payload
//	last 2       CRC-16 big-endian over marker..last payload byte
//
// A request with an empty payload is exactly 9 bytes.
const (
	StartMarker = 0x01

	sohHeaderLen = 7
	sohMinLen    = sohHeaderLen + 2 // header + CRC

	// BroadcastAddress targets whichever probe holds the connection.
	BroadcastAddress uint16 = 0xFFFF
)

// Command codes.
const (
	CmdReadRealtime = 0x33
	CmdReadSettings = 0x52
	CmdAuthenticate = 0x21
)

// Sub-codes for CmdReadRealtime.
const (
	SubRealtimeAll = 0x01
)

// Status codes carried in reply frames.
const (
	StatusOK      = 0x00
	StatusRefused = 0x06
)

// Raw channel sentinels: the probe reports these instead of a measurement
// when no sensor is attached or the thermocouple circuit is open.
const (
	RawNoProbe     uint16 = 0xEEEE
	RawOpenCircuit uint16 = 0xF000
)

// SOHFrame is a decoded frame. It is transient: constructed during parse,
// consumed immediately, never retained.
type SOHFrame struct {
	Cmd     byte
	Status  byte
	Payload []byte
}

// BuildCommand encodes a request frame addressed to the broadcast address.
// For requests the status slot carries the sub-code.
func BuildCommand(cmd, sub byte, payload []byte, crcInit uint16) []byte {
	buf := make([]byte, 0, sohMinLen+len(payload))
	buf = append(buf, StartMarker)
	buf = binary.LittleEndian.AppendUint16(buf, BroadcastAddress)
	buf = append(buf, cmd, sub)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	return AppendCRC16(buf, crcInit)
}

// ParseFrame decodes and validates a frame. The returned payload aliases
// data; callers that retain it must copy.
func ParseFrame(data []byte, crcInit uint16) (SOHFrame, error) {
	if len(data) < sohMinLen {
		return SOHFrame{}, fmt.Errorf("protocol: frame too short: %d bytes", len(data))
	}
	if data[0] != StartMarker {
		return SOHFrame{}, fmt.Errorf("protocol: bad start marker 0x%02X", data[0])
	}
	plen := int(binary.LittleEndian.Uint16(data[5:7]))
	if len(data) != sohMinLen+plen {
		return SOHFrame{}, fmt.Errorf("protocol: length mismatch: header says %d payload bytes, frame has %d", plen, len(data)-sohMinLen)
	}
	if !VerifyCRC16(data, crcInit) {
		return SOHFrame{}, fmt.Errorf("protocol: CRC mismatch on command 0x%02X", data[3])
	}
	return SOHFrame{
		Cmd:     data[3],
		Status:  data[4],
		Payload: data[sohHeaderLen : sohHeaderLen+plen],
	}, nil
}
