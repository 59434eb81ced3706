package protocol

import (
	"encoding/binary"
	"fmt"
)

// The SK family wraps every SOH command a second time before splitting it
// into transport packets:
//
//	offset 0     envelope marker 0x02 (STX)
//	offset 1     envelope command
//	offset 2..3  inner frame length, uint16 little-endian
//	offset 4..   inner SOH frame
//	last 2       CRC-16 big-endian over marker..last inner byte
const (
	EnvelopeMarker = 0x02

	envHeaderLen = 4
	envMinLen    = envHeaderLen + 2

	// Envelope commands.
	EnvCmdRequest  = 0x10
	EnvCmdResponse = 0x11
)

// WrapEnvelope encloses an encoded inner frame in an envelope.
func WrapEnvelope(envCmd byte, inner []byte, crcInit uint16) []byte {
	buf := make([]byte, 0, envMinLen+len(inner))
	buf = append(buf, EnvelopeMarker, envCmd)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(inner)))
	buf = append(buf, inner...)
	return AppendCRC16(buf, crcInit)
}

// UnwrapEnvelope validates an envelope and returns its command and inner
// frame bytes. The inner slice aliases data.
func UnwrapEnvelope(data []byte, crcInit uint16) (envCmd byte, inner []byte, err error) {
	if len(data) < envMinLen {
		return 0, nil, fmt.Errorf("protocol: envelope too short: %d bytes", len(data))
	}
	if data[0] != EnvelopeMarker {
		return 0, nil, fmt.Errorf("protocol: bad envelope marker 0x%02X", data[0])
	}
	ilen := int(binary.LittleEndian.Uint16(data[2:4]))
	if len(data) != envMinLen+ilen {
		return 0, nil, fmt.Errorf("protocol: envelope length mismatch: header says %d, have %d", ilen, len(data)-envMinLen)
	}
	if !VerifyCRC16(data, crcInit) {
		return 0, nil, fmt.Errorf("protocol: envelope CRC mismatch")
	}
	return data[1], data[envHeaderLen : envHeaderLen+ilen], nil
}
