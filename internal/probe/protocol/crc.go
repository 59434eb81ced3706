// Package protocol implements the wire formats shared by the framed probe
// families: the CRC-16 engines, SOH command framing, the outer envelope used
// by multi-block transfers, and fragmentation/reassembly of 20-byte packets.
package protocol

// crcPolynomial is the CRC-16 generator polynomial (XMODEM-style): MSB-first,
// no input/output reflection, no final XOR.
const crcPolynomial = 0x1021

// Initial register values. The TR probe families run the register from zero,
// the SK family preloads all ones. The value travels with the device profile;
// it is never a global setting.
const (
	CRCInitZero    uint16 = 0x0000
	CRCInitAllOnes uint16 = 0xFFFF
)

// CRC16 computes the checksum of data starting from the given initial
// register value.
func CRC16(init uint16, data []byte) uint16 {
	crc := init
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// AppendCRC16 appends the checksum of buf, big-endian (high byte first).
func AppendCRC16(buf []byte, init uint16) []byte {
	crc := CRC16(init, buf)
	return append(buf, byte(crc>>8), byte(crc))
}

// VerifyCRC16 checks that the last two bytes of data are the big-endian
// checksum of everything before them.
func VerifyCRC16(data []byte, init uint16) bool {
	if len(data) < 2 {
		return false
	}
	body := data[:len(data)-2]
	want := uint16(data[len(data)-2])<<8 | uint16(data[len(data)-1])
	return CRC16(init, body) == want
}
