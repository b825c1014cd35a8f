package packet

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// MaxVBI is the largest value the MQTT variable byte integer encoding can
// represent in four bytes.
const MaxVBI = 268_435_455

// encodeVBI encodes v as an MQTT variable byte integer: base-128, least
// significant group first, continuation bit (0x80) set on every byte but
// the last.
func encodeVBI(v uint32) ([]byte, error) {
	if v > MaxVBI {
		return nil, ErrPacketTooLarge
	}
	var out []byte
	for {
		b := byte(v % 128)
		v /= 128
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out, nil
}

// decodeVBI reads an MQTT variable byte integer from r. It rejects encodings
// longer than four bytes per MQTT-1.5.5-1.
func decodeVBI(r io.ByteReader) (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			if v > MaxVBI {
				return 0, ErrMalformedVariableByteInteger
			}
			return v, nil
		}
	}
	return 0, ErrMalformedVariableByteInteger
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint16(buf *bytes.Buffer) (uint16, error) {
	if buf.Len() < 2 {
		return 0, ErrMalformedOffsetUintOutOfRange
	}
	return binary.BigEndian.Uint16(buf.Next(2)), nil
}

func readUint32(buf *bytes.Buffer) (uint32, error) {
	if buf.Len() < 4 {
		return 0, ErrMalformedOffsetUintOutOfRange
	}
	return binary.BigEndian.Uint32(buf.Next(4)), nil
}

// writeUTF8String writes the 2-byte-length-prefixed UTF-8 string encoding
// used throughout MQTT v5 for names, filters, and string properties.
func writeUTF8String(buf *bytes.Buffer, s string) error {
	if !validUTF8MQTT(s) {
		return ErrMalformedInvalidUTF8
	}
	if len(s) > 0xFFFF {
		return ErrMalformedInvalidUTF8
	}
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

func readUTF8String(buf *bytes.Buffer) (string, error) {
	n, err := readUint16(buf)
	if err != nil {
		return "", err
	}
	if buf.Len() < int(n) {
		return "", ErrMalformedOffsetBytesOutOfRange
	}
	s := string(buf.Next(int(n)))
	if !validUTF8MQTT(s) {
		return "", ErrMalformedInvalidUTF8
	}
	return s, nil
}

func writeBinary(buf *bytes.Buffer, b []byte) error {
	if len(b) > 0xFFFF {
		return ErrMalformedOffsetBytesOutOfRange
	}
	writeUint16(buf, uint16(len(b)))
	buf.Write(b)
	return nil
}

func readBinary(buf *bytes.Buffer) ([]byte, error) {
	n, err := readUint16(buf)
	if err != nil {
		return nil, err
	}
	if buf.Len() < int(n) {
		return nil, ErrMalformedOffsetBytesOutOfRange
	}
	// Zero-copy view into buf's backing array; callers that keep the bytes
	// past the pooled buffer's release copy them first.
	return buf.Next(int(n)), nil
}

// validUTF8MQTT enforces MQTT-1.5.4-1/2/3: well-formed UTF-8, no embedded
// U+0000, and no noncharacter code points.
func validUTF8MQTT(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == 0 {
			return false
		}
		if r >= 0xFDD0 && r <= 0xFDEF {
			return false
		}
		if r&0xFFFE == 0xFFFE { // U+xFFFE / U+xFFFF in every plane
			return false
		}
	}
	return true
}
