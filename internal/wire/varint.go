package wire

import "encoding/binary"

// maxVarInt is the largest value a 4-byte MQTT Variable Byte Integer can
// hold (MQTT v5.0 §1.5.5).
const maxVarInt = 268435455

// appendVarInt appends the Variable Byte Integer encoding of value to dst.
// value must be in [0, maxVarInt]; the caller is responsible for checking
// the range (see EncodeVarInt) since this is also used internally where the
// range is already known to be safe.
func appendVarInt(dst []byte, value int) []byte {
	for {
		b := byte(value % 128)
		value /= 128
		if value > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if value == 0 {
			return dst
		}
	}
}

// EncodeVarInt encodes value as a 1-4 byte Variable Byte Integer.
func EncodeVarInt(value int) ([]byte, error) {
	if value < 0 || value > maxVarInt {
		return nil, ErrValueTooLarge
	}
	return appendVarInt(make([]byte, 0, 4), value), nil
}

// DecodeVarInt decodes a Variable Byte Integer from the front of buf.
// It returns the value, the number of bytes consumed, and an error.
//
// MQTT's VBI is bit-for-bit the same encoding as Go's standard base-128
// varint (continuation bit in the MSB, little-endian digit order), so this
// delegates to encoding/binary rather than hand-rolling the loop.
func DecodeVarInt(buf []byte) (value int, n int, err error) {
	// binary.Uvarint will happily read a 10-byte uint64 varint; MQTT caps
	// at 4 bytes, so bound the input before calling it.
	bounded := buf
	if len(bounded) > 4 {
		bounded = bounded[:4]
	}

	u, m := binary.Uvarint(bounded)
	if m == 0 {
		// Ran out of bytes before the continuation bit cleared: either we
		// handed it a truncated buffer (need more data) or a genuinely
		// over-long encoding (4 bytes, still continuing).
		if len(bounded) == 4 && bounded[3]&0x80 != 0 {
			return 0, 0, ErrInvalidVarInt
		}
		return 0, 0, ErrPrematureEndOfData
	}
	if m < 0 {
		// Overflowed uint64 — can't happen within 4 bytes, but handle it.
		return 0, 0, ErrInvalidVarInt
	}
	if u > maxVarInt {
		return 0, 0, ErrInvalidVarInt
	}

	return int(u), m, nil
}
