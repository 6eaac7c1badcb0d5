package wire

// FixedHeader is the first one-to-five bytes of every MQTT control packet:
// a type+flags byte followed by a Variable Byte Integer remaining length.
type FixedHeader struct {
	Type           uint8
	Flags          uint8
	RemainingLength int
}

// appendFixedHeader appends the encoded fixed header to dst. body is the
// already-encoded variable header + payload, used only for its length.
func appendFixedHeader(dst []byte, typ, flags uint8, body []byte) ([]byte, error) {
	lenBytes, err := EncodeVarInt(len(body))
	if err != nil {
		return nil, err
	}
	dst = append(dst, typ<<4|flags&0x0F)
	dst = append(dst, lenBytes...)
	return dst, nil
}

// finishPacket wraps body (an already-encoded variable header + payload)
// with its fixed header, returning the complete encoded packet.
func finishPacket(typ, flags uint8, body []byte) ([]byte, error) {
	dst := make([]byte, 0, 5+len(body))
	dst, err := appendFixedHeader(dst, typ, flags, body)
	if err != nil {
		return nil, err
	}
	return append(dst, body...), nil
}

// decodeFixedHeader reads a fixed header from the front of buf. It returns
// the header, the number of bytes consumed (1 to 5), and an error.
//
// ErrPrematureEndOfData here means "wait for more bytes", which is how the
// streaming decoder distinguishes a packet boundary that simply hasn't
// arrived yet from a genuinely malformed stream.
func decodeFixedHeader(buf []byte) (FixedHeader, int, error) {
	if len(buf) < 1 {
		return FixedHeader{}, 0, ErrPrematureEndOfData
	}
	b0 := buf[0]
	remLen, n, err := DecodeVarInt(buf[1:])
	if err != nil {
		return FixedHeader{}, 0, err
	}
	return FixedHeader{
		Type:            b0 >> 4,
		Flags:           b0 & 0x0F,
		RemainingLength: remLen,
	}, 1 + n, nil
}
