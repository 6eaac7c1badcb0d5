package wire

// PublishPacket is the MQTT v5.0 PUBLISH packet (§3.3). PacketID is
// meaningful only when QoS > 0.
type PublishPacket struct {
	Dup      bool
	QoS      uint8
	Retain   bool
	Topic    string
	PacketID uint16
	Payload  []byte

	Properties *Properties
}

func (p *PublishPacket) Type() uint8 { return PUBLISH }

func (p *PublishPacket) flags() uint8 {
	var f uint8
	if p.Dup {
		f |= 0x08
	}
	f |= (p.QoS & 0x03) << 1
	if p.Retain {
		f |= 0x01
	}
	return f
}

// Encode serializes p into a complete PUBLISH packet.
func (p *PublishPacket) Encode() ([]byte, error) {
	body := make([]byte, 0, 8+len(p.Topic)+len(p.Payload))
	body = appendString(body, p.Topic)
	if p.QoS > 0 {
		body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	}
	body = appendProperties(body, p.Properties)
	body = append(body, p.Payload...)

	return finishPacket(PUBLISH, p.flags(), body)
}

// DecodePublish decodes a PUBLISH variable header + payload, given the
// flags carried in the fixed header's lower nibble.
func DecodePublish(flags uint8, body []byte) (*PublishPacket, error) {
	qos := (flags >> 1) & 0x03
	if qos == 3 {
		return nil, ErrMalformedPacket
	}

	topic, n, err := decodeString(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]

	p := &PublishPacket{
		Dup:    flags&0x08 != 0,
		QoS:    qos,
		Retain: flags&0x01 != 0,
		Topic:  topic,
	}

	if qos > 0 {
		if len(body) < 2 {
			return nil, ErrPrematureEndOfData
		}
		p.PacketID = uint16(body[0])<<8 | uint16(body[1])
		if p.PacketID == 0 {
			return nil, ErrMalformedPacket
		}
		body = body[2:]
	}

	props, n, err := decodeProperties(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]
	p.Properties = props

	// Whatever remains is the payload: "remainder of packet" per spec.md.
	p.Payload = append([]byte(nil), body...)

	return p, nil
}
