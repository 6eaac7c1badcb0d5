package wire

// PubAckPacket acknowledges a QoS 1 PUBLISH (§3.4).
type PubAckPacket struct {
	PacketID   uint16
	ReasonCode uint8
	Properties *Properties
}

func (p *PubAckPacket) Type() uint8 { return PUBACK }

func (p *PubAckPacket) Encode() ([]byte, error) {
	body := encodeAckBody(ackBody{p.PacketID, p.ReasonCode, p.Properties})
	return finishPacket(PUBACK, 0, body)
}

func DecodePubAck(body []byte) (*PubAckPacket, error) {
	a, err := decodeAckBody(body, validatePubAckReasonCode)
	if err != nil {
		return nil, err
	}
	return &PubAckPacket{a.PacketID, a.ReasonCode, a.Properties}, nil
}
