package wire

// PubRecPacket is the first half of the QoS 2 acknowledgement handshake
// (§3.5): it confirms receipt of a PUBLISH and precedes PUBREL.
type PubRecPacket struct {
	PacketID   uint16
	ReasonCode uint8
	Properties *Properties
}

func (p *PubRecPacket) Type() uint8 { return PUBREC }

func (p *PubRecPacket) Encode() ([]byte, error) {
	body := encodeAckBody(ackBody{p.PacketID, p.ReasonCode, p.Properties})
	return finishPacket(PUBREC, 0, body)
}

func DecodePubRec(body []byte) (*PubRecPacket, error) {
	a, err := decodeAckBody(body, validatePubAckReasonCode)
	if err != nil {
		return nil, err
	}
	return &PubRecPacket{a.PacketID, a.ReasonCode, a.Properties}, nil
}
