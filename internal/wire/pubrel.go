package wire

// PubRelPacket completes the sender side of a QoS 2 exchange once PUBREC
// has been received (§3.6). Its fixed-header flags are fixed at 0b0010.
type PubRelPacket struct {
	PacketID   uint16
	ReasonCode uint8
	Properties *Properties
}

func (p *PubRelPacket) Type() uint8 { return PUBREL }

func (p *PubRelPacket) Encode() ([]byte, error) {
	body := encodeAckBody(ackBody{p.PacketID, p.ReasonCode, p.Properties})
	return finishPacket(PUBREL, 0x02, body)
}

func DecodePubRel(flags uint8, body []byte) (*PubRelPacket, error) {
	if flags != 0x02 {
		return nil, ErrMalformedPacket
	}
	a, err := decodeAckBody(body, validatePubRelReasonCode)
	if err != nil {
		return nil, err
	}
	return &PubRelPacket{a.PacketID, a.ReasonCode, a.Properties}, nil
}
