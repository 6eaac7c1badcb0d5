package wire

// PubCompPacket completes a QoS 2 exchange (§3.7): the receiver sends it in
// response to PUBREL, and it is the terminal ack for an outbound QoS 2
// PUBLISH.
type PubCompPacket struct {
	PacketID   uint16
	ReasonCode uint8
	Properties *Properties
}

func (p *PubCompPacket) Type() uint8 { return PUBCOMP }

func (p *PubCompPacket) Encode() ([]byte, error) {
	body := encodeAckBody(ackBody{p.PacketID, p.ReasonCode, p.Properties})
	return finishPacket(PUBCOMP, 0, body)
}

func DecodePubComp(body []byte) (*PubCompPacket, error) {
	a, err := decodeAckBody(body, validatePubRelReasonCode)
	if err != nil {
		return nil, err
	}
	return &PubCompPacket{a.PacketID, a.ReasonCode, a.Properties}, nil
}
