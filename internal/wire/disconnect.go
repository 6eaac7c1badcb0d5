package wire

// DisconnectPacket is the MQTT v5.0 DISCONNECT packet (§3.14). A broker may
// send one with a reason code and properties explaining why it closed the
// connection; this client always emits a bare DISCONNECT on Encode.
type DisconnectPacket struct {
	ReasonCode uint8
	Properties *Properties
}

func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

func (p *DisconnectPacket) Encode() ([]byte, error) {
	return finishPacket(DISCONNECT, 0, nil)
}

func DecodeDisconnect(body []byte) (*DisconnectPacket, error) {
	if len(body) == 0 {
		return &DisconnectPacket{}, nil
	}
	p := &DisconnectPacket{ReasonCode: body[0]}
	rest := body[1:]
	if len(rest) == 0 {
		return p, nil
	}
	props, n, err := decodeProperties(rest)
	if err != nil {
		return nil, err
	}
	if n != len(rest) {
		return nil, ErrMalformedPacket
	}
	p.Properties = props
	return p, nil
}
