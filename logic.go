package nextmqtt

import (
	"fmt"

	"github.com/followben/NextMQTT/internal/wire"
)

func (c *Client) handleTransportStarted() {
	pkt := &wire.ConnectPacket{
		ClientID:   c.opts.ClientID,
		CleanStart: c.opts.CleanStart,
		KeepAlive:  c.opts.PingInterval,
	}
	if c.opts.SessionExpiry != 0 {
		pkt.Properties = &wire.Properties{
			HasSessionExpiryInterval: true,
			SessionExpiryInterval:    c.opts.SessionExpiry,
		}
	}
	if c.opts.HasAuth {
		pkt.HasUsername = true
		pkt.Username = c.opts.Username
		pkt.HasPassword = true
		pkt.Password = []byte(c.opts.Password)
	}
	c.send(pkt)
}

func (c *Client) handleBytesIn(chunk []byte) {
	c.bytesReceived.Add(uint64(len(chunk)))
	packets, err := c.decoder.Feed(chunk)
	for _, pkt := range packets {
		c.packetsReceived.Add(1)
		c.dispatch(pkt)
	}
	if err != nil {
		// Packet boundaries are lost; the stream can no longer be parsed.
		c.logger.Error("decoder lost packet framing, closing transport", "error", err)
		if c.tr != nil {
			c.tr.Stop()
		}
	}
}

func (c *Client) handleTransportClosed(err error) {
	if c.state == Disconnecting || c.state == Disconnected {
		return
	}

	wasConnecting := c.connectFuture != nil
	c.disarmKeepAlive()

	if wasConnecting {
		f := c.connectFuture
		c.connectFuture = nil
		c.setState(Disconnected)
		cause := err
		if cause == nil {
			cause = fmt.Errorf("nextmqtt: transport closed during connect")
		}
		f.complete(false, &TransportError{Cause: cause})
		return
	}

	c.setState(Dropped)
	c.failNonResumableOps()
	c.armReconnect()
}

// failNonResumableOps completes every pending SUBSCRIBE/UNSUBSCRIBE with a
// TransportError on an unexpected drop: those operations cannot be resumed
// (this client never resends SUBSCRIBE/UNSUBSCRIBE). Pending QoS>0
// PUBLISHes are left in place for resend on reconnect (spec.md §4.3).
func (c *Client) failNonResumableOps() {
	cause := &TransportError{Cause: fmt.Errorf("connection lost")}
	for id, op := range c.pending {
		if _, isPublish := c.outbound[id]; isPublish {
			continue
		}
		op.complete(0, cause)
		delete(c.pending, id)
	}
}

func (c *Client) dispatch(pkt wire.Packet) {
	switch p := pkt.(type) {
	case *wire.ConnAckPacket:
		c.handleConnAck(p)
	case *wire.PublishPacket:
		c.handlePublish(p)
	case *wire.PubAckPacket:
		c.handlePubAck(p)
	case *wire.PubRecPacket:
		c.handlePubRec(p)
	case *wire.PubRelPacket:
		c.handlePubRel(p)
	case *wire.PubCompPacket:
		c.handlePubComp(p)
	case *wire.SubAckPacket:
		c.handleSubAck(p)
	case *wire.UnsubAckPacket:
		c.handleUnsubAck(p)
	case *wire.PingRespPacket:
		// nothing to do; receipt alone confirms the connection is alive.
	case *wire.DisconnectPacket:
		c.logger.Info("broker sent DISCONNECT", "reasonCode", p.ReasonCode)
	default:
		c.logger.Warn("ignoring unexpected inbound packet type", "type", pkt.Type())
	}
}

func (c *Client) handleConnAck(pkt *wire.ConnAckPacket) {
	f := c.connectFuture
	c.connectFuture = nil

	if pkt.ReasonCode != wire.ConnAckSuccess {
		c.setState(Disconnected)
		if c.tr != nil {
			c.tr.Stop()
		}
		if f != nil {
			f.complete(false, &ConnectError{ReasonCode: pkt.ReasonCode})
		}
		return
	}

	if c.opts.CleanStart && pkt.SessionPresent {
		c.setState(Disconnected)
		if c.tr != nil {
			c.tr.Stop()
		}
		if f != nil {
			f.complete(false, ErrProtocolError)
		}
		return
	}

	expectingSession := !c.opts.CleanStart && c.opts.SessionExpiry != 0 && c.hasSession
	if expectingSession && !pkt.SessionPresent {
		c.setState(Disconnected)
		if c.tr != nil {
			c.tr.Stop()
		}
		if f != nil {
			f.complete(false, ErrProtocolError)
		}
		return
	}

	if pkt.Properties != nil && pkt.Properties.HasTopicAliasMaximum {
		c.brokerTopicAliasMax = pkt.Properties.TopicAliasMaximum
		c.logger.Debug("broker topic alias maximum", "value", c.brokerTopicAliasMax)
	}

	if pkt.SessionPresent {
		c.resendInflight()
	} else {
		c.clearSessionState()
	}
	if !c.opts.CleanStart && c.opts.SessionExpiry != 0 {
		c.hasSession = true
	}

	c.disarmReconnect()
	c.setState(Connected)
	c.armKeepAlive()
	if f != nil {
		f.complete(pkt.SessionPresent, nil)
	}
}

func (c *Client) clearSessionState() {
	for id, op := range c.pending {
		op.complete(0, ErrClientClosed)
		delete(c.pending, id)
	}
	c.outbound = make(map[uint16]*inflightRecord)
	c.inboundQoS2 = make(map[uint16]Message)
	c.lastPacketID = 0
}

// resendInflight retransmits unacknowledged outbound publishes and
// PUBRELs after a broker confirms sessionPresent=1 (spec.md §4.3). Inbound
// QoS 2 records need no action: they remain pending until PUBREL arrives,
// or until a retransmitted PUBLISH is re-acked by handlePublish.
func (c *Client) resendInflight() {
	for id, rec := range c.outbound {
		switch rec.role {
		case rolePublishSentQoS1, rolePublishSentQoS2:
			rec.bytes[0] |= 0x08 // set DUP; every resend past the first is a duplicate too
			if c.tr != nil && c.tr.Write(rec.bytes) == nil {
				c.packetsSent.Add(1)
				c.bytesSent.Add(uint64(len(rec.bytes)))
			}
		case rolePubrecSent:
			pubrel := &wire.PubRelPacket{PacketID: id}
			c.send(pubrel)
		}
	}
}

func (c *Client) nextID() (uint16, error) {
	start := c.lastPacketID
	for i := 0; i < 65535; i++ {
		c.lastPacketID++
		if c.lastPacketID == 0 {
			c.lastPacketID = 1
		}
		if _, inUse := c.pending[c.lastPacketID]; !inUse {
			return c.lastPacketID, nil
		}
		if c.lastPacketID == start {
			break
		}
	}
	return 0, fmt.Errorf("nextmqtt: no free packet identifiers")
}

func (c *Client) doSubscribe(filter string, qos QoS, f *Future[QoS]) {
	if c.state != Connected {
		f.complete(0, fmt.Errorf("nextmqtt: subscribe called while %s", c.state))
		return
	}
	id, err := c.nextID()
	if err != nil {
		f.complete(0, err)
		return
	}
	c.pending[id] = &pendingOp{complete: func(reasonCode uint8, err error) {
		if err != nil {
			f.complete(0, err)
			return
		}
		if reasonCode >= 0x80 {
			f.complete(0, &SubscribeError{ReasonCode: reasonCode})
			return
		}
		f.complete(QoS(reasonCode), nil)
	}}

	pkt := &wire.SubscribePacket{
		PacketID:      id,
		Subscriptions: []wire.Subscription{{Filter: filter, QoS: uint8(qos)}},
	}
	if err := c.send(pkt); err != nil {
		delete(c.pending, id)
	}
}

func (c *Client) doUnsubscribe(filter string, f *Future[struct{}]) {
	if c.state != Connected {
		f.complete(struct{}{}, fmt.Errorf("nextmqtt: unsubscribe called while %s", c.state))
		return
	}
	id, err := c.nextID()
	if err != nil {
		f.complete(struct{}{}, err)
		return
	}
	c.pending[id] = &pendingOp{complete: func(reasonCode uint8, err error) {
		if err != nil {
			f.complete(struct{}{}, err)
			return
		}
		if reasonCode >= 0x80 {
			f.complete(struct{}{}, &UnsubscribeError{ReasonCode: reasonCode})
			return
		}
		f.complete(struct{}{}, nil)
	}}

	pkt := &wire.UnsubscribePacket{PacketID: id, Filters: []string{filter}}
	if err := c.send(pkt); err != nil {
		delete(c.pending, id)
	}
}

func (c *Client) doPublish(topic string, qos QoS, payload []byte, f *Future[struct{}]) {
	if c.state != Connected {
		f.complete(struct{}{}, fmt.Errorf("nextmqtt: publish called while %s", c.state))
		return
	}

	if qos == AtMostOnce {
		pkt := &wire.PublishPacket{Topic: topic, QoS: uint8(AtMostOnce), Payload: payload}
		err := c.send(pkt)
		f.complete(struct{}{}, err)
		return
	}

	id, err := c.nextID()
	if err != nil {
		f.complete(struct{}{}, err)
		return
	}

	pkt := &wire.PublishPacket{Topic: topic, QoS: uint8(qos), PacketID: id, Payload: payload}
	encoded, err := pkt.Encode()
	if err != nil {
		f.complete(struct{}{}, err)
		return
	}

	role := rolePublishSentQoS1
	if qos == ExactlyOnce {
		role = rolePublishSentQoS2
	}
	c.outbound[id] = &inflightRecord{role: role, bytes: encoded}
	c.pending[id] = &pendingOp{complete: func(reasonCode uint8, err error) {
		if err != nil {
			f.complete(struct{}{}, err)
			return
		}
		if reasonCode >= 0x80 {
			f.complete(struct{}{}, &PublishError{ReasonCode: reasonCode})
			return
		}
		f.complete(struct{}{}, nil)
	}}

	if c.tr == nil {
		delete(c.outbound, id)
		delete(c.pending, id)
		f.complete(struct{}{}, fmt.Errorf("nextmqtt: no transport"))
		return
	}
	if err := c.tr.Write(encoded); err != nil {
		// Leave the inflight/pending records in place: handleTransportClosed
		// drops the session to Dropped without touching PUBLISH-shaped
		// pending ops, so this publish resends automatically once the
		// session reconnects (spec.md §4.3).
		c.handleTransportClosed(&TransportError{Cause: err})
		return
	}
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(len(encoded)))
}

func (c *Client) handlePublish(pkt *wire.PublishPacket) {
	switch pkt.QoS {
	case wire.QoS0:
		c.deliver(pkt)
	case wire.QoS1:
		c.deliver(pkt)
		c.send(&wire.PubAckPacket{PacketID: pkt.PacketID})
	case wire.QoS2:
		if _, dup := c.inboundQoS2[pkt.PacketID]; dup {
			// Already holding this id: re-ack, do not re-deliver.
			c.send(&wire.PubRecPacket{PacketID: pkt.PacketID})
			return
		}
		c.inboundQoS2[pkt.PacketID] = Message{
			Topic: pkt.Topic, Payload: pkt.Payload, QoS: ExactlyOnce,
			Retained: pkt.Retain, Duplicate: pkt.Dup,
		}
		c.send(&wire.PubRecPacket{PacketID: pkt.PacketID})
	}
}

func (c *Client) deliver(pkt *wire.PublishPacket) {
	if c.onReceive == nil {
		return
	}
	msg := Message{
		Topic: pkt.Topic, Payload: pkt.Payload, QoS: QoS(pkt.QoS),
		Retained: pkt.Retain, Duplicate: pkt.Dup,
	}
	go c.onReceive(msg)
}

func (c *Client) handlePubAck(pkt *wire.PubAckPacket) {
	op, ok := c.pending[pkt.PacketID]
	if !ok {
		c.logger.Debug("PUBACK for unknown packet id", "id", pkt.PacketID)
		return
	}
	delete(c.pending, pkt.PacketID)
	delete(c.outbound, pkt.PacketID)
	op.complete(pkt.ReasonCode, nil)
}

func (c *Client) handlePubRec(pkt *wire.PubRecPacket) {
	rec, ok := c.outbound[pkt.PacketID]
	if !ok {
		c.logger.Debug("PUBREC for unknown packet id", "id", pkt.PacketID)
		return
	}

	if pkt.ReasonCode >= 0x80 {
		delete(c.outbound, pkt.PacketID)
		if op, ok := c.pending[pkt.PacketID]; ok {
			delete(c.pending, pkt.PacketID)
			op.complete(pkt.ReasonCode, nil)
		}
		return
	}

	rec.role = rolePubrecSent
	c.send(&wire.PubRelPacket{PacketID: pkt.PacketID})
}

func (c *Client) handlePubRel(pkt *wire.PubRelPacket) {
	msg, ok := c.inboundQoS2[pkt.PacketID]
	if !ok {
		c.send(&wire.PubCompPacket{PacketID: pkt.PacketID, ReasonCode: wire.PubRelPacketIdentifierNotFound})
		return
	}
	delete(c.inboundQoS2, pkt.PacketID)
	if c.onReceive != nil {
		go c.onReceive(msg)
	}
	c.send(&wire.PubCompPacket{PacketID: pkt.PacketID})
}

func (c *Client) handlePubComp(pkt *wire.PubCompPacket) {
	op, ok := c.pending[pkt.PacketID]
	if !ok {
		c.logger.Debug("PUBCOMP for unknown packet id", "id", pkt.PacketID)
		return
	}
	delete(c.pending, pkt.PacketID)
	delete(c.outbound, pkt.PacketID)
	op.complete(pkt.ReasonCode, nil)
}

func (c *Client) handleSubAck(pkt *wire.SubAckPacket) {
	op, ok := c.pending[pkt.PacketID]
	if !ok {
		c.logger.Debug("SUBACK for unknown packet id", "id", pkt.PacketID)
		return
	}
	delete(c.pending, pkt.PacketID)
	var reasonCode uint8
	if len(pkt.ReasonCodes) > 0 {
		reasonCode = pkt.ReasonCodes[0]
	}
	op.complete(reasonCode, nil)
}

func (c *Client) handleUnsubAck(pkt *wire.UnsubAckPacket) {
	op, ok := c.pending[pkt.PacketID]
	if !ok {
		c.logger.Debug("UNSUBACK for unknown packet id", "id", pkt.PacketID)
		return
	}
	delete(c.pending, pkt.PacketID)
	var reasonCode uint8
	if len(pkt.ReasonCodes) > 0 {
		reasonCode = pkt.ReasonCodes[0]
	}
	op.complete(reasonCode, nil)
}
