package nextmqtt

// inflightRole identifies what an inflight record is waiting for, per the
// inflight record shape in spec.md §3.
type inflightRole uint8

const (
	rolePublishSentQoS1     inflightRole = iota // awaiting PUBACK
	rolePublishSentQoS2                         // awaiting PUBREC
	rolePubrecSent                              // awaiting PUBCOMP
	rolePublishReceivedQoS2                     // awaiting PUBREL (inbound)
)

// inflightRecord is the session-side bookkeeping for one packet-id whose
// QoS handshake has not yet completed.
type inflightRecord struct {
	role inflightRole

	// bytes holds the original encoded PUBLISH for outbound records, so a
	// resend after reconnect can set DUP=1 and retransmit verbatim.
	bytes []byte

	// message is not set by the session engine: an inbound QoS 2 PUBLISH
	// retained between PUBREC and PUBREL is held in Client.inboundQoS2,
	// and rolePublishReceivedQoS2 is not assigned to any record.
	message Message
}

// pendingOp is the completion handle for one in-flight client-initiated
// operation (PUBLISH QoS>0, SUBSCRIBE, UNSUBSCRIBE), keyed by packet-id.
// complete is called with the ack's reason code (0 on bare success) and an
// error that, if non-nil, short-circuits straight to the caller (e.g. on
// ClientClosed).
type pendingOp struct {
	complete func(reasonCode uint8, err error)
}
