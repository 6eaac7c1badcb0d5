package nextmqtt

import (
	"errors"
	"fmt"

	"github.com/followben/NextMQTT/internal/wire"
)

// ErrClientClosed is returned to every pending operation when Disconnect
// or Close is called, and to any new operation attempted after Close.
// Pending operations also fail with it when a reconnect finds that the
// broker kept no session.
var ErrClientClosed = errors.New("nextmqtt: client closed")

// ErrProtocolError is returned (and the transport dropped) when the
// broker's CONNACK violates the session-present contract in spec.md §4.3 —
// e.g. sessionPresent=1 when the client asked for a clean start.
var ErrProtocolError = errors.New("nextmqtt: protocol error")

// ConnectError wraps a CONNACK reason code ≥ 0x80 (MQTT v5.0 §3.2.2.2).
type ConnectError struct {
	ReasonCode uint8
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("nextmqtt: connect refused: %s", connectReasonText(e.ReasonCode))
}

func (e *ConnectError) Is(target error) bool {
	te, ok := target.(*ConnectError)
	return ok && te.ReasonCode == e.ReasonCode
}

func connectReasonText(code uint8) string {
	switch code {
	case wire.ConnAckUnspecifiedError:
		return "unspecified error"
	case wire.ConnAckMalformedPacket:
		return "malformed packet"
	case wire.ConnAckProtocolError:
		return "protocol error"
	case wire.ConnAckImplementationSpecific:
		return "implementation specific error"
	case wire.ConnAckUnsupportedProtocolVersion:
		return "unsupported protocol version"
	case wire.ConnAckClientIdentifierNotValid:
		return "client identifier not valid"
	case wire.ConnAckBadUsernameOrPassword:
		return "bad username or password"
	case wire.ConnAckNotAuthorized:
		return "not authorized"
	case wire.ConnAckServerUnavailable:
		return "server unavailable"
	case wire.ConnAckServerBusy:
		return "server busy"
	case wire.ConnAckBanned:
		return "banned"
	case wire.ConnAckBadAuthenticationMethod:
		return "bad authentication method"
	case wire.ConnAckTopicNameInvalid:
		return "topic name invalid"
	case wire.ConnAckPacketTooLarge:
		return "packet too large"
	case wire.ConnAckQuotaExceeded:
		return "quota exceeded"
	case wire.ConnAckPayloadFormatInvalid:
		return "payload format invalid"
	case wire.ConnAckRetainNotSupported:
		return "retain not supported"
	case wire.ConnAckQoSNotSupported:
		return "qos not supported"
	case wire.ConnAckUseAnotherServer:
		return "use another server"
	case wire.ConnAckServerMoved:
		return "server moved"
	case wire.ConnAckConnectionRateExceeded:
		return "connection rate exceeded"
	default:
		return fmt.Sprintf("reason 0x%02X", code)
	}
}

// SubscribeError wraps a SUBACK reason code ≥ 0x80 (MQTT v5.0 §3.9.3).
type SubscribeError struct {
	ReasonCode uint8
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("nextmqtt: subscribe refused: reason 0x%02X", e.ReasonCode)
}

func (e *SubscribeError) Is(target error) bool {
	te, ok := target.(*SubscribeError)
	return ok && te.ReasonCode == e.ReasonCode
}

// UnsubscribeError wraps an UNSUBACK reason code ≥ 0x80 (MQTT v5.0 §3.11.3).
type UnsubscribeError struct {
	ReasonCode uint8
}

func (e *UnsubscribeError) Error() string {
	return fmt.Sprintf("nextmqtt: unsubscribe refused: reason 0x%02X", e.ReasonCode)
}

func (e *UnsubscribeError) Is(target error) bool {
	te, ok := target.(*UnsubscribeError)
	return ok && te.ReasonCode == e.ReasonCode
}

// PublishError wraps a PUBACK/PUBREC/PUBCOMP reason code that is not
// Success (MQTT v5.0 §3.4.2.1). NoMatchingSubscribers (0x10) is
// success-with-info, not a failure, and is never surfaced as an error.
type PublishError struct {
	ReasonCode uint8
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("nextmqtt: publish failed: reason 0x%02X", e.ReasonCode)
}

func (e *PublishError) Is(target error) bool {
	te, ok := target.(*PublishError)
	return ok && te.ReasonCode == e.ReasonCode
}

// TransportError wraps an opaque error reported by the transport adapter
// (MQTT v5.0 has no reason code for this; it is not a protocol-level
// failure).
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nextmqtt: transport error: %s", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
