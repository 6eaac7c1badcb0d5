package wire

// Reason codes, per MQTT v5.0 §2.2.2 and §2.4. Each ack kind has its own
// closed set; a code outside that set fails decode with
// ErrUnknownReasonCode rather than being passed through, so the session
// engine never has to reason about an open-ended byte.

// ConnAckReasonCode values (§3.2.2.2).
const (
	ConnAckSuccess                    uint8 = 0x00
	ConnAckUnspecifiedError           uint8 = 0x80
	ConnAckMalformedPacket            uint8 = 0x81
	ConnAckProtocolError              uint8 = 0x82
	ConnAckImplementationSpecific     uint8 = 0x83
	ConnAckUnsupportedProtocolVersion uint8 = 0x84
	ConnAckClientIdentifierNotValid   uint8 = 0x85
	ConnAckBadUsernameOrPassword      uint8 = 0x86
	ConnAckNotAuthorized              uint8 = 0x87
	ConnAckServerUnavailable          uint8 = 0x88
	ConnAckServerBusy                 uint8 = 0x89
	ConnAckBanned                     uint8 = 0x8A
	ConnAckBadAuthenticationMethod    uint8 = 0x8C
	ConnAckTopicNameInvalid           uint8 = 0x90
	ConnAckPacketTooLarge             uint8 = 0x95
	ConnAckQuotaExceeded              uint8 = 0x97
	ConnAckPayloadFormatInvalid       uint8 = 0x99
	ConnAckRetainNotSupported         uint8 = 0x9A
	ConnAckQoSNotSupported            uint8 = 0x9B
	ConnAckUseAnotherServer           uint8 = 0x9C
	ConnAckServerMoved                uint8 = 0x9D
	ConnAckConnectionRateExceeded     uint8 = 0x9F
)

var connAckReasonCodes = map[uint8]bool{
	ConnAckSuccess: true, ConnAckUnspecifiedError: true, ConnAckMalformedPacket: true,
	ConnAckProtocolError: true, ConnAckImplementationSpecific: true,
	ConnAckUnsupportedProtocolVersion: true, ConnAckClientIdentifierNotValid: true,
	ConnAckBadUsernameOrPassword: true, ConnAckNotAuthorized: true,
	ConnAckServerUnavailable: true, ConnAckServerBusy: true, ConnAckBanned: true,
	ConnAckBadAuthenticationMethod: true, ConnAckTopicNameInvalid: true,
	ConnAckPacketTooLarge: true, ConnAckQuotaExceeded: true,
	ConnAckPayloadFormatInvalid: true, ConnAckRetainNotSupported: true,
	ConnAckQoSNotSupported: true, ConnAckUseAnotherServer: true,
	ConnAckServerMoved: true, ConnAckConnectionRateExceeded: true,
}

func validateConnAckReasonCode(code uint8) error {
	if !connAckReasonCodes[code] {
		return ErrUnknownReasonCode
	}
	return nil
}

// PubAckReasonCode / PubRecReasonCode values (§3.4.2.1 / §3.5.2.1) — the
// two packets share the same reason-code set.
const (
	PubAckSuccess               uint8 = 0x00
	PubAckNoMatchingSubscribers uint8 = 0x10
	PubAckUnspecifiedError      uint8 = 0x80
	PubAckImplementationSpecific uint8 = 0x83
	PubAckNotAuthorized         uint8 = 0x87
	PubAckTopicNameInvalid      uint8 = 0x90
	PubAckPacketIdentifierInUse uint8 = 0x91
	PubAckQuotaExceeded         uint8 = 0x97
	PubAckPayloadFormatInvalid  uint8 = 0x99
)

var pubAckReasonCodes = map[uint8]bool{
	PubAckSuccess: true, PubAckNoMatchingSubscribers: true, PubAckUnspecifiedError: true,
	PubAckImplementationSpecific: true, PubAckNotAuthorized: true, PubAckTopicNameInvalid: true,
	PubAckPacketIdentifierInUse: true, PubAckQuotaExceeded: true, PubAckPayloadFormatInvalid: true,
}

func validatePubAckReasonCode(code uint8) error {
	if !pubAckReasonCodes[code] {
		return ErrUnknownReasonCode
	}
	return nil
}

// PubRelReasonCode / PubCompReasonCode values (§3.6.2.1 / §3.7.2.1).
const (
	PubRelSuccess                 uint8 = 0x00
	PubRelPacketIdentifierNotFound uint8 = 0x92
)

var pubRelReasonCodes = map[uint8]bool{
	PubRelSuccess: true, PubRelPacketIdentifierNotFound: true,
}

func validatePubRelReasonCode(code uint8) error {
	if !pubRelReasonCodes[code] {
		return ErrUnknownReasonCode
	}
	return nil
}

// SubAckReasonCode values (§3.9.3).
const (
	SubAckGrantedQoS0                        uint8 = 0x00
	SubAckGrantedQoS1                        uint8 = 0x01
	SubAckGrantedQoS2                        uint8 = 0x02
	SubAckUnspecifiedError                   uint8 = 0x80
	SubAckImplementationSpecific             uint8 = 0x83
	SubAckNotAuthorized                      uint8 = 0x87
	SubAckTopicFilterInvalid                 uint8 = 0x8F
	SubAckPacketIdentifierInUse              uint8 = 0x91
	SubAckQuotaExceeded                      uint8 = 0x97
	SubAckSharedSubscriptionsNotSupported    uint8 = 0x9E
	SubAckSubscriptionIdentifiersNotSupported uint8 = 0xA1
	SubAckWildcardSubscriptionsNotSupported  uint8 = 0xA2
)

var subAckReasonCodes = map[uint8]bool{
	SubAckGrantedQoS0: true, SubAckGrantedQoS1: true, SubAckGrantedQoS2: true,
	SubAckUnspecifiedError: true, SubAckImplementationSpecific: true, SubAckNotAuthorized: true,
	SubAckTopicFilterInvalid: true, SubAckPacketIdentifierInUse: true, SubAckQuotaExceeded: true,
	SubAckSharedSubscriptionsNotSupported: true, SubAckSubscriptionIdentifiersNotSupported: true,
	SubAckWildcardSubscriptionsNotSupported: true,
}

func validateSubAckReasonCode(code uint8) error {
	if !subAckReasonCodes[code] {
		return ErrUnknownReasonCode
	}
	return nil
}

// UnsubAckReasonCode values (§3.11.3).
const (
	UnsubAckSuccess               uint8 = 0x00
	UnsubAckNoSubscriptionExisted uint8 = 0x11
	UnsubAckUnspecifiedError      uint8 = 0x80
	UnsubAckImplementationSpecific uint8 = 0x83
	UnsubAckNotAuthorized         uint8 = 0x87
	UnsubAckTopicFilterInvalid    uint8 = 0x8F
	UnsubAckPacketIdentifierInUse uint8 = 0x91
)

var unsubAckReasonCodes = map[uint8]bool{
	UnsubAckSuccess: true, UnsubAckNoSubscriptionExisted: true, UnsubAckUnspecifiedError: true,
	UnsubAckImplementationSpecific: true, UnsubAckNotAuthorized: true,
	UnsubAckTopicFilterInvalid: true, UnsubAckPacketIdentifierInUse: true,
}

func validateUnsubAckReasonCode(code uint8) error {
	if !unsubAckReasonCodes[code] {
		return ErrUnknownReasonCode
	}
	return nil
}
