package wire

import "encoding/binary"

// Property identifiers this client recognizes (MQTT v5.0 §2.2.2.2). Every
// other identifier is rejected with ErrUnsupportedProperty on decode,
// per spec.md §3 ("Property List").
const (
	PropSessionExpiryInterval uint8 = 0x11
	PropTopicAliasMaximum     uint8 = 0x22
)

// Properties holds the MQTT v5.0 properties this client supports. Presence
// is tracked explicitly (rather than via zero values) so "not sent" and
// "sent as zero" are distinguishable, matching MQTT semantics.
type Properties struct {
	HasSessionExpiryInterval bool
	SessionExpiryInterval    uint32

	HasTopicAliasMaximum bool
	TopicAliasMaximum    uint16
}

// Empty reports whether no property is set, i.e. the property list encodes
// to a single zero-length-prefix byte.
func (p *Properties) Empty() bool {
	return p == nil || (!p.HasSessionExpiryInterval && !p.HasTopicAliasMaximum)
}

// appendProperties appends the MQTT property-list encoding of p (a VBI
// length prefix followed by identifier+value pairs) to dst.
func appendProperties(dst []byte, p *Properties) []byte {
	var body []byte
	if p != nil {
		if p.HasSessionExpiryInterval {
			body = append(body, PropSessionExpiryInterval)
			body = binary.BigEndian.AppendUint32(body, p.SessionExpiryInterval)
		}
		if p.HasTopicAliasMaximum {
			body = append(body, PropTopicAliasMaximum)
			body = binary.BigEndian.AppendUint16(body, p.TopicAliasMaximum)
		}
	}

	lenBytes, err := EncodeVarInt(len(body))
	if err != nil {
		// len(body) is at most a few dozen bytes for the properties this
		// client knows about; this can't overflow the VBI range.
		panic(err)
	}
	dst = append(dst, lenBytes...)
	return append(dst, body...)
}

// decodeProperties reads a property list from the front of buf: a VBI
// length prefix, then that many bytes of identifier+value pairs. It returns
// the parsed properties (nil if the list was empty), the total number of
// bytes consumed (prefix + body), and an error.
//
// Any identifier outside the closed set this client recognizes fails with
// ErrUnsupportedProperty — per spec.md, "future work can extend support
// intentionally" rather than silently ignoring fields a caller might rely
// on.
func decodeProperties(buf []byte) (*Properties, int, error) {
	propLen, n, err := DecodeVarInt(buf)
	if err != nil {
		return nil, 0, err
	}
	if len(buf) < n+propLen {
		return nil, 0, ErrPrematureEndOfData
	}
	if propLen == 0 {
		return nil, n, nil
	}

	body := buf[n : n+propLen]
	p := &Properties{}
	offset := 0
	for offset < len(body) {
		id := body[offset]
		offset++
		switch id {
		case PropSessionExpiryInterval:
			if len(body)-offset < 4 {
				return nil, 0, ErrPrematureEndOfData
			}
			p.SessionExpiryInterval = binary.BigEndian.Uint32(body[offset:])
			p.HasSessionExpiryInterval = true
			offset += 4
		case PropTopicAliasMaximum:
			if len(body)-offset < 2 {
				return nil, 0, ErrPrematureEndOfData
			}
			p.TopicAliasMaximum = binary.BigEndian.Uint16(body[offset:])
			p.HasTopicAliasMaximum = true
			offset += 2
		default:
			return nil, 0, ErrUnsupportedProperty
		}
	}

	return p, n + propLen, nil
}

// requireEmptyProperties decodes a property list that must be empty for
// this packet kind (SUBACK/UNSUBACK, per spec.md §4.5) and fails with
// ErrUnsupportedProperty if it isn't.
func requireEmptyProperties(buf []byte) (int, error) {
	propLen, n, err := DecodeVarInt(buf)
	if err != nil {
		return 0, err
	}
	if propLen != 0 {
		return 0, ErrUnsupportedProperty
	}
	return n, nil
}
