package packet

import "errors"

// Structural decode errors. These are distinct from the ReasonCode values
// in reasoncode.go: a ReasonCode travels on the wire inside an acknowledgement packet,
// while these are returned by Go functions when the wire bytes themselves
// don't parse. The session layer maps the ones it cares about onto
// protocol-level errors of its own.
var (
	ErrMalformedVariableByteInteger  = errors.New("packet: malformed variable byte integer")
	ErrMalformedOffsetUintOutOfRange = errors.New("packet: buffer too short for integer field")
	ErrMalformedOffsetBytesOutOfRange = errors.New("packet: buffer too short for length-prefixed field")
	ErrMalformedInvalidUTF8          = errors.New("packet: invalid utf-8 string")
	ErrMalformedFlags                = errors.New("packet: invalid fixed-header flags")
	ErrMalformedReasonCode           = errors.New("packet: unrecognized reason code")
	ErrMalformedPacketID             = errors.New("packet: zero packet identifier for qos > 0")
	ErrMalformedTopic                = errors.New("packet: invalid topic name")
	ErrPacketTooLarge                = errors.New("packet: remaining length exceeds 268,435,455")
	ErrPayloadFormatInvalid          = errors.New("packet: payload format invalid")
	ErrProtocolViolationDuplicateProperty = errors.New("packet: property present more than once")
	ErrProtocolViolationUnknownProperty   = errors.New("packet: unrecognized property identifier")
	ErrProtocolViolationQoSOutOfRange     = errors.New("packet: qos bits set to reserved value 3")
	ErrProtocolViolationReasonCodeCount   = errors.New("packet: reason code count does not match filter count")
	ErrUnsupportedVersion = errors.New("packet: only MQTT v5.0 is supported")
)
