package session

import (
	"errors"
	"fmt"

	"github.com/riftio/mqttv5/packet"
)

// Fatal errors terminate the run loop and fail every outstanding waiter.
// Nothing in this module returns ErrKeepAliveTimeout: the dispatcher does
// not time PINGRESP, so a Ping with no reply waits until its context ends.
var (
	ErrConnectionLost   = errors.New("mqttv5: connection lost")
	ErrKeepAliveTimeout = errors.New("mqttv5: no PINGRESP within keep-alive interval")
)

// ConnectionRefused wraps the CONNACK reason code the broker returned for
// a failed CONNECT. Only the pending Connect call fails; nothing else is
// running yet, so the run loop exits too.
type ConnectionRefused struct {
	Reason packet.ReasonCode
}

func (e *ConnectionRefused) Error() string {
	return fmt.Sprintf("mqttv5: connection refused: %s", e.Reason.Reason)
}

// Disconnected wraps a broker-initiated DISCONNECT. Terminal: the run
// loop exits and every outstanding waiter fails with this error.
type Disconnected struct {
	Reason     packet.ReasonCode
	Properties *packet.Properties
}

func (e *Disconnected) Error() string {
	return fmt.Sprintf("mqttv5: disconnected by broker: %s", e.Reason.Reason)
}

// ProtocolError wraps a semantic protocol violation detected by the
// session layer (as opposed to a wire-syntax MalformedPacket from the
// codec). Terminal when a Handle* method returns it; BeginSubscribe and
// BeginUnsubscribe also return it for an empty filter list, which fails
// only that request.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string { return "mqttv5: protocol error: " + e.Detail }

// Operational errors fail only the originating request; the connection
// survives.
var (
	ErrNoFreeIDs          = errors.New("mqttv5: no free packet identifiers")
	ErrPacketTooLarge     = errors.New("mqttv5: packet exceeds server maximum packet size")
	ErrQoSNotSupported    = errors.New("mqttv5: qos exceeds server maximum qos")
	ErrRetainNotSupported = errors.New("mqttv5: server does not support retained messages")
	ErrTopicAliasInvalid  = errors.New("mqttv5: topic alias out of range or unknown")
	ErrUnknownPacketID    = errors.New("mqttv5: acknowledgement for unknown packet identifier")

	// ErrQuotaExhausted signals that every receive-maximum slot is in
	// flight. It is not a failure: the caller (the dispatcher) queues
	// the publish and retries once an acknowledgement frees a slot.
	ErrQuotaExhausted = errors.New("mqttv5: receive-maximum quota exhausted")
)
