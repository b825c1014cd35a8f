// Package mqttv5 implements the core of an MQTT v5.0 client: an
// actor-style dispatcher that multiplexes an application-facing command
// API against a single bidirectional byte stream to a broker. See
// NewDispatcher and Handle for the public entry points; the wire codec,
// packet-identifier registry, subscription router, and session state
// machine backing it live in the packet, pid, router, and session
// subpackages respectively.
package mqttv5

import (
	"github.com/riftio/mqttv5/packet"
	"github.com/riftio/mqttv5/router"
	"github.com/riftio/mqttv5/session"
)

// Public vocabulary re-exported from session/packet/router so callers
// only ever import this one package for the common case.
type (
	ConnectOptions      = session.ConnectOptions
	ConnectResult       = session.ConnectResult
	WillMessage         = session.WillMessage
	PublishOptions      = session.PublishOptions
	PubAckReason        = session.PubAckReason
	SubscriptionOptions = session.SubscriptionOptions
	SubscribeResult     = session.SubscribeResult
	UnsubscribeResult   = session.UnsubscribeResult
	DisconnectOptions   = session.DisconnectOptions
	RetainHandling      = session.RetainHandling
	UserProperty        = packet.UserProperty
	ReasonCode          = packet.ReasonCode
	Message             = router.Message
)

const (
	SendRetainedAlways            = session.SendRetainedAlways
	SendRetainedIfNewSubscription = session.SendRetainedIfNewSubscription
	DoNotSendRetained             = session.DoNotSendRetained
)
