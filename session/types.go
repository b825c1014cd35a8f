package session

import (
	"time"

	"github.com/riftio/mqttv5/packet"
)

// ConnectOptions configures a CONNECT attempt (MQTT v5.0 §3.1).
type ConnectOptions struct {
	ClientID   string
	CleanStart bool
	KeepAlive  time.Duration

	SessionExpiryInterval      *uint32
	ReceiveMaximum             uint16
	MaximumPacketSize          *uint32
	TopicAliasMaximum          uint16
	RequestResponseInformation bool
	RequestProblemInformation  bool
	UserProperties             []packet.UserProperty

	AuthenticationMethod *string
	AuthenticationData   []byte

	Username *string
	Password []byte

	Will *WillMessage
}

// WillMessage is the last-will-and-testament payload published by the
// broker if the connection drops uncleanly.
type WillMessage struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	DelayInterval *uint32
	Properties *packet.Properties
}

// ConnectResult is returned once CONNACK arrives with a success reason.
type ConnectResult struct {
	SessionPresent         bool
	AssignedClientID       string
	ServerKeepAlive        *uint16
	ReceiveMaximum         uint16
	MaximumQoS             byte
	RetainAvailable        bool
	MaximumPacketSize      *uint32
	TopicAliasMaximum      uint16
	WildcardAvailable      bool
	SubscriptionIDAvailable bool
	SharedSubscriptionAvailable bool
	Properties             *packet.Properties
}

// PublishOptions configures an outbound PUBLISH (MQTT v5.0 §3.3).
type PublishOptions struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool

	ContentType           *string
	ResponseTopic         *string
	CorrelationData       []byte
	UserProperties        []packet.UserProperty
	MessageExpiryInterval *uint32
	PayloadFormatIndicator *byte

	// UseTopicAlias opts into the session-local outbound alias table; it
	// never appears on the wire as a caller-visible id.
	UseTopicAlias bool
}

// PubAckReason is the terminal result of a Publish call: the reason code
// the broker returned (or packet.Success for QoS 0, which has no ack).
type PubAckReason struct {
	Reason packet.ReasonCode
}

// RetainHandling mirrors packet.RetainHandling in the public vocabulary
// named by the client's public vocabulary.
type RetainHandling = packet.RetainHandling

const (
	SendRetainedAlways           = packet.SendRetainedAlways
	SendRetainedIfNewSubscription = packet.SendRetainedIfNewSubscription
	DoNotSendRetained            = packet.DoNotSendRetained
)

// SubscriptionOptions is one requested topic filter of a Subscribe call.
type SubscriptionOptions struct {
	Filter            string
	MaximumQoS        byte
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
	// Shared is neither set nor read by the session; the router
	// recognises the "$share/<group>/<filter>" form from Filter itself.
	Shared bool
}

// SubscribeResult is the terminal result of a Subscribe call.
type SubscribeResult struct {
	ReasonCodes []packet.ReasonCode
	// SID is the subscription identifier the session assigned when at
	// least one reason code was a success; 0 if the subscribe was entirely
	// refused.
	SID uint32
}

// UnsubscribeResult is the terminal result of an Unsubscribe call.
type UnsubscribeResult struct {
	ReasonCodes []packet.ReasonCode
}

// DisconnectOptions configures a user-initiated DISCONNECT.
type DisconnectOptions struct {
	Reason                packet.ReasonCode
	SessionExpiryInterval *uint32
	ReasonString          *string
	UserProperties        []packet.UserProperty
}
