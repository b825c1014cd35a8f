package packet

import "fmt"

// ReasonCode is an MQTT v5 reason code: a single byte plus a human-readable
// name, carried on nearly every acknowledgement packet (MQTT-3.2.2.2,
// 2.4 Reason Code).
type ReasonCode struct {
	Code   byte
	Reason string
}

func (rc ReasonCode) Error() string { return fmt.Sprintf("mqtt: %s (0x%02X)", rc.Reason, rc.Code) }

// Success reports whether the code belongs to the non-error range. Reason
// codes below 0x80 indicate success/acceptance in every MQTT v5 context.
func (rc ReasonCode) Success() bool { return rc.Code < 0x80 }

// Reason codes used across CONNACK, PUBACK/PUBREC/PUBREL/PUBCOMP, SUBACK,
// UNSUBACK, DISCONNECT, and AUTH. Table per MQTT v5.0 §2.4.
var (
	Success                             = ReasonCode{0x00, "success"}
	NormalDisconnection                 = ReasonCode{0x00, "normal disconnection"}
	GrantedQoS0                         = ReasonCode{0x00, "granted qos 0"}
	GrantedQoS1                         = ReasonCode{0x01, "granted qos 1"}
	GrantedQoS2                         = ReasonCode{0x02, "granted qos 2"}
	DisconnectWithWillMessage           = ReasonCode{0x04, "disconnect with will message"}
	NoMatchingSubscribers               = ReasonCode{0x10, "no matching subscribers"}
	NoSubscriptionExisted               = ReasonCode{0x11, "no subscription existed"}
	ContinueAuthentication              = ReasonCode{0x18, "continue authentication"}
	ReAuthenticate                      = ReasonCode{0x19, "re-authenticate"}
	UnspecifiedError                    = ReasonCode{0x80, "unspecified error"}
	MalformedPacket                     = ReasonCode{0x81, "malformed packet"}
	ProtocolError                       = ReasonCode{0x82, "protocol error"}
	ImplementationSpecificError         = ReasonCode{0x83, "implementation specific error"}
	UnsupportedProtocolVersion          = ReasonCode{0x84, "unsupported protocol version"}
	ClientIdentifierNotValid            = ReasonCode{0x85, "client identifier not valid"}
	BadUsernameOrPassword               = ReasonCode{0x86, "bad username or password"}
	NotAuthorized                       = ReasonCode{0x87, "not authorized"}
	ServerUnavailable                   = ReasonCode{0x88, "server unavailable"}
	ServerBusy                          = ReasonCode{0x89, "server busy"}
	Banned                              = ReasonCode{0x8A, "banned"}
	ServerShuttingDown                  = ReasonCode{0x8B, "server shutting down"}
	BadAuthenticationMethod             = ReasonCode{0x8C, "bad authentication method"}
	KeepAliveTimeoutReason              = ReasonCode{0x8D, "keep alive timeout"}
	SessionTakenOver                    = ReasonCode{0x8E, "session taken over"}
	TopicFilterInvalid                  = ReasonCode{0x8F, "topic filter invalid"}
	TopicNameInvalid                    = ReasonCode{0x90, "topic name invalid"}
	PacketIdentifierInUse               = ReasonCode{0x91, "packet identifier in use"}
	PacketIdentifierNotFound            = ReasonCode{0x92, "packet identifier not found"}
	ReceiveMaximumExceeded              = ReasonCode{0x93, "receive maximum exceeded"}
	TopicAliasInvalid                   = ReasonCode{0x94, "topic alias invalid"}
	PacketTooLargeReason                = ReasonCode{0x95, "packet too large"}
	MessageRateTooHigh                  = ReasonCode{0x96, "message rate too high"}
	QuotaExceeded                       = ReasonCode{0x97, "quota exceeded"}
	AdministrativeAction                = ReasonCode{0x98, "administrative action"}
	PayloadFormatInvalidReason          = ReasonCode{0x99, "payload format invalid"}
	RetainNotSupported                  = ReasonCode{0x9A, "retain not supported"}
	QoSNotSupported                     = ReasonCode{0x9B, "qos not supported"}
	UseAnotherServer                    = ReasonCode{0x9C, "use another server"}
	ServerMoved                         = ReasonCode{0x9D, "server moved"}
	SharedSubscriptionsNotSupported     = ReasonCode{0x9E, "shared subscriptions not supported"}
	ConnectionRateExceeded              = ReasonCode{0x9F, "connection rate exceeded"}
	MaximumConnectTime                  = ReasonCode{0xA0, "maximum connect time"}
	SubscriptionIdentifiersNotSupported = ReasonCode{0xA1, "subscription identifiers not supported"}
	WildcardSubscriptionsNotSupported   = ReasonCode{0xA2, "wildcard subscriptions not supported"}
)

// reasonCodeTable indexes every known reason code by value, used by the
// decoder to reject bytes that aren't a defined reason code.
var reasonCodeTable = func() map[byte]ReasonCode {
	m := map[byte]ReasonCode{}
	for _, rc := range []ReasonCode{
		Success, DisconnectWithWillMessage, NoMatchingSubscribers, NoSubscriptionExisted,
		ContinueAuthentication, ReAuthenticate, UnspecifiedError, MalformedPacket, ProtocolError,
		ImplementationSpecificError, UnsupportedProtocolVersion, ClientIdentifierNotValid,
		BadUsernameOrPassword, NotAuthorized, ServerUnavailable, ServerBusy, Banned,
		ServerShuttingDown, BadAuthenticationMethod, KeepAliveTimeoutReason, SessionTakenOver,
		TopicFilterInvalid, TopicNameInvalid, PacketIdentifierInUse, PacketIdentifierNotFound,
		ReceiveMaximumExceeded, TopicAliasInvalid, PacketTooLargeReason, MessageRateTooHigh,
		QuotaExceeded, AdministrativeAction, PayloadFormatInvalidReason, RetainNotSupported,
		QoSNotSupported, UseAnotherServer, ServerMoved, SharedSubscriptionsNotSupported,
		ConnectionRateExceeded, MaximumConnectTime, SubscriptionIdentifiersNotSupported,
		WildcardSubscriptionsNotSupported,
	} {
		m[rc.Code] = rc
	}
	// GrantedQoS1/2 (0x01/0x02) are not in this table; they only occur in
	// SUBACK, whose decoder names them itself (subackReasonName in suback.go).
	return m
}()

func lookupReasonCode(b byte) (ReasonCode, bool) {
	rc, ok := reasonCodeTable[b]
	return rc, ok
}
