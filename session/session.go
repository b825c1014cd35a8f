// Package session implements the MQTT v5.0 client session state machine:
// CONNECT/DISCONNECT, the QoS 0/1/2 publish flows, subscription
// bookkeeping, keep-alive, and topic aliasing. It owns all per-connection
// state but performs no I/O itself — every method returns the packets
// the caller (the dispatcher, in the root package) must write to the
// wire, keeping the state machine synchronous and trivially testable.
package session

import (
	"context"
	"time"

	"github.com/riftio/mqttv5/metrics"
	"github.com/riftio/mqttv5/packet"
	"github.com/riftio/mqttv5/pid"
	"github.com/riftio/mqttv5/router"
	"golang.org/x/sync/semaphore"
)

// State names the session's position in the CONNECT/DISCONNECT lifecycle.
type State int

const (
	Disconnected State = iota
	AwaitingConnack
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AwaitingConnack:
		return "awaiting_connack"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type pubPhase int

const (
	awaitPuback pubPhase = iota
	awaitPubrec
	awaitPubcomp
)

type publishFlight struct {
	qos    byte
	phase  pubPhase
	waiter *Waiter[PubAckReason]
}

type subFlight struct {
	waiter  *Waiter[SubscribeResult]
	filters []string
	options []packet.Subscription
	sid     uint32
}

type unsubFlight struct {
	waiter  *Waiter[UnsubscribeResult]
	filters []string
}

// defaultQueueDepth bounds each subscription's consumer queue.
const defaultQueueDepth = 64

// Session holds all per-connection state for one MQTT v5 client
// connection. It is not safe for concurrent use: the dispatcher's single
// run loop is the only caller.
type Session struct {
	State State

	ClientID string

	pids   pid.Registry
	Router *router.Router

	quota    *semaphore.Weighted
	quotaMax int64

	inFlightPub   map[uint16]*publishFlight
	inFlightSub   map[uint16]*subFlight
	inFlightUnsub map[uint16]*unsubFlight
	inFlightRecv  map[uint16]bool // QoS2 inbound: pid -> PUBREC already sent

	nextSID uint32

	topicAliasesIn  map[uint16]string
	topicAliasesOut map[string]uint16
	nextOutAlias    uint16

	clientTopicAliasMax uint16
	serverTopicAliasMax uint16
	serverMaxQoS        byte
	serverRetainOK      bool
	serverMaxPacketSize *uint32

	KeepAlive time.Duration

	connectWaiter *Waiter[ConnectResult]
	pingWaiter    *Waiter[struct{}]

	metrics *metrics.Collector
}

// New returns a fresh, disconnected Session. m may be nil.
func New(m *metrics.Collector) *Session {
	return &Session{
		State:           Disconnected,
		Router:          router.New(),
		inFlightPub:     make(map[uint16]*publishFlight),
		inFlightSub:     make(map[uint16]*subFlight),
		inFlightUnsub:   make(map[uint16]*unsubFlight),
		inFlightRecv:    make(map[uint16]bool),
		topicAliasesIn:  make(map[uint16]string),
		topicAliasesOut: make(map[string]uint16),
		metrics:         m,
	}
}

// BeginConnect builds the CONNECT packet for opts and transitions the
// session to AwaitingConnack. w resolves when CONNACK arrives (see
// HandleConnack).
func (s *Session) BeginConnect(opts ConnectOptions, w *Waiter[ConnectResult]) *packet.Connect {
	s.ClientID = opts.ClientID
	s.clientTopicAliasMax = opts.TopicAliasMaximum
	s.KeepAlive = opts.KeepAlive
	s.quotaMax = int64(opts.ReceiveMaximum)
	if s.quotaMax <= 0 {
		s.quotaMax = 65535
	}
	s.quota = semaphore.NewWeighted(s.quotaMax)

	props := &packet.Properties{
		SessionExpiryInterval:      opts.SessionExpiryInterval,
		ReceiveMaximum:             u16ptr(opts.ReceiveMaximum),
		MaximumPacketSize:          opts.MaximumPacketSize,
		TopicAliasMaximum:          u16ptr(opts.TopicAliasMaximum),
		UserProperties:             opts.UserProperties,
		AuthenticationMethod:       opts.AuthenticationMethod,
		AuthenticationData:         opts.AuthenticationData,
	}
	if opts.RequestResponseInformation {
		props.RequestResponseInformation = bytePtr(1)
	}
	if opts.RequestProblemInformation {
		props.RequestProblemInformation = bytePtr(0)
	}

	pkt := &packet.Connect{
		ProtocolName:    "MQTT",
		ProtocolVersion: 0x05,
		CleanStart:      opts.CleanStart,
		KeepAlive:       uint16(opts.KeepAlive / time.Second),
		Properties:      props,
		ClientID:        opts.ClientID,
	}
	if opts.Username != nil {
		pkt.UsernameFlag = true
		pkt.Username = *opts.Username
	}
	if opts.Password != nil {
		pkt.PasswordFlag = true
		pkt.Password = opts.Password
	}
	if opts.Will != nil {
		pkt.WillFlag = true
		pkt.WillQoS = opts.Will.QoS
		pkt.WillRetain = opts.Will.Retain
		pkt.WillTopic = opts.Will.Topic
		pkt.WillPayload = opts.Will.Payload
		wprops := opts.Will.Properties
		if wprops == nil {
			wprops = &packet.Properties{}
		}
		if opts.Will.DelayInterval != nil {
			wprops.WillDelayInterval = opts.Will.DelayInterval
		}
		pkt.WillProperties = wprops
	}

	s.State = AwaitingConnack
	s.connectWaiter = w
	return pkt
}

// HandleConnack applies a decoded CONNACK. A non-nil error is fatal and
// the caller must terminate the run loop.
func (s *Session) HandleConnack(ca *packet.Connack) error {
	if s.State != AwaitingConnack {
		return &ProtocolError{Detail: "CONNACK received outside AwaitingConnack"}
	}
	if !ca.ReasonCode.Success() {
		s.State = Disconnected
		if s.connectWaiter != nil {
			s.connectWaiter.Fail(&ConnectionRefused{Reason: ca.ReasonCode})
		}
		return &ConnectionRefused{Reason: ca.ReasonCode}
	}

	s.State = Connected
	p := ca.Properties
	result := ConnectResult{
		SessionPresent:    ca.SessionPresent,
		AssignedClientID:  s.ClientID,
		ReceiveMaximum:    65535,
		MaximumQoS:        2,
		RetainAvailable:   true,
		TopicAliasMaximum: 0,
		WildcardAvailable: true,
		SubscriptionIDAvailable: true,
		SharedSubscriptionAvailable: true,
		Properties: p,
	}
	if p != nil {
		if p.AssignedClientIdentifier != nil {
			s.ClientID = *p.AssignedClientIdentifier
			result.AssignedClientID = s.ClientID
		}
		if p.ServerKeepAlive != nil {
			s.KeepAlive = time.Duration(*p.ServerKeepAlive) * time.Second
			result.ServerKeepAlive = p.ServerKeepAlive
		}
		if p.ReceiveMaximum != nil {
			result.ReceiveMaximum = *p.ReceiveMaximum
			s.quotaMax = int64(*p.ReceiveMaximum)
			s.quota = semaphore.NewWeighted(s.quotaMax)
		} else {
			// Absent Receive Maximum means the broker imposes no limit
			// (MQTT v5.0 §3.2.2.3.3): 65535, not whatever this client
			// advertised for its own inbound cap in BeginConnect.
			result.ReceiveMaximum = 65535
			s.quotaMax = 65535
			s.quota = semaphore.NewWeighted(s.quotaMax)
		}
		if p.MaximumQoS != nil {
			s.serverMaxQoS = *p.MaximumQoS
			result.MaximumQoS = *p.MaximumQoS
		} else {
			s.serverMaxQoS = 2
		}
		if p.RetainAvailable != nil {
			s.serverRetainOK = *p.RetainAvailable
			result.RetainAvailable = *p.RetainAvailable
		} else {
			s.serverRetainOK = true
		}
		s.serverMaxPacketSize = p.MaximumPacketSize
		result.MaximumPacketSize = p.MaximumPacketSize
		if p.TopicAliasMaximum != nil {
			s.serverTopicAliasMax = *p.TopicAliasMaximum
			result.TopicAliasMaximum = *p.TopicAliasMaximum
		}
		if p.WildcardSubscriptionAvailable != nil {
			result.WildcardAvailable = *p.WildcardSubscriptionAvailable
		}
		if p.SubscriptionIdentifierAvailable != nil {
			result.SubscriptionIDAvailable = *p.SubscriptionIdentifierAvailable
		}
		if p.SharedSubscriptionAvailable != nil {
			result.SharedSubscriptionAvailable = *p.SharedSubscriptionAvailable
		}
	} else {
		s.serverMaxQoS = 2
		s.serverRetainOK = true
	}

	if s.connectWaiter != nil {
		s.connectWaiter.Resolve(result)
	}
	return nil
}

// BeginPublish builds the outbound PUBLISH for opts, applying the
// receive-maximum quota gate for QoS>=1 (MQTT v5.0 §4.9). w is only
// consulted for QoS>=1; a QoS 0 publish is fire-and-forget by contract
// and the caller must resolve its own waiter once the write succeeds.
//
// The quota gate never blocks: this method runs on the dispatcher's
// single run-loop goroutine, and that same goroutine is the only one
// that can ever read the PUBACK/PUBREC/PUBCOMP that frees a slot. A
// blocking acquire here would wedge the connection. When the quota is
// exhausted this returns ErrQuotaExhausted and the caller (the
// dispatcher) is responsible for retrying once a slot frees.
func (s *Session) BeginPublish(ctx context.Context, opts PublishOptions, w *Waiter[PubAckReason]) (*packet.Publish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.QoS > s.serverMaxQoS {
		return nil, ErrQoSNotSupported
	}
	if opts.Retain && !s.serverRetainOK {
		return nil, ErrRetainNotSupported
	}

	props := &packet.Properties{
		ContentType:            opts.ContentType,
		ResponseTopic:          opts.ResponseTopic,
		UserProperties:         opts.UserProperties,
		MessageExpiryInterval:  opts.MessageExpiryInterval,
		PayloadFormatIndicator: opts.PayloadFormatIndicator,
	}
	if opts.CorrelationData != nil {
		props.CorrelationData = opts.CorrelationData
	}

	topic := opts.Topic
	if opts.UseTopicAlias && s.clientTopicAliasMax > 0 {
		if alias, ok := s.topicAliasesOut[opts.Topic]; ok {
			props.TopicAlias = u16ptr(alias)
			topic = ""
		} else if s.nextOutAlias < s.clientTopicAliasMax {
			s.nextOutAlias++
			alias := s.nextOutAlias
			s.topicAliasesOut[opts.Topic] = alias
			props.TopicAlias = u16ptr(alias)
		}
	}

	pkt := &packet.Publish{
		FixedHeader: packet.FixedHeader{QoS: opts.QoS, Retain: opts.Retain},
		TopicName:   topic,
		Properties:  props,
		Payload:     opts.Payload,
	}

	if opts.QoS == 0 {
		return pkt, nil
	}

	if s.quota == nil {
		s.quota = semaphore.NewWeighted(65535)
		s.quotaMax = 65535
	}
	if !s.quota.TryAcquire(1) {
		return nil, ErrQuotaExhausted
	}

	id, err := s.pids.Allocate()
	if err != nil {
		s.quota.Release(1)
		return nil, ErrNoFreeIDs
	}
	pkt.PacketID = id

	phase := awaitPuback
	if opts.QoS == 2 {
		phase = awaitPubrec
	}
	s.inFlightPub[id] = &publishFlight{qos: opts.QoS, phase: phase, waiter: w}
	s.metrics.SetInFlightOutbound(len(s.inFlightPub))
	return pkt, nil
}

// HandlePuback completes a QoS 1 publish flight.
func (s *Session) HandlePuback(p *packet.Puback) error {
	flight, ok := s.inFlightPub[p.PacketID]
	if !ok {
		return &ProtocolError{Detail: "PUBACK for unknown packet identifier"}
	}
	if flight.phase != awaitPuback {
		return &ProtocolError{Detail: "PUBACK while not awaiting one"}
	}
	s.releasePub(p.PacketID)
	flight.waiter.Resolve(PubAckReason{Reason: p.ReasonCode})
	return nil
}

// HandlePubrec advances a QoS 2 publish flight and returns the PUBREL to
// send, unless the broker refused the message (reason >= 0x80), in which
// case the flight ends here.
func (s *Session) HandlePubrec(p *packet.Pubrec) (*packet.Pubrel, error) {
	flight, ok := s.inFlightPub[p.PacketID]
	if !ok {
		return nil, &ProtocolError{Detail: "PUBREC for unknown packet identifier"}
	}
	if flight.phase != awaitPubrec {
		return nil, &ProtocolError{Detail: "PUBREC while not awaiting one"}
	}
	if !p.ReasonCode.Success() {
		s.releasePub(p.PacketID)
		flight.waiter.Resolve(PubAckReason{Reason: p.ReasonCode})
		return nil, nil
	}
	flight.phase = awaitPubcomp
	return packet.NewPubrel(p.PacketID, packet.Success, nil), nil
}

// HandlePubcomp completes a QoS 2 publish flight.
func (s *Session) HandlePubcomp(p *packet.Pubcomp) error {
	flight, ok := s.inFlightPub[p.PacketID]
	if !ok {
		return &ProtocolError{Detail: "PUBCOMP for unknown packet identifier"}
	}
	if flight.phase != awaitPubcomp {
		return &ProtocolError{Detail: "PUBCOMP while not awaiting one"}
	}
	s.releasePub(p.PacketID)
	flight.waiter.Resolve(PubAckReason{Reason: p.ReasonCode})
	return nil
}

func (s *Session) releasePub(id uint16) {
	delete(s.inFlightPub, id)
	_ = s.pids.Release(id)
	if s.quota != nil {
		s.quota.Release(1)
	}
	s.metrics.SetInFlightOutbound(len(s.inFlightPub))
}

// HandleInboundPublish processes a decoded inbound PUBLISH, resolving
// topic aliases, delivering to the router, and returning whatever
// acknowledgement packet (PUBACK/PUBREC) must be sent. A nil return means
// QoS 0: no ack, delivery only.
func (s *Session) HandleInboundPublish(p *packet.Publish) (packet.Packet, error) {
	topic := p.TopicName
	if p.Properties != nil && p.Properties.TopicAlias != nil {
		alias := *p.Properties.TopicAlias
		if topic != "" {
			s.topicAliasesIn[alias] = topic
		} else {
			known, ok := s.topicAliasesIn[alias]
			if !ok {
				return nil, &ProtocolError{Detail: "topic alias referenced before assignment"}
			}
			topic = known
		}
	}

	deliver := func() {
		var sids []uint32
		if p.Properties != nil {
			sids = p.Properties.SubscriptionIdentifier
		}
		msg := &router.Message{
			Topic:      topic,
			Payload:    append([]byte{}, p.Payload...),
			QoS:        p.QoS,
			Retain:     p.Retain,
			Properties: p.Properties,
		}
		// Multiple matched filters can share one Queue when they were
		// granted under the same subscription identifier (see
		// router.Router.Add); dedupe so an overlap doesn't deliver the
		// same message twice onto that queue.
		delivered := make(map[chan *router.Message]bool)
		for _, sub := range s.Router.Route(topic, sids) {
			if delivered[sub.Queue] {
				continue
			}
			delivered[sub.Queue] = true
			select {
			case sub.Queue <- msg:
			default:
			}
		}
	}

	switch p.QoS {
	case 0:
		deliver()
		return nil, nil
	case 1:
		deliver()
		return packet.NewPuback(p.PacketID, packet.Success, nil), nil
	case 2:
		if s.inFlightRecv[p.PacketID] {
			return packet.NewPubrec(p.PacketID, packet.Success, nil), nil
		}
		s.inFlightRecv[p.PacketID] = true
		s.metrics.SetInFlightInbound(len(s.inFlightRecv))
		deliver()
		return packet.NewPubrec(p.PacketID, packet.Success, nil), nil
	default:
		return nil, &ProtocolError{Detail: "publish with invalid qos"}
	}
}

// HandlePubrel completes the inbound QoS 2 handshake, returning the
// PUBCOMP to send.
func (s *Session) HandlePubrel(p *packet.Pubrel) *packet.Pubcomp {
	delete(s.inFlightRecv, p.PacketID)
	s.metrics.SetInFlightInbound(len(s.inFlightRecv))
	return packet.NewPubcomp(p.PacketID, packet.Success, nil)
}

// BeginSubscribe builds the SUBSCRIBE packet for the requested filters,
// pre-allocating the subscription identifier and attaching it to the
// packet; HandleSuback registers it for each granted filter (MQTT v5.0
// §3.8.3.1, §2.2.2.2).
func (s *Session) BeginSubscribe(opts []SubscriptionOptions, userProps []packet.UserProperty, w *Waiter[SubscribeResult]) (*packet.Subscribe, error) {
	if len(opts) == 0 {
		return nil, &ProtocolError{Detail: "subscribe with no filters"}
	}
	id, err := s.pids.Allocate()
	if err != nil {
		return nil, ErrNoFreeIDs
	}
	s.nextSID++
	sid := s.nextSID

	subs := make([]packet.Subscription, len(opts))
	filters := make([]string, len(opts))
	for i, o := range opts {
		subs[i] = packet.Subscription{
			TopicFilter:       o.Filter,
			MaximumQoS:        o.MaximumQoS,
			NoLocal:           o.NoLocal,
			RetainAsPublished: o.RetainAsPublished,
			RetainHandling:    o.RetainHandling,
		}
		filters[i] = o.Filter
	}

	pkt := &packet.Subscribe{
		PacketID: id,
		Properties: &packet.Properties{
			SubscriptionIdentifier: []uint32{sid},
			UserProperties:         userProps,
		},
		Subscriptions: subs,
	}

	s.inFlightSub[id] = &subFlight{waiter: w, filters: filters, options: subs, sid: sid}
	return pkt, nil
}

// HandleSuback completes a pending subscribe, registering the
// subscription's consumer queues under its pre-allocated sid when at
// least one filter was granted.
func (s *Session) HandleSuback(sa *packet.Suback) error {
	flight, ok := s.inFlightSub[sa.PacketID]
	if !ok {
		return &ProtocolError{Detail: "SUBACK for unknown packet identifier"}
	}
	if len(sa.ReasonCodes) != len(flight.filters) {
		return &ProtocolError{Detail: "SUBACK reason count does not match filter count"}
	}
	delete(s.inFlightSub, sa.PacketID)
	_ = s.pids.Release(sa.PacketID)

	anySuccess := false
	for _, rc := range sa.ReasonCodes {
		if rc.Success() {
			anySuccess = true
			break
		}
	}
	result := SubscribeResult{ReasonCodes: sa.ReasonCodes}
	if anySuccess {
		result.SID = flight.sid
		for i, rc := range sa.ReasonCodes {
			if !rc.Success() {
				continue
			}
			s.Router.Add(flight.filters[i], flight.options[i], flight.sid, defaultQueueDepth)
		}
	}
	flight.waiter.Resolve(result)
	return nil
}

// BeginUnsubscribe builds the UNSUBSCRIBE packet for filters.
func (s *Session) BeginUnsubscribe(filters []string, userProps []packet.UserProperty, w *Waiter[UnsubscribeResult]) (*packet.Unsubscribe, error) {
	if len(filters) == 0 {
		return nil, &ProtocolError{Detail: "unsubscribe with no filters"}
	}
	id, err := s.pids.Allocate()
	if err != nil {
		return nil, ErrNoFreeIDs
	}
	pkt := &packet.Unsubscribe{
		PacketID:     id,
		Properties:   &packet.Properties{UserProperties: userProps},
		TopicFilters: filters,
	}
	s.inFlightUnsub[id] = &unsubFlight{waiter: w, filters: filters}
	return pkt, nil
}

// HandleUnsuback completes a pending unsubscribe. No router change is
// made here: the consumer queue is dropped only when the
// caller discards its stream handle.
func (s *Session) HandleUnsuback(ua *packet.Unsuback) error {
	flight, ok := s.inFlightUnsub[ua.PacketID]
	if !ok {
		return &ProtocolError{Detail: "UNSUBACK for unknown packet identifier"}
	}
	if len(ua.ReasonCodes) != len(flight.filters) {
		return &ProtocolError{Detail: "UNSUBACK reason count does not match filter count"}
	}
	delete(s.inFlightUnsub, ua.PacketID)
	_ = s.pids.Release(ua.PacketID)
	flight.waiter.Resolve(UnsubscribeResult{ReasonCodes: ua.ReasonCodes})
	return nil
}

// BeginPing builds the PINGREQ for a keep-alive round trip. The caller is
// responsible for invoking this at intervals shorter than KeepAlive; the
// core does not schedule pings itself.
func (s *Session) BeginPing(w *Waiter[struct{}]) *packet.Pingreq {
	s.pingWaiter = w
	return &packet.Pingreq{}
}

// HandlePingresp completes the pending ping, if any. A PINGRESP with no
// pending ping is ignored rather than treated as a protocol error: it is
// harmless and some brokers have been observed to send one speculatively.
func (s *Session) HandlePingresp(*packet.Pingresp) {
	if s.pingWaiter != nil {
		s.pingWaiter.Resolve(struct{}{})
		s.pingWaiter = nil
	}
}

// BeginDisconnect builds a user-initiated DISCONNECT packet.
func (s *Session) BeginDisconnect(opts DisconnectOptions) *packet.Disconnect {
	reason := opts.Reason
	if reason.Code == 0 && reason.Reason == "" {
		reason = packet.NormalDisconnection
	}
	return &packet.Disconnect{
		ReasonCode: reason,
		Properties: &packet.Properties{
			SessionExpiryInterval: opts.SessionExpiryInterval,
			ReasonString:          opts.ReasonString,
			UserProperties:        opts.UserProperties,
		},
	}
}

// FailAll resolves every outstanding waiter with err. Called whenever the
// run loop terminates; after a clean user disconnect err is
// ErrConnectionLost.
func (s *Session) FailAll(err error) {
	if s.connectWaiter != nil {
		s.connectWaiter.Fail(err)
	}
	for _, f := range s.inFlightPub {
		f.waiter.Fail(err)
	}
	for _, f := range s.inFlightSub {
		f.waiter.Fail(err)
	}
	for _, f := range s.inFlightUnsub {
		f.waiter.Fail(err)
	}
	if s.pingWaiter != nil {
		s.pingWaiter.Fail(err)
	}
}

func u16ptr(v uint16) *uint16 {
	if v == 0 {
		return nil
	}
	return &v
}

func bytePtr(v byte) *byte { return &v }
