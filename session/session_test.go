package session

import (
	"context"
	"testing"

	"github.com/riftio/mqttv5/packet"
	"golang.org/x/sync/semaphore"
)

func TestConnectConnackRoundTrip(t *testing.T) {
	s := New(nil)
	w := NewWaiter[ConnectResult]()
	pkt := s.BeginConnect(ConnectOptions{ClientID: "c1", ReceiveMaximum: 10}, w)
	if pkt.ClientID != "c1" {
		t.Fatalf("ClientID = %q, want c1", pkt.ClientID)
	}
	if s.State != AwaitingConnack {
		t.Fatalf("State = %v, want AwaitingConnack", s.State)
	}

	rm := uint16(20)
	maxQoS := byte(1)
	if err := s.HandleConnack(&packet.Connack{
		ReasonCode: packet.Success,
		Properties: &packet.Properties{ReceiveMaximum: &rm, MaximumQoS: &maxQoS},
	}); err != nil {
		t.Fatalf("HandleConnack error: %v", err)
	}
	if s.State != Connected {
		t.Fatalf("State = %v, want Connected", s.State)
	}

	result, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.ReceiveMaximum != 20 || result.MaximumQoS != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestConnackFailureRefusesConnect(t *testing.T) {
	s := New(nil)
	w := NewWaiter[ConnectResult]()
	s.BeginConnect(ConnectOptions{ClientID: "c1"}, w)

	err := s.HandleConnack(&packet.Connack{ReasonCode: packet.NotAuthorized})
	if err == nil {
		t.Fatal("HandleConnack error = nil, want refusal")
	}
	if s.State != Disconnected {
		t.Fatalf("State = %v, want Disconnected", s.State)
	}
	if _, werr := w.Wait(context.Background()); werr == nil {
		t.Fatal("waiter did not fail on connack refusal")
	}
}

func connectedSession(t *testing.T) *Session {
	t.Helper()
	s := New(nil)
	w := NewWaiter[ConnectResult]()
	s.BeginConnect(ConnectOptions{ClientID: "c1"}, w)
	if err := s.HandleConnack(&packet.Connack{ReasonCode: packet.Success}); err != nil {
		t.Fatalf("HandleConnack error: %v", err)
	}
	return s
}

func TestPublishQoS0SkipsInFlightBookkeeping(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[PubAckReason]()
	pkt, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 0}, w)
	if err != nil {
		t.Fatalf("BeginPublish error: %v", err)
	}
	if pkt.PacketID != 0 {
		t.Fatalf("PacketID = %d, want 0 for QoS 0", pkt.PacketID)
	}
	if len(s.inFlightPub) != 0 {
		t.Fatalf("inFlightPub = %d entries, want 0", len(s.inFlightPub))
	}
}

func TestPublishQoS1Flow(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[PubAckReason]()
	pkt, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 1}, w)
	if err != nil {
		t.Fatalf("BeginPublish error: %v", err)
	}
	if pkt.PacketID == 0 {
		t.Fatal("PacketID = 0, want nonzero for QoS 1")
	}
	if len(s.inFlightPub) != 1 {
		t.Fatalf("inFlightPub = %d entries, want 1", len(s.inFlightPub))
	}

	if err := s.HandlePuback(&packet.Puback{PacketID: pkt.PacketID, ReasonCode: packet.Success}); err != nil {
		t.Fatalf("HandlePuback error: %v", err)
	}
	if len(s.inFlightPub) != 0 {
		t.Fatalf("inFlightPub after ack = %d entries, want 0", len(s.inFlightPub))
	}
	result, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.Reason.Code != packet.Success.Code {
		t.Fatalf("Reason = %+v, want Success", result.Reason)
	}
}

func TestPublishQoS2Flow(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[PubAckReason]()
	pkt, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 2}, w)
	if err != nil {
		t.Fatalf("BeginPublish error: %v", err)
	}

	pubrel, err := s.HandlePubrec(&packet.Pubrec{PacketID: pkt.PacketID, ReasonCode: packet.Success})
	if err != nil {
		t.Fatalf("HandlePubrec error: %v", err)
	}
	if pubrel == nil {
		t.Fatal("HandlePubrec returned nil PUBREL on success")
	}
	if len(s.inFlightPub) != 1 {
		t.Fatalf("inFlightPub after pubrec = %d entries, want 1 (still awaiting pubcomp)", len(s.inFlightPub))
	}

	if err := s.HandlePubcomp(&packet.Pubcomp{PacketID: pkt.PacketID, ReasonCode: packet.Success}); err != nil {
		t.Fatalf("HandlePubcomp error: %v", err)
	}
	if len(s.inFlightPub) != 0 {
		t.Fatalf("inFlightPub after pubcomp = %d entries, want 0", len(s.inFlightPub))
	}
	if _, err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
}

func TestPublishQoS2RejectedByBrokerEndsFlightAtPubrec(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[PubAckReason]()
	pkt, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 2}, w)
	if err != nil {
		t.Fatalf("BeginPublish error: %v", err)
	}

	pubrel, err := s.HandlePubrec(&packet.Pubrec{PacketID: pkt.PacketID, ReasonCode: packet.NotAuthorized})
	if err != nil {
		t.Fatalf("HandlePubrec error: %v", err)
	}
	if pubrel != nil {
		t.Fatal("HandlePubrec returned non-nil PUBREL on broker refusal")
	}
	if len(s.inFlightPub) != 0 {
		t.Fatalf("inFlightPub = %d entries, want 0 after refusal", len(s.inFlightPub))
	}
	result, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.Reason.Code != packet.NotAuthorized.Code {
		t.Fatalf("Reason = %+v, want NotAuthorized", result.Reason)
	}
}

func TestPubackForUnknownPacketIDIsProtocolError(t *testing.T) {
	s := connectedSession(t)
	if err := s.HandlePuback(&packet.Puback{PacketID: 99, ReasonCode: packet.Success}); err == nil {
		t.Fatal("HandlePuback error = nil, want protocol error")
	}
}

func TestPublishRejectsQoSAboveServerMax(t *testing.T) {
	s := connectedSession(t)
	s.serverMaxQoS = 1
	w := NewWaiter[PubAckReason]()
	if _, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 2}, w); err != ErrQoSNotSupported {
		t.Fatalf("BeginPublish error = %v, want ErrQoSNotSupported", err)
	}
}

func TestPublishRejectsRetainWhenUnsupported(t *testing.T) {
	s := connectedSession(t)
	s.serverRetainOK = false
	w := NewWaiter[PubAckReason]()
	if _, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 0, Retain: true}, w); err != ErrRetainNotSupported {
		t.Fatalf("BeginPublish error = %v, want ErrRetainNotSupported", err)
	}
}

func TestReceiveMaximumQuotaGatesOnExhaustion(t *testing.T) {
	s := connectedSession(t)
	s.quotaMax = 1
	s.quota = semaphore.NewWeighted(1)

	first := NewWaiter[PubAckReason]()
	if _, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 1}, first); err != nil {
		t.Fatalf("first BeginPublish error: %v", err)
	}

	// The single slot is still in flight (no PUBACK yet), so a second
	// QoS>=1 publish on a live context must not block: BeginPublish runs
	// on the dispatcher's run-loop goroutine, and that goroutine is the
	// only one that could ever free the slot.
	second := NewWaiter[PubAckReason]()
	if _, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 1}, second); err != ErrQuotaExhausted {
		t.Fatalf("second BeginPublish error = %v, want ErrQuotaExhausted", err)
	}
}

func TestReceiveMaximumQuotaRejectsCancelledContextBeforeAcquiring(t *testing.T) {
	s := connectedSession(t)
	s.quotaMax = 1
	s.quota = semaphore.NewWeighted(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWaiter[PubAckReason]()
	if _, err := s.BeginPublish(ctx, PublishOptions{Topic: "t", QoS: 1}, w); err != context.Canceled {
		t.Fatalf("BeginPublish error = %v, want context.Canceled", err)
	}
}

func TestSubscribeGrantedRegistersRouterSubscription(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[SubscribeResult]()
	pkt, err := s.BeginSubscribe([]SubscriptionOptions{{Filter: "a/b", MaximumQoS: 1}}, nil, w)
	if err != nil {
		t.Fatalf("BeginSubscribe error: %v", err)
	}

	err = s.HandleSuback(&packet.Suback{
		PacketID:    pkt.PacketID,
		ReasonCodes: []packet.ReasonCode{packet.GrantedQoS1},
	})
	if err != nil {
		t.Fatalf("HandleSuback error: %v", err)
	}
	result, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.SID == 0 {
		t.Fatal("SID = 0, want nonzero on a granted subscribe")
	}

	matched := s.Router.Route("a/b", []uint32{result.SID})
	if len(matched) != 1 {
		t.Fatalf("Route by sid = %d matches, want 1", len(matched))
	}
}

func TestSubscribeEntirelyRefusedRegistersNoRoute(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[SubscribeResult]()
	pkt, err := s.BeginSubscribe([]SubscriptionOptions{{Filter: "a/b"}}, nil, w)
	if err != nil {
		t.Fatalf("BeginSubscribe error: %v", err)
	}
	err = s.HandleSuback(&packet.Suback{
		PacketID:    pkt.PacketID,
		ReasonCodes: []packet.ReasonCode{packet.NotAuthorized},
	})
	if err != nil {
		t.Fatalf("HandleSuback error: %v", err)
	}
	result, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.SID != 0 {
		t.Fatalf("SID = %d, want 0 on a fully refused subscribe", result.SID)
	}
	if matched := s.Router.Route("a/b", nil); len(matched) != 0 {
		t.Fatalf("Route(a/b) = %d matches, want 0 on a fully refused subscribe", len(matched))
	}
}

func TestBeginSubscribeRejectsEmptyFilterList(t *testing.T) {
	s := connectedSession(t)
	if _, err := s.BeginSubscribe(nil, nil, NewWaiter[SubscribeResult]()); err == nil {
		t.Fatal("BeginSubscribe error = nil, want protocol error")
	}
}

func TestUnsubscribeFlow(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[UnsubscribeResult]()
	pkt, err := s.BeginUnsubscribe([]string{"a/b"}, nil, w)
	if err != nil {
		t.Fatalf("BeginUnsubscribe error: %v", err)
	}
	err = s.HandleUnsuback(&packet.Unsuback{
		PacketID:    pkt.PacketID,
		ReasonCodes: []packet.ReasonCode{packet.Success},
	})
	if err != nil {
		t.Fatalf("HandleUnsuback error: %v", err)
	}
	if _, err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
}

func TestInboundPublishQoS0DeliversNoAck(t *testing.T) {
	s := connectedSession(t)
	sub := s.Router.Add("a/b", packet.Subscription{}, 0, 4)
	ack, err := s.HandleInboundPublish(&packet.Publish{
		FixedHeader: packet.FixedHeader{QoS: 0},
		TopicName:   "a/b",
		Payload:     []byte("hi"),
	})
	if err != nil {
		t.Fatalf("HandleInboundPublish error: %v", err)
	}
	if ack != nil {
		t.Fatalf("ack = %v, want nil for QoS 0", ack)
	}
	select {
	case msg := <-sub.Queue:
		if msg.Topic != "a/b" {
			t.Fatalf("delivered topic = %q, want a/b", msg.Topic)
		}
	default:
		t.Fatal("message was not delivered to subscription queue")
	}
}

func TestInboundPublishQoS2DedupesOnRetransmit(t *testing.T) {
	s := connectedSession(t)
	sub := s.Router.Add("a/b", packet.Subscription{}, 0, 4)
	in := &packet.Publish{
		FixedHeader: packet.FixedHeader{QoS: 2},
		TopicName:   "a/b",
		PacketID:    7,
		Payload:     []byte("hi"),
	}
	if _, err := s.HandleInboundPublish(in); err != nil {
		t.Fatalf("first HandleInboundPublish error: %v", err)
	}
	if _, err := s.HandleInboundPublish(in); err != nil {
		t.Fatalf("duplicate HandleInboundPublish error: %v", err)
	}
	if len(sub.Queue) != 1 {
		t.Fatalf("queue depth = %d, want 1 (retransmit must not re-deliver)", len(sub.Queue))
	}

	comp := s.HandlePubrel(&packet.Pubrel{PacketID: 7})
	if comp.PacketID != 7 {
		t.Fatalf("PUBCOMP PacketID = %d, want 7", comp.PacketID)
	}
}

func TestInboundPublishWithUnknownTopicAliasIsProtocolError(t *testing.T) {
	s := connectedSession(t)
	alias := uint16(5)
	_, err := s.HandleInboundPublish(&packet.Publish{
		TopicName:  "",
		Properties: &packet.Properties{TopicAlias: &alias},
	})
	if err == nil {
		t.Fatal("HandleInboundPublish error = nil, want protocol error for unassigned alias")
	}
}

func TestOutboundTopicAliasReusesAssignment(t *testing.T) {
	s := connectedSession(t)
	s.clientTopicAliasMax = 10

	w1 := NewWaiter[PubAckReason]()
	pkt1, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "a/b", QoS: 0, UseTopicAlias: true}, w1)
	if err != nil {
		t.Fatalf("first BeginPublish error: %v", err)
	}
	if pkt1.Properties.TopicAlias == nil {
		t.Fatal("first publish did not assign a topic alias")
	}
	if pkt1.TopicName != "a/b" {
		t.Fatalf("first publish TopicName = %q, want a/b (alias assignment still carries full topic)", pkt1.TopicName)
	}

	w2 := NewWaiter[PubAckReason]()
	pkt2, err := s.BeginPublish(context.Background(), PublishOptions{Topic: "a/b", QoS: 0, UseTopicAlias: true}, w2)
	if err != nil {
		t.Fatalf("second BeginPublish error: %v", err)
	}
	if pkt2.TopicName != "" {
		t.Fatalf("second publish TopicName = %q, want empty (alias already assigned)", pkt2.TopicName)
	}
	if *pkt2.Properties.TopicAlias != *pkt1.Properties.TopicAlias {
		t.Fatalf("second publish alias = %d, want %d (reuse)", *pkt2.Properties.TopicAlias, *pkt1.Properties.TopicAlias)
	}
}

func TestPingRoundTrip(t *testing.T) {
	s := connectedSession(t)
	w := NewWaiter[struct{}]()
	s.BeginPing(w)
	s.HandlePingresp(&packet.Pingresp{})
	if _, err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
}

func TestPingrespWithNoPendingPingIsIgnored(t *testing.T) {
	s := connectedSession(t)
	s.HandlePingresp(&packet.Pingresp{}) // must not panic
}

func TestFailAllFailsEveryWaiter(t *testing.T) {
	s := connectedSession(t)
	pubW := NewWaiter[PubAckReason]()
	s.BeginPublish(context.Background(), PublishOptions{Topic: "t", QoS: 1}, pubW)
	subW := NewWaiter[SubscribeResult]()
	s.BeginSubscribe([]SubscriptionOptions{{Filter: "a"}}, nil, subW)
	unsubW := NewWaiter[UnsubscribeResult]()
	s.BeginUnsubscribe([]string{"a"}, nil, unsubW)
	pingW := NewWaiter[struct{}]()
	s.BeginPing(pingW)

	s.FailAll(ErrConnectionLost)

	for name, wait := range map[string]func() error{
		"publish": func() error { _, err := pubW.Wait(context.Background()); return err },
		"subscribe": func() error { _, err := subW.Wait(context.Background()); return err },
		"unsubscribe": func() error { _, err := unsubW.Wait(context.Background()); return err },
		"ping": func() error { _, err := pingW.Wait(context.Background()); return err },
	} {
		if err := wait(); err != ErrConnectionLost {
			t.Errorf("%s waiter error = %v, want ErrConnectionLost", name, err)
		}
	}
}
