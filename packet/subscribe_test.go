package packet

import (
	"bufio"
	"bytes"
	"testing"
)

func TestSubscribeOptionsByteRoundTrip(t *testing.T) {
	cases := []Subscription{
		{MaximumQoS: 0},
		{MaximumQoS: 2, NoLocal: true},
		{MaximumQoS: 1, RetainAsPublished: true, RetainHandling: SendRetainedIfNewSubscription},
		{MaximumQoS: 0, RetainHandling: DoNotSendRetained},
	}
	for _, c := range cases {
		b, err := c.optionsByte()
		if err != nil {
			t.Fatalf("optionsByte(%+v) error: %v", c, err)
		}
		got, err := decodeSubscriptionOptions(b)
		if err != nil {
			t.Fatalf("decodeSubscriptionOptions(%#x) error: %v", b, err)
		}
		if got.MaximumQoS != c.MaximumQoS || got.NoLocal != c.NoLocal ||
			got.RetainAsPublished != c.RetainAsPublished || got.RetainHandling != c.RetainHandling {
			t.Fatalf("round trip = %+v, want %+v", got, c)
		}
	}
}

func TestSubscribeOptionsRejectsQoS3(t *testing.T) {
	s := Subscription{MaximumQoS: 3}
	if _, err := s.optionsByte(); err != ErrProtocolViolationQoSOutOfRange {
		t.Fatalf("optionsByte error = %v, want ErrProtocolViolationQoSOutOfRange", err)
	}
}

func TestSubscribePackUnpackRoundTrip(t *testing.T) {
	s := &Subscribe{
		PacketID:   5,
		Properties: &Properties{SubscriptionIdentifier: []uint32{9}},
		Subscriptions: []Subscription{
			{TopicFilter: "a/b", MaximumQoS: 1},
			{TopicFilter: "a/#", MaximumQoS: 2, NoLocal: true},
		},
	}
	buf := &bytes.Buffer{}
	if err := s.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	pkt, decodedBuf, err := Decode(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	defer ReleaseDecoded(decodedBuf)
	got := pkt.(*Subscribe)
	if len(got.Subscriptions) != 2 || got.Subscriptions[0].TopicFilter != "a/b" ||
		got.Subscriptions[1].TopicFilter != "a/#" || !got.Subscriptions[1].NoLocal {
		t.Fatalf("round trip = %+v", got.Subscriptions)
	}
	if len(got.Properties.SubscriptionIdentifier) != 1 || got.Properties.SubscriptionIdentifier[0] != 9 {
		t.Fatalf("SubscriptionIdentifier = %v, want [9]", got.Properties.SubscriptionIdentifier)
	}
}

func TestSubscribeRejectsEmptyFilterList(t *testing.T) {
	s := &Subscribe{PacketID: 1, Properties: &Properties{}}
	buf := &bytes.Buffer{}
	if err := s.Pack(buf); err != ErrMalformedFlags {
		t.Fatalf("Pack error = %v, want ErrMalformedFlags", err)
	}
}

func TestUnsubscribePackUnpackRoundTrip(t *testing.T) {
	u := &Unsubscribe{
		PacketID:     6,
		Properties:   &Properties{},
		TopicFilters: []string{"a/b", "c/d"},
	}
	buf := &bytes.Buffer{}
	if err := u.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	pkt, decodedBuf, err := Decode(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	defer ReleaseDecoded(decodedBuf)
	got := pkt.(*Unsubscribe)
	if len(got.TopicFilters) != 2 || got.TopicFilters[0] != "a/b" || got.TopicFilters[1] != "c/d" {
		t.Fatalf("round trip = %v", got.TopicFilters)
	}
}
