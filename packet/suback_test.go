package packet

import (
	"bufio"
	"bytes"
	"testing"
)

func TestValidSubackCode(t *testing.T) {
	cases := []struct {
		code byte
		want bool
	}{
		{0x00, true}, {0x01, true}, {0x02, true},
		{0x03, false}, {0x7F, false},
		{0x80, true}, {0x9F, true},
	}
	for _, c := range cases {
		if got := validSubackCode(c.code); got != c.want {
			t.Errorf("validSubackCode(%#x) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestSubackPackUnpackRoundTrip(t *testing.T) {
	sa := &Suback{
		PacketID:    5,
		Properties:  &Properties{},
		ReasonCodes: []ReasonCode{GrantedQoS1, {Code: 0x87, Reason: "not authorized"}},
	}
	buf := &bytes.Buffer{}
	if err := sa.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	pkt, decodedBuf, err := Decode(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	defer ReleaseDecoded(decodedBuf)
	got := pkt.(*Suback)
	if len(got.ReasonCodes) != 2 || got.ReasonCodes[0].Code != 0x01 || got.ReasonCodes[1].Code != 0x87 {
		t.Fatalf("round trip = %+v", got.ReasonCodes)
	}
}

func TestSubackAcceptsFailureCodesAbove0x02(t *testing.T) {
	// per-filter failure codes (0x80+) must pass validation alongside the
	// granted-QoS codes 0x00-0x02.
	sa := &Suback{PacketID: 1, Properties: &Properties{}, ReasonCodes: []ReasonCode{TopicFilterInvalid}}
	buf := &bytes.Buffer{}
	if err := sa.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
}

func TestSubackRejectsEmptyReasonCodes(t *testing.T) {
	sa := &Suback{PacketID: 1, Properties: &Properties{}}
	buf := &bytes.Buffer{}
	if err := sa.Pack(buf); err != ErrProtocolViolationReasonCodeCount {
		t.Fatalf("Pack error = %v, want ErrProtocolViolationReasonCodeCount", err)
	}
}
