package packet

import (
	"bufio"
	"bytes"
	"testing"
)

func TestPubackShortFormOnSuccess(t *testing.T) {
	p := NewPuback(42, Success, nil)
	buf := &bytes.Buffer{}
	if err := p.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	want := []byte{0x40, 0x02, 0x00, 0x2A} // kind/flags, remaining len, packet id
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("Pack = % X, want % X", buf.Bytes(), want)
	}
	pkt, decodedBuf, err := Decode(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	defer ReleaseDecoded(decodedBuf)
	got := pkt.(*Puback)
	if got.PacketID != 42 || got.ReasonCode.Code != Success.Code {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestPubackWithFailureReason(t *testing.T) {
	p := NewPuback(7, NoMatchingSubscribers, nil)
	buf := &bytes.Buffer{}
	if err := p.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	pkt, decodedBuf, err := Decode(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	defer ReleaseDecoded(decodedBuf)
	got := pkt.(*Puback)
	if got.ReasonCode.Code != NoMatchingSubscribers.Code {
		t.Fatalf("ReasonCode = %+v, want NoMatchingSubscribers", got.ReasonCode)
	}
}

func TestPubrelReservedFlags(t *testing.T) {
	p := NewPubrel(9, Success, nil)
	buf := &bytes.Buffer{}
	if err := p.Pack(buf); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	if buf.Bytes()[0] != 0x62 { // PUBREL kind 0x6, reserved flags 0x2
		t.Fatalf("first byte = %#x, want 0x62", buf.Bytes()[0])
	}
}

func TestPubrecInvalidReasonCodeRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	fh := FixedHeader{Kind: PUBREC, RemainingLength: 3}
	fh.encode(buf)
	buf.Write([]byte{0x00, 0x09}) // packet id
	buf.WriteByte(0x01)           // not a valid PUBREC reason code
	_, _, err := Decode(bufio.NewReader(buf))
	if err != ErrMalformedReasonCode {
		t.Fatalf("Decode error = %v, want ErrMalformedReasonCode", err)
	}
}
