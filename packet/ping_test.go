package packet

import (
	"bufio"
	"bytes"
	"testing"
)

func TestPingreqPingrespWireBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&Pingreq{}).Pack(buf); err != nil {
		t.Fatalf("Pingreq.Pack error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xC0, 0x00}) {
		t.Fatalf("Pingreq.Pack = % X, want [C0 00]", buf.Bytes())
	}

	buf.Reset()
	if err := (&Pingresp{}).Pack(buf); err != nil {
		t.Fatalf("Pingresp.Pack error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xD0, 0x00}) {
		t.Fatalf("Pingresp.Pack = % X, want [D0 00]", buf.Bytes())
	}
}

func TestPingreqDecodeRejectsTrailingBytes(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xC0, 0x01, 0xFF})
	_, _, err := Decode(bufio.NewReader(buf))
	if err != ErrMalformedFlags {
		t.Fatalf("Decode error = %v, want ErrMalformedFlags", err)
	}
}
