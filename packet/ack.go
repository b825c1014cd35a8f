package packet

import (
	"bytes"
	"io"
)

// ack is the shared shape of PUBACK, PUBREC, PUBREL, and PUBCOMP (MQTT
// v5.0 §3.4, §3.5, §3.6, §3.7): a packet identifier, a reason code, and an
// optional property list. The four packet types differ only in their
// fixed-header type nibble, so one struct backs all four Packet
// implementations below instead of four copies of the same pack/unpack
// logic.
type ack struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Properties *Properties
}

func (a *ack) pack(w io.Writer, kind byte) error {
	body := GetBuffer()
	defer PutBuffer(body)
	writeUint16(body, a.PacketID)

	// MQTT-3.4.2-1 and siblings: the reason code and properties may be
	// omitted entirely when the reason is Success and there are no
	// properties, collapsing the packet to its 2-byte minimum.
	if a.ReasonCode.Code == Success.Code && a.Properties == nil {
		return packFrame(w, kind, body.Bytes())
	}

	body.WriteByte(a.ReasonCode.Code)
	props, err := a.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	return packFrame(w, kind, body.Bytes())
}

func (a *ack) unpack(buf *bytes.Buffer, validCode func(byte) bool) error {
	pid, err := readUint16(buf)
	if err != nil {
		return err
	}
	if pid == 0 {
		return ErrMalformedPacketID
	}
	a.PacketID = pid

	if buf.Len() == 0 {
		a.ReasonCode = Success
		return nil
	}

	code, err := buf.ReadByte()
	if err != nil {
		return err
	}
	rc, ok := lookupReasonCode(code)
	if !ok || (validCode != nil && !validCode(code)) {
		return ErrMalformedReasonCode
	}
	a.ReasonCode = rc

	if buf.Len() == 0 {
		return nil
	}
	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	a.Properties = props
	return nil
}

// NewPuback builds a PUBACK for the given packet identifier and reason.
func NewPuback(id uint16, reason ReasonCode, props *Properties) *Puback {
	return &Puback{ack{PacketID: id, ReasonCode: reason, Properties: props}}
}

// NewPubrec builds a PUBREC for the given packet identifier and reason.
func NewPubrec(id uint16, reason ReasonCode, props *Properties) *Pubrec {
	return &Pubrec{ack{PacketID: id, ReasonCode: reason, Properties: props}}
}

// NewPubrel builds a PUBREL for the given packet identifier and reason.
func NewPubrel(id uint16, reason ReasonCode, props *Properties) *Pubrel {
	return &Pubrel{ack{PacketID: id, ReasonCode: reason, Properties: props}}
}

// NewPubcomp builds a PUBCOMP for the given packet identifier and reason.
func NewPubcomp(id uint16, reason ReasonCode, props *Properties) *Pubcomp {
	return &Pubcomp{ack{PacketID: id, ReasonCode: reason, Properties: props}}
}

// Puback acknowledges a QoS 1 PUBLISH, MQTT v5.0 §3.4.
type Puback struct{ ack }

func (p *Puback) Kind() byte                  { return PUBACK }
func (p *Puback) Pack(w io.Writer) error      { return p.pack(w, PUBACK) }
func (p *Puback) Unpack(buf *bytes.Buffer) error {
	return p.unpack(buf, func(c byte) bool {
		return c == 0x00 || c == 0x10 || c >= 0x80
	})
}

// Pubrec is the first step of the QoS 2 handshake, MQTT v5.0 §3.5.
type Pubrec struct{ ack }

func (p *Pubrec) Kind() byte                  { return PUBREC }
func (p *Pubrec) Pack(w io.Writer) error      { return p.pack(w, PUBREC) }
func (p *Pubrec) Unpack(buf *bytes.Buffer) error {
	return p.unpack(buf, func(c byte) bool {
		return c == 0x00 || c == 0x10 || c >= 0x80
	})
}

// Pubrel is the second step of the QoS 2 handshake, MQTT v5.0 §3.6. Its
// fixed header reserves flags 0x02 (enforced in fixedheader.go).
type Pubrel struct{ ack }

func (p *Pubrel) Kind() byte             { return PUBREL }
func (p *Pubrel) Pack(w io.Writer) error { return p.pack(w, PUBREL) }
func (p *Pubrel) Unpack(buf *bytes.Buffer) error {
	return p.unpack(buf, func(c byte) bool {
		return c == 0x00 || c == 0x92
	})
}

// Pubcomp is the fourth and final step of the QoS 2 handshake, MQTT v5.0
// §3.7.
type Pubcomp struct{ ack }

func (p *Pubcomp) Kind() byte             { return PUBCOMP }
func (p *Pubcomp) Pack(w io.Writer) error { return p.pack(w, PUBCOMP) }
func (p *Pubcomp) Unpack(buf *bytes.Buffer) error {
	return p.unpack(buf, func(c byte) bool {
		return c == 0x00 || c == 0x92
	})
}
