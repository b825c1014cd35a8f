package packet

import (
	"bytes"
	"io"
)

// Publish is the PUBLISH packet, MQTT v5.0 §3.3: an application message in
// transit, identified by topic name or alias and carrying QoS/Dup/Retain
// in the fixed header flags.
type Publish struct {
	FixedHeader

	TopicName string
	PacketID  uint16 // present only when QoS > 0

	Properties *Properties
	Payload    []byte
}

func (p *Publish) Kind() byte { return PUBLISH }

func (p *Publish) Pack(w io.Writer) error {
	body := GetBuffer()
	defer PutBuffer(body)

	if err := writeUTF8String(body, p.TopicName); err != nil {
		return err
	}
	if p.QoS > 0 {
		if p.PacketID == 0 {
			return ErrMalformedPacketID
		}
		writeUint16(body, p.PacketID)
	}
	props, err := p.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	body.Write(p.Payload)

	fh := p.FixedHeader
	fh.Kind = PUBLISH
	fh.RemainingLength = uint32(body.Len())
	out := GetBuffer()
	defer PutBuffer(out)
	if err := fh.encode(out); err != nil {
		return err
	}
	out.Write(body.Bytes())
	_, err = w.Write(out.Bytes())
	return err
}

func (p *Publish) Unpack(buf *bytes.Buffer) error {
	topic, err := readUTF8String(buf)
	if err != nil {
		return err
	}
	p.TopicName = topic

	if p.QoS > 0 {
		pid, err := readUint16(buf)
		if err != nil {
			return err
		}
		if pid == 0 {
			return ErrMalformedPacketID
		}
		p.PacketID = pid
	}

	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	p.Properties = props

	if len(topic) == 0 && props.TopicAlias == nil {
		return ErrMalformedTopic
	}

	p.Payload = append([]byte{}, buf.Bytes()...)
	buf.Next(buf.Len())
	return nil
}
