package packet

import (
	"bytes"
	"io"
)

// RetainHandling controls whether the server sends retained messages when
// a subscription is established, MQTT v5.0 §3.8.3.1.
type RetainHandling byte

const (
	SendRetainedAlways           RetainHandling = 0
	SendRetainedIfNewSubscription RetainHandling = 1
	DoNotSendRetained            RetainHandling = 2
)

// Subscription is one topic filter entry of a SUBSCRIBE packet, carrying
// the per-filter options byte of MQTT v5.0 §3.8.3.1.
type Subscription struct {
	TopicFilter       string
	MaximumQoS        byte
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
}

func (s Subscription) optionsByte() (byte, error) {
	if s.MaximumQoS == 3 {
		return 0, ErrProtocolViolationQoSOutOfRange
	}
	if s.RetainHandling > 2 {
		return 0, ErrMalformedFlags
	}
	var b byte
	b |= s.MaximumQoS
	if s.NoLocal {
		b |= 0x04
	}
	if s.RetainAsPublished {
		b |= 0x08
	}
	b |= byte(s.RetainHandling) << 4
	return b, nil
}

func decodeSubscriptionOptions(b byte) (Subscription, error) {
	s := Subscription{
		MaximumQoS:        b & 0x03,
		NoLocal:           b&0x04 != 0,
		RetainAsPublished: b&0x08 != 0,
		RetainHandling:    RetainHandling((b & 0x30) >> 4),
	}
	if s.MaximumQoS == 3 {
		return s, ErrProtocolViolationQoSOutOfRange
	}
	if s.RetainHandling > 2 {
		return s, ErrMalformedFlags
	}
	if b&0xC0 != 0 {
		return s, ErrMalformedFlags
	}
	return s, nil
}

// Subscribe is the SUBSCRIBE packet, MQTT v5.0 §3.8.
type Subscribe struct {
	PacketID      uint16
	Properties    *Properties
	Subscriptions []Subscription
}

func (s *Subscribe) Kind() byte { return SUBSCRIBE }

func (s *Subscribe) Pack(w io.Writer) error {
	if len(s.Subscriptions) == 0 {
		return ErrMalformedFlags
	}
	body := GetBuffer()
	defer PutBuffer(body)
	writeUint16(body, s.PacketID)
	props, err := s.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	for _, sub := range s.Subscriptions {
		if err := writeUTF8String(body, sub.TopicFilter); err != nil {
			return err
		}
		ob, err := sub.optionsByte()
		if err != nil {
			return err
		}
		body.WriteByte(ob)
	}
	return packFrame(w, SUBSCRIBE, body.Bytes())
}

func (s *Subscribe) Unpack(buf *bytes.Buffer) error {
	pid, err := readUint16(buf)
	if err != nil {
		return err
	}
	if pid == 0 {
		return ErrMalformedPacketID
	}
	s.PacketID = pid

	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	s.Properties = props

	for buf.Len() > 0 {
		filter, err := readUTF8String(buf)
		if err != nil {
			return err
		}
		ob, err := buf.ReadByte()
		if err != nil {
			return err
		}
		sub, err := decodeSubscriptionOptions(ob)
		if err != nil {
			return err
		}
		sub.TopicFilter = filter
		s.Subscriptions = append(s.Subscriptions, sub)
	}
	if len(s.Subscriptions) == 0 {
		return ErrMalformedFlags
	}
	return nil
}

// Unsubscribe is the UNSUBSCRIBE packet, MQTT v5.0 §3.10.
type Unsubscribe struct {
	PacketID     uint16
	Properties   *Properties
	TopicFilters []string
}

func (u *Unsubscribe) Kind() byte { return UNSUBSCRIBE }

func (u *Unsubscribe) Pack(w io.Writer) error {
	if len(u.TopicFilters) == 0 {
		return ErrMalformedFlags
	}
	body := GetBuffer()
	defer PutBuffer(body)
	writeUint16(body, u.PacketID)
	props, err := u.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	for _, f := range u.TopicFilters {
		if err := writeUTF8String(body, f); err != nil {
			return err
		}
	}
	return packFrame(w, UNSUBSCRIBE, body.Bytes())
}

func (u *Unsubscribe) Unpack(buf *bytes.Buffer) error {
	pid, err := readUint16(buf)
	if err != nil {
		return err
	}
	if pid == 0 {
		return ErrMalformedPacketID
	}
	u.PacketID = pid

	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	u.Properties = props

	for buf.Len() > 0 {
		f, err := readUTF8String(buf)
		if err != nil {
			return err
		}
		u.TopicFilters = append(u.TopicFilters, f)
	}
	if len(u.TopicFilters) == 0 {
		return ErrMalformedFlags
	}
	return nil
}
