package packet

import (
	"bytes"
	"io"
)

// Suback is the server's response to SUBSCRIBE, MQTT v5.0 §3.9: one
// reason code per topic filter, in the same order the filters were sent.
type Suback struct {
	PacketID    uint16
	Properties  *Properties
	ReasonCodes []ReasonCode
}

func (s *Suback) Kind() byte { return SUBACK }

// validSubackCode accepts the granted-QoS codes 0x00-0x02 and every
// failure code from 0x80 up, per MQTT v5.0 §3.9.3.
func validSubackCode(c byte) bool {
	return c <= 0x02 || c >= 0x80
}

func (s *Suback) Pack(w io.Writer) error {
	if len(s.ReasonCodes) == 0 {
		return ErrProtocolViolationReasonCodeCount
	}
	body := GetBuffer()
	defer PutBuffer(body)
	writeUint16(body, s.PacketID)
	props, err := s.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	for _, rc := range s.ReasonCodes {
		if !validSubackCode(rc.Code) {
			return ErrMalformedReasonCode
		}
		body.WriteByte(rc.Code)
	}
	return packFrame(w, SUBACK, body.Bytes())
}

func (s *Suback) Unpack(buf *bytes.Buffer) error {
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
		code, err := buf.ReadByte()
		if err != nil {
			return err
		}
		if !validSubackCode(code) {
			return ErrMalformedReasonCode
		}
		rc, ok := lookupReasonCode(code)
		if !ok {
			rc = ReasonCode{Code: code, Reason: subackReasonName(code)}
		}
		s.ReasonCodes = append(s.ReasonCodes, rc)
	}
	if len(s.ReasonCodes) == 0 {
		return ErrProtocolViolationReasonCodeCount
	}
	return nil
}

func subackReasonName(code byte) string {
	switch code {
	case 0x00:
		return "granted qos 0"
	case 0x01:
		return "granted qos 1"
	case 0x02:
		return "granted qos 2"
	default:
		return "unspecified error"
	}
}

// Unsuback is the server's response to UNSUBSCRIBE, MQTT v5.0 §3.11.
type Unsuback struct {
	PacketID    uint16
	Properties  *Properties
	ReasonCodes []ReasonCode
}

func (u *Unsuback) Kind() byte { return UNSUBACK }

func (u *Unsuback) Pack(w io.Writer) error {
	if len(u.ReasonCodes) == 0 {
		return ErrProtocolViolationReasonCodeCount
	}
	body := GetBuffer()
	defer PutBuffer(body)
	writeUint16(body, u.PacketID)
	props, err := u.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	for _, rc := range u.ReasonCodes {
		body.WriteByte(rc.Code)
	}
	return packFrame(w, UNSUBACK, body.Bytes())
}

func (u *Unsuback) Unpack(buf *bytes.Buffer) error {
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
		code, err := buf.ReadByte()
		if err != nil {
			return err
		}
		rc, ok := lookupReasonCode(code)
		if !ok {
			return ErrMalformedReasonCode
		}
		u.ReasonCodes = append(u.ReasonCodes, rc)
	}
	if len(u.ReasonCodes) == 0 {
		return ErrProtocolViolationReasonCodeCount
	}
	return nil
}
