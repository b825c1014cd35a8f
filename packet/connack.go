package packet

import (
	"bytes"
	"io"
)

// Connack is the CONNACK packet, MQTT v5.0 §3.2: the server's response to
// CONNECT, carrying negotiated limits and the assigned session state.
type Connack struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     *Properties
}

func (c *Connack) Kind() byte { return CONNACK }

func (c *Connack) Pack(w io.Writer) error {
	body := GetBuffer()
	defer PutBuffer(body)
	var flags byte
	if c.SessionPresent {
		flags = 0x01
	}
	body.WriteByte(flags)
	body.WriteByte(c.ReasonCode.Code)
	props, err := c.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	return packFrame(w, CONNACK, body.Bytes())
}

func (c *Connack) Unpack(buf *bytes.Buffer) error {
	flags, err := buf.ReadByte()
	if err != nil {
		return err
	}
	if flags&0xFE != 0 {
		return ErrMalformedFlags
	}
	c.SessionPresent = flags&0x01 != 0

	code, err := buf.ReadByte()
	if err != nil {
		return err
	}
	rc, ok := lookupReasonCode(code)
	if !ok {
		return ErrMalformedReasonCode
	}
	if c.SessionPresent && rc.Code != Success.Code {
		return ErrMalformedFlags
	}
	c.ReasonCode = rc

	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	c.Properties = props
	return nil
}
