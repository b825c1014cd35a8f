package packet

import (
	"bytes"
	"io"
)

// Disconnect is the DISCONNECT packet, MQTT v5.0 §3.14: a clean-shutdown
// or error notification sendable by either end of the connection.
type Disconnect struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (d *Disconnect) Kind() byte { return DISCONNECT }

func (d *Disconnect) Pack(w io.Writer) error {
	if d.ReasonCode.Code == NormalDisconnection.Code && d.Properties == nil {
		return packFrame(w, DISCONNECT, nil)
	}
	body := GetBuffer()
	defer PutBuffer(body)
	body.WriteByte(d.ReasonCode.Code)
	props, err := d.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	return packFrame(w, DISCONNECT, body.Bytes())
}

func (d *Disconnect) Unpack(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		d.ReasonCode = NormalDisconnection
		return nil
	}
	code, err := buf.ReadByte()
	if err != nil {
		return err
	}
	rc, ok := lookupReasonCode(code)
	if !ok {
		return ErrMalformedReasonCode
	}
	d.ReasonCode = rc

	if buf.Len() == 0 {
		return nil
	}
	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	d.Properties = props
	return nil
}

// Auth is the AUTH packet, MQTT v5.0 §3.15, used for extended
// (challenge/response) authentication exchanges.
type Auth struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (a *Auth) Kind() byte { return AUTH }

func (a *Auth) Pack(w io.Writer) error {
	if a.ReasonCode.Code == Success.Code && a.Properties == nil {
		return packFrame(w, AUTH, nil)
	}
	body := GetBuffer()
	defer PutBuffer(body)
	body.WriteByte(a.ReasonCode.Code)
	props, err := a.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)
	return packFrame(w, AUTH, body.Bytes())
}

func (a *Auth) Unpack(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		a.ReasonCode = Success
		return nil
	}
	code, err := buf.ReadByte()
	if err != nil {
		return err
	}
	rc, ok := lookupReasonCode(code)
	if !ok {
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
