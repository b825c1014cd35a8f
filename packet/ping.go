package packet

import (
	"bytes"
	"io"
)

// Pingreq is the keep-alive request, MQTT v5.0 §3.12. It has no variable
// header or payload.
type Pingreq struct{}

func (p *Pingreq) Kind() byte                     { return PINGREQ }
func (p *Pingreq) Pack(w io.Writer) error          { return packFrame(w, PINGREQ, nil) }
func (p *Pingreq) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedFlags
	}
	return nil
}

// Pingresp is the keep-alive response, MQTT v5.0 §3.13.
type Pingresp struct{}

func (p *Pingresp) Kind() byte                     { return PINGRESP }
func (p *Pingresp) Pack(w io.Writer) error          { return packFrame(w, PINGRESP, nil) }
func (p *Pingresp) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedFlags
	}
	return nil
}
