package packet

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Packet is implemented by every MQTT v5.0 control packet. Pack writes the
// full wire representation, fixed header included, to w. Unpack consumes
// the variable header and payload from buf, which holds exactly
// RemainingLength bytes (the fixed header has already been stripped).
type Packet interface {
	Kind() byte
	Unpack(buf *bytes.Buffer) error
	Pack(w io.Writer) error
}

// Decode reads one complete control packet from r. The returned Packet's
// Unpack has already run and has copied every byte slice it keeps
// (PUBLISH payload, binary properties), so the Packet does not refer to
// the returned buffer; the caller hands that buffer back to the pool
// with ReleaseDecoded.
func Decode(r *bufio.Reader) (Packet, *bytes.Buffer, error) {
	h, err := decodeFixedHeader(r)
	if err != nil {
		return nil, nil, err
	}
	buf := GetBuffer()
	if h.RemainingLength > 0 {
		if _, err := io.CopyN(buf, r, int64(h.RemainingLength)); err != nil {
			PutBuffer(buf)
			return nil, nil, err
		}
	}

	pkt, err := newPacket(h)
	if err != nil {
		PutBuffer(buf)
		return nil, nil, err
	}
	if err := pkt.Unpack(buf); err != nil {
		PutBuffer(buf)
		return nil, nil, err
	}
	return pkt, buf, nil
}

// ReleaseDecoded returns buf to the pool once the caller no longer needs
// any slice view into it.
func ReleaseDecoded(buf *bytes.Buffer) {
	if buf != nil {
		PutBuffer(buf)
	}
}

func newPacket(h *FixedHeader) (Packet, error) {
	switch h.Kind {
	case RESERVED:
		return nil, ErrMalformedFlags
	case CONNECT:
		return &Connect{}, nil
	case CONNACK:
		return &Connack{}, nil
	case PUBLISH:
		return &Publish{FixedHeader: *h}, nil
	case PUBACK:
		return &Puback{}, nil
	case PUBREC:
		return &Pubrec{}, nil
	case PUBREL:
		return &Pubrel{}, nil
	case PUBCOMP:
		return &Pubcomp{}, nil
	case SUBSCRIBE:
		return &Subscribe{}, nil
	case SUBACK:
		return &Suback{}, nil
	case UNSUBSCRIBE:
		return &Unsubscribe{}, nil
	case UNSUBACK:
		return &Unsuback{}, nil
	case PINGREQ:
		return &Pingreq{}, nil
	case PINGRESP:
		return &Pingresp{}, nil
	case DISCONNECT:
		return &Disconnect{}, nil
	case AUTH:
		return &Auth{}, nil
	default:
		return nil, fmt.Errorf("packet: unknown control packet type %#x", h.Kind)
	}
}

// packFrame is a helper used by most Pack implementations: encode the
// variable header and payload into a scratch buffer, attach the fixed
// header with the resulting remaining length, and write the whole thing
// to w in one call.
func packFrame(w io.Writer, kind byte, body []byte) error {
	fh := FixedHeader{Kind: kind, RemainingLength: uint32(len(body))}
	out := GetBuffer()
	defer PutBuffer(out)
	if err := fh.encode(out); err != nil {
		return err
	}
	out.Write(body)
	_, err := w.Write(out.Bytes())
	return err
}
