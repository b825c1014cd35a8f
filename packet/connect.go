package packet

import (
	"bytes"
	"io"
)

// Connect is the CONNECT packet, MQTT v5.0 §3.1. It opens a session.
type Connect struct {
	ProtocolName    string
	ProtocolVersion byte
	CleanStart      bool
	WillFlag        bool
	WillQoS         byte
	WillRetain      bool
	PasswordFlag    bool
	UsernameFlag    bool
	KeepAlive       uint16

	Properties *Properties

	ClientID string

	WillProperties *Properties
	WillTopic      string
	WillPayload    []byte

	Username string
	Password []byte
}

func (c *Connect) Kind() byte { return CONNECT }

func (c *Connect) Pack(w io.Writer) error {
	body := GetBuffer()
	defer PutBuffer(body)

	if err := writeUTF8String(body, c.ProtocolName); err != nil {
		return err
	}
	body.WriteByte(c.ProtocolVersion)

	var flags byte
	if c.UsernameFlag {
		flags |= 0x80
	}
	if c.PasswordFlag {
		flags |= 0x40
	}
	if c.WillFlag {
		flags |= 0x04
		flags |= c.WillQoS << 3
		if c.WillRetain {
			flags |= 0x20
		}
	}
	if c.CleanStart {
		flags |= 0x02
	}
	body.WriteByte(flags)
	writeUint16(body, c.KeepAlive)

	props, err := c.Properties.encode()
	if err != nil {
		return err
	}
	body.Write(props)

	if err := writeUTF8String(body, c.ClientID); err != nil {
		return err
	}

	if c.WillFlag {
		wprops, err := c.WillProperties.encode()
		if err != nil {
			return err
		}
		body.Write(wprops)
		if err := writeUTF8String(body, c.WillTopic); err != nil {
			return err
		}
		if err := writeBinary(body, c.WillPayload); err != nil {
			return err
		}
	}
	if c.UsernameFlag {
		if err := writeUTF8String(body, c.Username); err != nil {
			return err
		}
	}
	if c.PasswordFlag {
		if err := writeBinary(body, c.Password); err != nil {
			return err
		}
	}

	return packFrame(w, CONNECT, body.Bytes())
}

func (c *Connect) Unpack(buf *bytes.Buffer) error {
	name, err := readUTF8String(buf)
	if err != nil {
		return err
	}
	c.ProtocolName = name
	ver, err := buf.ReadByte()
	if err != nil {
		return err
	}
	c.ProtocolVersion = ver
	if name != "MQTT" || ver != 0x05 {
		return ErrUnsupportedVersion
	}

	flags, err := buf.ReadByte()
	if err != nil {
		return err
	}
	if flags&0x01 != 0 {
		return ErrMalformedFlags
	}
	c.UsernameFlag = flags&0x80 != 0
	c.PasswordFlag = flags&0x40 != 0
	c.WillRetain = flags&0x20 != 0
	c.WillQoS = (flags & 0x18) >> 3
	c.WillFlag = flags&0x04 != 0
	c.CleanStart = flags&0x02 != 0
	if c.WillQoS == 3 {
		return ErrProtocolViolationQoSOutOfRange
	}
	if !c.WillFlag && (c.WillQoS != 0 || c.WillRetain) {
		return ErrMalformedFlags
	}

	c.KeepAlive, err = readUint16(buf)
	if err != nil {
		return err
	}

	props, err := decodeProperties(buf)
	if err != nil {
		return err
	}
	c.Properties = props

	c.ClientID, err = readUTF8String(buf)
	if err != nil {
		return err
	}

	if c.WillFlag {
		wprops, err := decodeProperties(buf)
		if err != nil {
			return err
		}
		c.WillProperties = wprops
		c.WillTopic, err = readUTF8String(buf)
		if err != nil {
			return err
		}
		payload, err := readBinary(buf)
		if err != nil {
			return err
		}
		c.WillPayload = append([]byte{}, payload...)
	}
	if c.UsernameFlag {
		c.Username, err = readUTF8String(buf)
		if err != nil {
			return err
		}
	}
	if c.PasswordFlag {
		password, err := readBinary(buf)
		if err != nil {
			return err
		}
		c.Password = append([]byte{}, password...)
	}
	return nil
}
