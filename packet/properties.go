package packet

import "bytes"

// Property identifiers, MQTT v5.0 §2.2.2.2.
const (
	propPayloadFormatIndicator          = 0x01
	propMessageExpiryInterval           = 0x02
	propContentType                     = 0x03
	propResponseTopic                   = 0x08
	propCorrelationData                 = 0x09
	propSubscriptionIdentifier          = 0x0B
	propSessionExpiryInterval           = 0x11
	propAssignedClientIdentifier        = 0x12
	propServerKeepAlive                 = 0x13
	propAuthenticationMethod            = 0x15
	propAuthenticationData              = 0x16
	propRequestProblemInformation       = 0x17
	propWillDelayInterval                = 0x18
	propRequestResponseInformation      = 0x19
	propResponseInformation             = 0x1A
	propServerReference                 = 0x1C
	propReasonString                    = 0x1F
	propReceiveMaximum                  = 0x21
	propTopicAliasMaximum               = 0x22
	propTopicAlias                      = 0x23
	propMaximumQoS                      = 0x24
	propRetainAvailable                 = 0x25
	propUserProperty                    = 0x26
	propMaximumPacketSize               = 0x27
	propWildcardSubscriptionAvailable   = 0x28
	propSubscriptionIdentifierAvailable = 0x29
	propSharedSubscriptionAvailable     = 0x2A
)

// UserProperty is a single name/value pair. MQTT v5 permits repeats, with
// or without the same name (MQTT-3.1.2.11.8).
type UserProperty struct {
	Name  string
	Value string
}

// Properties is the property list carried by every MQTT v5 control packet
// (MQTT v5.0 §2.2.2). It is a single superset type shared across all packet
// kinds rather than sixteen near-identical structs: MQTT v5 itself
// describes properties as "an ordered collection of (identifier, value)
// pairs" without tying the collection's shape to the packet kind, and
// each Pack/Unpack call site already knows which subset is legal for its
// kind. Fields are pointers (or nil slices) so "absent" is distinguishable
// from "present with zero value".
type Properties struct {
	PayloadFormatIndicator          *byte
	MessageExpiryInterval           *uint32
	ContentType                     *string
	ResponseTopic                   *string
	CorrelationData                 []byte
	SubscriptionIdentifier          []uint32
	SessionExpiryInterval           *uint32
	AssignedClientIdentifier        *string
	ServerKeepAlive                 *uint16
	AuthenticationMethod            *string
	AuthenticationData              []byte
	RequestProblemInformation       *byte
	WillDelayInterval                *uint32
	RequestResponseInformation      *byte
	ResponseInformation             *string
	ServerReference                 *string
	ReasonString                    *string
	ReceiveMaximum                  *uint16
	TopicAliasMaximum               *uint16
	TopicAlias                      *uint16
	MaximumQoS                      *byte
	RetainAvailable                 *bool
	UserProperties                  []UserProperty
	MaximumPacketSize                *uint32
	WildcardSubscriptionAvailable    *bool
	SubscriptionIdentifierAvailable  *bool
	SharedSubscriptionAvailable      *bool
}

func boolPtr(b bool) *bool     { return &b }
func bytePtr(b byte) *byte     { return &b }
func u16Ptr(v uint16) *uint16  { return &v }
func u32Ptr(v uint32) *uint32  { return &v }
func strPtr(s string) *string  { return &s }

// encode serializes the property list: a VBI total length, then each
// (VBI identifier, value) pair in a fixed, stable field order.
func (p *Properties) encode() ([]byte, error) {
	if p == nil {
		return []byte{0x00}, nil
	}
	body := GetBuffer()
	defer PutBuffer(body)

	writeByteProp := func(id byte, v *byte) {
		if v == nil {
			return
		}
		body.WriteByte(id)
		body.WriteByte(*v)
	}
	writeBoolProp := func(id byte, v *bool) {
		if v == nil {
			return
		}
		body.WriteByte(id)
		if *v {
			body.WriteByte(1)
		} else {
			body.WriteByte(0)
		}
	}
	writeU16Prop := func(id byte, v *uint16) {
		if v == nil {
			return
		}
		body.WriteByte(id)
		writeUint16(body, *v)
	}
	writeU32Prop := func(id byte, v *uint32) error {
		if v == nil {
			return nil
		}
		body.WriteByte(id)
		writeUint32(body, *v)
		return nil
	}
	writeStrProp := func(id byte, v *string) error {
		if v == nil {
			return nil
		}
		body.WriteByte(id)
		return writeUTF8String(body, *v)
	}
	writeBinProp := func(id byte, v []byte) error {
		if v == nil {
			return nil
		}
		body.WriteByte(id)
		return writeBinary(body, v)
	}

	writeByteProp(propPayloadFormatIndicator, p.PayloadFormatIndicator)
	if err := writeU32Prop(propMessageExpiryInterval, p.MessageExpiryInterval); err != nil {
		return nil, err
	}
	if err := writeStrProp(propContentType, p.ContentType); err != nil {
		return nil, err
	}
	if err := writeStrProp(propResponseTopic, p.ResponseTopic); err != nil {
		return nil, err
	}
	if err := writeBinProp(propCorrelationData, p.CorrelationData); err != nil {
		return nil, err
	}
	for _, sid := range p.SubscriptionIdentifier {
		body.WriteByte(propSubscriptionIdentifier)
		vbi, err := encodeVBI(sid)
		if err != nil {
			return nil, err
		}
		body.Write(vbi)
	}
	if err := writeU32Prop(propSessionExpiryInterval, p.SessionExpiryInterval); err != nil {
		return nil, err
	}
	if err := writeStrProp(propAssignedClientIdentifier, p.AssignedClientIdentifier); err != nil {
		return nil, err
	}
	writeU16Prop(propServerKeepAlive, p.ServerKeepAlive)
	if err := writeStrProp(propAuthenticationMethod, p.AuthenticationMethod); err != nil {
		return nil, err
	}
	if err := writeBinProp(propAuthenticationData, p.AuthenticationData); err != nil {
		return nil, err
	}
	writeByteProp(propRequestProblemInformation, p.RequestProblemInformation)
	if err := writeU32Prop(propWillDelayInterval, p.WillDelayInterval); err != nil {
		return nil, err
	}
	writeByteProp(propRequestResponseInformation, p.RequestResponseInformation)
	if err := writeStrProp(propResponseInformation, p.ResponseInformation); err != nil {
		return nil, err
	}
	if err := writeStrProp(propServerReference, p.ServerReference); err != nil {
		return nil, err
	}
	if err := writeStrProp(propReasonString, p.ReasonString); err != nil {
		return nil, err
	}
	writeU16Prop(propReceiveMaximum, p.ReceiveMaximum)
	writeU16Prop(propTopicAliasMaximum, p.TopicAliasMaximum)
	writeU16Prop(propTopicAlias, p.TopicAlias)
	writeByteProp(propMaximumQoS, p.MaximumQoS)
	writeBoolProp(propRetainAvailable, p.RetainAvailable)
	for _, up := range p.UserProperties {
		body.WriteByte(propUserProperty)
		if err := writeUTF8String(body, up.Name); err != nil {
			return nil, err
		}
		if err := writeUTF8String(body, up.Value); err != nil {
			return nil, err
		}
	}
	if err := writeU32Prop(propMaximumPacketSize, p.MaximumPacketSize); err != nil {
		return nil, err
	}
	writeBoolProp(propWildcardSubscriptionAvailable, p.WildcardSubscriptionAvailable)
	writeBoolProp(propSubscriptionIdentifierAvailable, p.SubscriptionIdentifierAvailable)
	writeBoolProp(propSharedSubscriptionAvailable, p.SharedSubscriptionAvailable)

	lenBytes, err := encodeVBI(uint32(body.Len()))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenBytes)+body.Len())
	out = append(out, lenBytes...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// decodeProperties parses the property list at the front of buf, enforcing
// the non-repeatable-identifier rule of MQTT v5.0 §2.2.2.2 (all identifiers
// except User Property and Subscription Identifier may appear at most once).
func decodeProperties(buf *bytes.Buffer) (*Properties, error) {
	length, err := decodeVBI(buf)
	if err != nil {
		return nil, err
	}
	if int(length) > buf.Len() {
		return nil, ErrMalformedOffsetBytesOutOfRange
	}
	region := bytes.NewBuffer(buf.Next(int(length)))

	p := &Properties{}
	seen := map[byte]bool{}
	once := func(id byte) error {
		if seen[id] {
			return ErrProtocolViolationDuplicateProperty
		}
		seen[id] = true
		return nil
	}

	for region.Len() > 0 {
		id, err := decodeVBI(region)
		if err != nil {
			return nil, err
		}
		pid := byte(id)
		switch pid {
		case propPayloadFormatIndicator:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.PayloadFormatIndicator = bytePtr(b)
		case propMessageExpiryInterval:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint32(region)
			if err != nil {
				return nil, err
			}
			p.MessageExpiryInterval = u32Ptr(v)
		case propContentType:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.ContentType = strPtr(s)
		case propResponseTopic:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.ResponseTopic = strPtr(s)
		case propCorrelationData:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := readBinary(region)
			if err != nil {
				return nil, err
			}
			p.CorrelationData = append([]byte{}, b...)
		case propSubscriptionIdentifier:
			sid, err := decodeVBI(region)
			if err != nil {
				return nil, err
			}
			if sid == 0 {
				return nil, ErrProtocolViolationUnknownProperty
			}
			p.SubscriptionIdentifier = append(p.SubscriptionIdentifier, sid)
		case propSessionExpiryInterval:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint32(region)
			if err != nil {
				return nil, err
			}
			p.SessionExpiryInterval = u32Ptr(v)
		case propAssignedClientIdentifier:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.AssignedClientIdentifier = strPtr(s)
		case propServerKeepAlive:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint16(region)
			if err != nil {
				return nil, err
			}
			p.ServerKeepAlive = u16Ptr(v)
		case propAuthenticationMethod:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.AuthenticationMethod = strPtr(s)
		case propAuthenticationData:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := readBinary(region)
			if err != nil {
				return nil, err
			}
			p.AuthenticationData = append([]byte{}, b...)
		case propRequestProblemInformation:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.RequestProblemInformation = bytePtr(b)
		case propWillDelayInterval:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint32(region)
			if err != nil {
				return nil, err
			}
			p.WillDelayInterval = u32Ptr(v)
		case propRequestResponseInformation:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.RequestResponseInformation = bytePtr(b)
		case propResponseInformation:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.ResponseInformation = strPtr(s)
		case propServerReference:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.ServerReference = strPtr(s)
		case propReasonString:
			if err := once(pid); err != nil {
				return nil, err
			}
			s, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.ReasonString = strPtr(s)
		case propReceiveMaximum:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint16(region)
			if err != nil {
				return nil, err
			}
			p.ReceiveMaximum = u16Ptr(v)
		case propTopicAliasMaximum:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint16(region)
			if err != nil {
				return nil, err
			}
			p.TopicAliasMaximum = u16Ptr(v)
		case propTopicAlias:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint16(region)
			if err != nil {
				return nil, err
			}
			p.TopicAlias = u16Ptr(v)
		case propMaximumQoS:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.MaximumQoS = bytePtr(b)
		case propRetainAvailable:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.RetainAvailable = boolPtr(b != 0)
		case propUserProperty:
			name, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			value, err := readUTF8String(region)
			if err != nil {
				return nil, err
			}
			p.UserProperties = append(p.UserProperties, UserProperty{Name: name, Value: value})
		case propMaximumPacketSize:
			if err := once(pid); err != nil {
				return nil, err
			}
			v, err := readUint32(region)
			if err != nil {
				return nil, err
			}
			p.MaximumPacketSize = u32Ptr(v)
		case propWildcardSubscriptionAvailable:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.WildcardSubscriptionAvailable = boolPtr(b != 0)
		case propSubscriptionIdentifierAvailable:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.SubscriptionIdentifierAvailable = boolPtr(b != 0)
		case propSharedSubscriptionAvailable:
			if err := once(pid); err != nil {
				return nil, err
			}
			b, err := region.ReadByte()
			if err != nil {
				return nil, err
			}
			p.SharedSubscriptionAvailable = boolPtr(b != 0)
		default:
			return nil, ErrProtocolViolationUnknownProperty
		}
	}
	return p, nil
}
