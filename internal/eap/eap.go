// Package eap implements the EAP-AKA' (RFC 4187/RFC 5448) outer envelope
// and AT_* attribute codec the EAP-AKA' handler needs. The attribute TLV
// layout and the AT_MAC zero-then-capture trick are grounded directly on
// free5gc/ausf/internal/sbi/producer/functions.go's EapEncodeAttribute and
// decodeEapAkaPrime, which build/parse the identical packets from the
// network side. The outer Code/Identifier/Type/Length header is built with
// github.com/bronze1man/radius's EapPacket, the same library that file uses
// to construct its own EAP responses. A raw 5-byte header parser, not
// gopacket, reads the inbound header: the EAP bytes here arrive already
// extracted from a NAS IE rather than off a capturable link layer, so
// gopacket's frame-decoding machinery has nothing to attach to.
package eap

import (
	"encoding/binary"

	"github.com/bronze1man/radius"
	"github.com/pkg/errors"
)

// EAP Code values, RFC 3748 §4.1.
const (
	CodeRequest  uint8 = 1
	CodeResponse uint8 = 2
	CodeSuccess  uint8 = 3
	CodeFailure  uint8 = 4
)

// EAP-AKA' attribute type values, RFC 4187 §8.1 / RFC 5448 §4.
const (
	AttrRand            uint8 = 1
	AttrAutn            uint8 = 2
	AttrRes             uint8 = 3
	AttrAuts            uint8 = 4
	AttrMac             uint8 = 11
	AttrNotification    uint8 = 12
	AttrClientErrorCode uint8 = 22
	AttrKdfInput        uint8 = 23
	AttrKdf             uint8 = 24
)

// EAP-AKA' subtype values, RFC 4187 §8.1.
const (
	SubtypeChallenge              uint8 = 1
	SubtypeAuthenticationReject   uint8 = 2
	SubtypeSynchronizationFailure uint8 = 4
	SubtypeNotification           uint8 = 12
	SubtypeClientError            uint8 = 14
)

// TypeAkaPrime is the EAP method Type value for EAP-AKA', RFC 5448 §6.1.
const TypeAkaPrime uint8 = 50

// TypeTLS is the EAP method Type value for EAP-TLS, RFC 5216 §3.
const TypeTLS uint8 = 13

// StartFlag is the EAP-TLS flags-byte Start bit, RFC 5216 §3.1.
const StartFlag uint8 = 0x20

// LengthFlag is the EAP-TLS flags-byte Length-included bit.
const LengthFlag uint8 = 0x80

// Header is the fixed 5-byte EAP header (Code, Identifier, 2-byte Length,
// Type) common to every EAP packet.
type Header struct {
	Code       uint8
	Identifier uint8
	Length     uint16
	Type       uint8
}

// ParseHeader reads the fixed 5-byte EAP header from the front of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < 5 {
		return Header{}, errors.New("eap: packet shorter than header")
	}
	return Header{
		Code:       b[0],
		Identifier: b[1],
		Length:     binary.BigEndian.Uint16(b[2:4]),
		Type:       b[4],
	}, nil
}

// encodeLengthPrefixed builds a TLV attribute whose 2-byte length subfield
// records length (in lengthUnit units) of data, zero-padded to a 4-byte
// boundary — the AT_RES/AT_KDF_INPUT shape, which differ only in whether
// that subfield counts bits (RFC 4187 §8.3) or bytes (RFC 5448 §4.1.1).
func encodeLengthPrefixed(attrType uint8, data []byte, lengthUnit int) []byte {
	nLength := len(data)
	words := (nLength+3)/4 + 1
	b := make([]byte, words*4)
	b[0] = attrType
	b[1] = byte(words)
	binary.BigEndian.PutUint16(b[2:4], uint16(nLength*lengthUnit))
	copy(b[4:], data)
	return b
}

// EncodeRandOrAutn encodes AT_RAND/AT_AUTN: a fixed 16-byte value in a
// 5-word attribute (type, length=5, 2 reserved bytes, 16-byte value).
func EncodeRandOrAutn(attrType uint8, value []byte) ([]byte, error) {
	if len(value) != 16 {
		return nil, errors.Errorf("eap: AT_RAND/AT_AUTN must be 16 bytes, got %d", len(value))
	}
	b := make([]byte, 20)
	b[0] = attrType
	b[1] = 5
	copy(b[4:], value)
	return b, nil
}

// EncodeRes encodes AT_RES: a bit-length-prefixed, zero-padded RES value,
// RFC 4187 §8.3.
func EncodeRes(value []byte) []byte {
	return encodeLengthPrefixed(AttrRes, value, 8)
}

// EncodeKdfInput encodes AT_KDF_INPUT carrying the ASCII SNN string, with a
// byte-length prefix, RFC 5448 §4.1.1.
func EncodeKdfInput(snn string) []byte {
	return encodeLengthPrefixed(AttrKdfInput, []byte(snn), 1)
}

// EncodeKdf encodes AT_KDF with the single supported value 1.
func EncodeKdf() []byte {
	return []byte{AttrKdf, 1, 0, 1}
}

// EncodeMac encodes AT_MAC carrying the given 16-byte MAC value; passing
// nil produces the zeroed form used while computing the MAC itself.
func EncodeMac(mac []byte) ([]byte, error) {
	b := make([]byte, 20)
	b[0] = AttrMac
	b[1] = 5
	if mac != nil {
		if len(mac) != 16 {
			return nil, errors.Errorf("eap: AT_MAC must be 16 bytes, got %d", len(mac))
		}
		copy(b[4:], mac)
	}
	return b, nil
}

// EncodeAuts encodes AT_AUTS, a fixed 14-byte value in a 16-byte attribute.
func EncodeAuts(auts []byte) ([]byte, error) {
	if len(auts) != 14 {
		return nil, errors.Errorf("eap: AT_AUTS must be 14 bytes, got %d", len(auts))
	}
	b := make([]byte, 16)
	b[0] = AttrAuts
	b[1] = 4
	copy(b[2:], auts)
	return b, nil
}

// EncodeClientErrorCode encodes AT_CLIENT_ERROR_CODE.
func EncodeClientErrorCode(code uint16) []byte {
	b := make([]byte, 4)
	b[0] = AttrClientErrorCode
	b[1] = 1
	binary.BigEndian.PutUint16(b[2:], code)
	return b
}

// Encode wraps body (subtype + reserved + attributes, for EAP-AKA', or a raw
// TLS record fragment, for EAP-TLS) in the outer EAP Code/Identifier/Length/
// Type header using github.com/bronze1man/radius's EapPacket, the same type
// the network side uses to build its own EAP requests and responses.
func Encode(code uint8, identifier uint8, eapType uint8, body []byte) []byte {
	pkt := radius.EapPacket{
		Code:       radius.EapCode(code),
		Identifier: identifier,
		Type:       radius.EapType(eapType),
		Data:       body,
	}
	return pkt.Encode()
}

// AkaPrimePacket is a decoded EAP-AKA' packet: its subtype, its attribute
// table, and (when AT_MAC was present) the full packet bytes with AT_MAC's
// value field zeroed in place, ready to feed into the MAC computation.
type AkaPrimePacket struct {
	Subtype    uint8
	Attributes map[uint8][]byte
	MacInput   []byte
}

// DecodeAkaPrimePacket parses a full EAP-AKA' packet (outer 5-byte EAP
// header, 1-byte subtype, 2 reserved bytes, then TLV attributes). If an
// AT_MAC attribute is present, its value field is zeroed in place in eapPkt
// and the whole (now-zeroed) packet is captured as MacInput.
func DecodeAkaPrimePacket(eapPkt []byte) (*AkaPrimePacket, error) {
	if len(eapPkt) < 8 {
		return nil, errors.New("eap: packet too short for EAP-AKA' header")
	}
	data := eapPkt[5:]
	pkt := &AkaPrimePacket{
		Subtype:    data[0],
		Attributes: make(map[uint8][]byte),
	}
	dataLen := len(data)

	for i := 3; i < dataLen; {
		attrType := data[i]
		if i+1 >= dataLen {
			return nil, errors.New("eap: attribute header out of range")
		}
		attrLen := int(data[i+1]) * 4
		if attrLen == 0 {
			return nil, errors.New("eap: attribute length equal to zero")
		}
		if i+attrLen > dataLen {
			return nil, errors.New("eap: attribute body out of range")
		}

		switch attrType {
		case AttrRes:
			if attrLen < 4 {
				return nil, errors.New("eap: AT_RES too short")
			}
			bitLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
			accLen := bitLen / 8
			if accLen > 16 || accLen < 4 || accLen+4 > attrLen {
				return nil, errors.New("eap: AT_RES decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+4:i+4+accLen]...)
		case AttrMac:
			if attrLen != 20 {
				return nil, errors.New("eap: AT_MAC decode error")
			}
			mac := make([]byte, 16)
			copy(mac, data[i+4:i+attrLen])
			pkt.Attributes[attrType] = mac
			zeros := make([]byte, 16)
			copy(data[i+4:i+attrLen], zeros)
			pkt.MacInput = eapPkt
		case AttrKdf:
			if attrLen != 4 {
				return nil, errors.New("eap: AT_KDF decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+2:i+attrLen]...)
		case AttrAuts:
			if attrLen != 16 {
				return nil, errors.New("eap: AT_AUTS decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+2:i+attrLen]...)
		case AttrClientErrorCode:
			if attrLen != 4 {
				return nil, errors.New("eap: AT_CLIENT_ERROR_CODE decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+2:i+attrLen]...)
		case AttrKdfInput:
			if attrLen < 4 {
				return nil, errors.New("eap: AT_KDF_INPUT too short")
			}
			nLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
			if 4+nLen > attrLen {
				return nil, errors.New("eap: AT_KDF_INPUT decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+4:i+4+nLen]...)
		case AttrRand, AttrAutn:
			if attrLen != 20 {
				return nil, errors.New("eap: AT_RAND/AT_AUTN decode error")
			}
			pkt.Attributes[attrType] = append([]byte{}, data[i+4:i+attrLen]...)
		}

		i += attrLen
	}

	return pkt, nil
}
