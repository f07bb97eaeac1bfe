package eap

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}

func TestParseHeader(t *testing.T) {
	b := []byte{1, 7, 0, 8, TypeAkaPrime, 0, 0, 0}
	h, err := ParseHeader(b)
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), h.Code)
	assert.Equal(t, uint8(7), h.Identifier)
	assert.Equal(t, uint16(8), h.Length)
	assert.Equal(t, TypeAkaPrime, h.Type)
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2})
	assert.Error(t, err)
}

func TestEncodeRandOrAutnRejectsWrongLength(t *testing.T) {
	_, err := EncodeRandOrAutn(AttrRand, []byte{0x01})
	assert.Error(t, err)
}

func TestEncodeAndDecodeAkaPrimeChallenge(t *testing.T) {
	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := mustHex(t, "ff9bb4d0b607b9b9aabbccddeeff0011")

	attrRand, err := EncodeRandOrAutn(AttrRand, rand)
	assert.NoError(t, err)
	attrAutn, err := EncodeRandOrAutn(AttrAutn, autn)
	assert.NoError(t, err)
	attrKdf := EncodeKdf()
	attrKdfInput := EncodeKdfInput("5G:mnc001.mcc001.3gppnetwork.org")
	zeroMac, err := EncodeMac(nil)
	assert.NoError(t, err)

	body := []byte{SubtypeChallenge, 0, 0}
	body = append(body, attrRand...)
	body = append(body, attrAutn...)
	body = append(body, attrKdf...)
	body = append(body, attrKdfInput...)
	body = append(body, zeroMac...)

	header := []byte{1, 9, 0, byte(5 + len(body)), TypeAkaPrime}
	pkt := append(append([]byte{}, header...), body...)

	decoded, err := DecodeAkaPrimePacket(pkt)
	assert.NoError(t, err)
	assert.Equal(t, SubtypeChallenge, decoded.Subtype)
	assert.Equal(t, rand, decoded.Attributes[AttrRand])
	assert.Equal(t, autn, decoded.Attributes[AttrAutn])
	assert.Equal(t, []byte{0, 1}, decoded.Attributes[AttrKdf])
	assert.Equal(t, []byte("5G:mnc001.mcc001.3gppnetwork.org"), decoded.Attributes[AttrKdfInput])
	assert.NotNil(t, decoded.MacInput)
	assert.Equal(t, make([]byte, 16), decoded.Attributes[AttrMac])
}

func TestEncodeAuts(t *testing.T) {
	auts, err := EncodeAuts(make([]byte, 14))
	assert.NoError(t, err)
	assert.Len(t, auts, 16)
	assert.Equal(t, AttrAuts, auts[0])
	assert.Equal(t, uint8(4), auts[1])

	_, err = EncodeAuts(make([]byte, 13))
	assert.Error(t, err)
}

func TestEncodeClientErrorCode(t *testing.T) {
	b := EncodeClientErrorCode(0)
	assert.Equal(t, []byte{AttrClientErrorCode, 1, 0, 0}, b)
}

func TestDecodeAkaPrimePacketRejectsShortPacket(t *testing.T) {
	_, err := DecodeAkaPrimePacket([]byte{1, 2, 3})
	assert.Error(t, err)
}
