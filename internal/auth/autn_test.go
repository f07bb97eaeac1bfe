package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/milenage"
)

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}

// fixedSqnManager is a test double that always reports the given SQN and
// decides acceptability by a fixed boolean rather than real freshness logic.
type fixedSqnManager struct {
	sqn      [6]byte
	accept   bool
	lastSeen [6]byte
}

func (f *fixedSqnManager) GetSqn() [6]byte { return f.sqn }
func (f *fixedSqnManager) CheckSqn(received [6]byte) bool {
	f.lastSeen = received
	return f.accept
}

var _ context.SqnManager = (*fixedSqnManager)(nil)

func buildAutn(t *testing.T, opc, k, rand, sqn, amf []byte) []byte {
	rec, err := milenage.Calculate(opc, k, rand, sqn, amf)
	assert.NoError(t, err)

	sqnXorAk := make([]byte, 6)
	for i := 0; i < 6; i++ {
		sqnXorAk[i] = sqn[i] ^ rec.Ak[i]
	}
	autn := append(append([]byte{}, sqnXorAk...), amf...)
	autn = append(autn, rec.MacA...)
	return autn
}

func TestValidateAutnOK(t *testing.T) {
	k := mustHex(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := mustHex(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := mustHex(t, "ff9bb4d0b607")
	amf := mustHex(t, "b9b9")

	autn := buildAutn(t, opc, k, rand, sqn, amf)
	mgr := &fixedSqnManager{sqn: [6]byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, accept: true}

	outcome, err := ValidateAutn(opc, k, rand, autn, mgr)
	assert.NoError(t, err)
	assert.Equal(t, AutnOK, outcome.Result)
	assert.NotNil(t, outcome.Record)
}

func TestValidateAutnSeparationBitFailure(t *testing.T) {
	k := mustHex(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := mustHex(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := mustHex(t, "ff9bb4d0b607")
	amf := mustHex(t, "3939") // high bit of AMF[0] clear

	autn := buildAutn(t, opc, k, rand, sqn, amf)
	mgr := &fixedSqnManager{sqn: [6]byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, accept: true}

	outcome, err := ValidateAutn(opc, k, rand, autn, mgr)
	assert.NoError(t, err)
	assert.Equal(t, AutnAmfSeparationBitFailure, outcome.Result)
}

func TestValidateAutnMacFailureTakesPrecedenceOverSqn(t *testing.T) {
	k := mustHex(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := mustHex(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := mustHex(t, "ff9bb4d0b607")
	amf := mustHex(t, "b9b9")

	autn := buildAutn(t, opc, k, rand, sqn, amf)
	autn[15] ^= 0xff // corrupt last MAC byte

	mgr := &fixedSqnManager{sqn: [6]byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, accept: false}

	outcome, err := ValidateAutn(opc, k, rand, autn, mgr)
	assert.NoError(t, err)
	assert.Equal(t, AutnMacFailure, outcome.Result)
}

func TestValidateAutnSynchronisationFailure(t *testing.T) {
	k := mustHex(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := mustHex(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := mustHex(t, "ff9bb4d0b607")
	amf := mustHex(t, "b9b9")

	autn := buildAutn(t, opc, k, rand, sqn, amf)
	mgr := &fixedSqnManager{sqn: [6]byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, accept: false}

	outcome, err := ValidateAutn(opc, k, rand, autn, mgr)
	assert.NoError(t, err)
	assert.Equal(t, AutnSynchronisationFailure, outcome.Result)
}

func TestValidateAutnRejectsWrongLength(t *testing.T) {
	_, err := ValidateAutn([]byte{}, []byte{}, []byte{}, []byte{0x01, 0x02}, &fixedSqnManager{})
	assert.Error(t, err)
}
