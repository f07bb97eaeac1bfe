package milenage

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hexBytes(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}

func TestCalculateProducesFixedLengthRecord(t *testing.T) {
	k := hexBytes(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := hexBytes(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := hexBytes(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := hexBytes(t, "ff9bb4d0b607")
	amf := hexBytes(t, "b9b9")

	rec, err := Calculate(opc, k, rand, sqn, amf)
	assert.NoError(t, err)
	assert.Len(t, rec.MacA, 8)
	assert.Len(t, rec.MacS, 8)
	assert.Len(t, rec.Res, 8)
	assert.Len(t, rec.Ck, 16)
	assert.Len(t, rec.Ik, 16)
	assert.Len(t, rec.Ak, 6)
	assert.Len(t, rec.AkR, 6)
}

func TestCalculateIsDeterministic(t *testing.T) {
	k := hexBytes(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := hexBytes(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := hexBytes(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := hexBytes(t, "ff9bb4d0b607")
	amf := hexBytes(t, "b9b9")

	rec1, err := Calculate(opc, k, rand, sqn, amf)
	assert.NoError(t, err)
	rec2, err := Calculate(opc, k, rand, sqn, amf)
	assert.NoError(t, err)

	assert.Equal(t, rec1.MacA, rec2.MacA)
	assert.Equal(t, rec1.Res, rec2.Res)
	assert.Equal(t, rec1.Ck, rec2.Ck)
	assert.Equal(t, rec1.Ik, rec2.Ik)
	assert.Equal(t, rec1.Ak, rec2.Ak)
}

func TestCalculateWithDummyAmfChangesMacS(t *testing.T) {
	k := hexBytes(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	opc := hexBytes(t, "cd63cb71954a9f4e48a5994e37a02baf")
	rand := hexBytes(t, "23553cbe9637a89d218ae64dae47bf35")
	sqn := hexBytes(t, "ff9bb4d0b607")
	amf := hexBytes(t, "b9b9")

	withAmf, err := Calculate(opc, k, rand, sqn, amf)
	assert.NoError(t, err)
	withDummy, err := Calculate(opc, k, rand, sqn, DummyAmf)
	assert.NoError(t, err)

	assert.NotEqual(t, withAmf.MacS, withDummy.MacS)
	// RES/CK/IK/AK only depend on OPC/K/RAND, not AMF, so they are unaffected.
	assert.Equal(t, withAmf.Res, withDummy.Res)
	assert.Equal(t, withAmf.Ak, withDummy.Ak)
}

func TestCalculateOpC(t *testing.T) {
	k := hexBytes(t, "465b5ce8b199b49faa5f0a2ee238a6bc")
	op := hexBytes(t, "cdc202d5123e20f62b6d676ac72cb318")

	opc, err := CalculateOpC(op, k)
	assert.NoError(t, err)
	assert.Len(t, opc, 16)
}
