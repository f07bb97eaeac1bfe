// Package milenage wraps github.com/free5gc/util/milenage — the same
// Milenage (3GPP TS 35.206) engine free5gc/udm and free5gc/n3iwue use on the
// network and UE sides respectively — into the single Record the rest of
// the authentication core consumes, instead of reimplementing f1-f5 by hand.
package milenage

import (
	"github.com/pkg/errors"

	"github.com/free5gc/util/milenage"
)

// Record is the full Milenage output set for one (OPC, K, RAND, SQN, AMF).
type Record struct {
	MacA []byte // f1,  8 bytes
	MacS []byte // f1*, 8 bytes
	Res  []byte // f2,  8 bytes
	Ck   []byte // f3,  16 bytes
	Ik   []byte // f4,  16 bytes
	Ak   []byte // f5,  6 bytes
	AkR  []byte // f5*, 6 bytes
}

// Calculate runs f1 and f2-f5 together and returns the combined record.
// amf is the AMF used for f1/f1*; pass a 2-byte zero AMF (dummyAmf) when the
// caller is producing AUTS during resynchronisation.
func Calculate(opc, k, rand, sqn, amf []byte) (*Record, error) {
	rec := &Record{
		MacA: make([]byte, 8),
		MacS: make([]byte, 8),
		Res:  make([]byte, 8),
		Ck:   make([]byte, 16),
		Ik:   make([]byte, 16),
		Ak:   make([]byte, 6),
		AkR:  make([]byte, 6),
	}

	if err := milenage.F1(opc, k, rand, sqn, amf, rec.MacA, rec.MacS); err != nil {
		return nil, errors.Wrap(err, "milenage F1")
	}
	if err := milenage.F2345(opc, k, rand, rec.Res, rec.Ck, rec.Ik, rec.Ak, rec.AkR); err != nil {
		return nil, errors.Wrap(err, "milenage F2345")
	}
	return rec, nil
}

// CalculateOpC derives OPC from OP and K for USIM configurations carrying OP.
func CalculateOpC(op, k []byte) ([]byte, error) {
	opc, err := milenage.GenerateOPC(k, op)
	if err != nil {
		return nil, errors.Wrap(err, "milenage GenerateOPC")
	}
	return opc, nil
}

// DummyAmf is the 2-byte zero AMF used exclusively when computing AUTS
// during resynchronisation (§4.1).
var DummyAmf = []byte{0x00, 0x00}
