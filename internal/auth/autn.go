// Package auth implements the authentication-core components that sit above
// Milenage and the key-derivation functions: the AUTN validator and the
// 5G-AKA/EAP-AKA'/EAP-TLS method handlers, dispatched by the procedure
// controller. The sum-typed validator result and the small per-method
// failure closures follow the pattern grounded in
// original_source/src/ue/nas/mm/auth.cpp's sendFailure/sendEapFailure helpers.
package auth

import (
	"github.com/pkg/errors"

	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/milenage"
	"github.com/free5gc/nasauth/internal/octets"
)

// AutnResult is the sum-typed AUTN validation outcome of §3/§4.3.
type AutnResult int

const (
	AutnOK AutnResult = iota
	AutnMacFailure
	AutnSynchronisationFailure
	AutnAmfSeparationBitFailure
)

// AutnOutcome carries the validation result plus the Milenage record
// recomputed at the received SQN, which method handlers reuse for
// CK/IK/RES. The 5G-AKA success path still runs Milenage once more to
// obtain AK for SQN⊕AK.
type AutnOutcome struct {
	Result      AutnResult
	ReceivedSqn [6]byte
	Record      *milenage.Record
}

// ValidateAutn decomposes autn as SQN⊕AK (6) ‖ AMF (2) ‖ MAC (8) and runs the
// five checks of §4.3 in order: separation bit, SQN recovery, SQN
// acceptability, MAC comparison (which takes precedence over SQN failure),
// then the OK/SYNCHRONISATION_FAILURE decision.
func ValidateAutn(opc, k, rand, autn []byte, sqn context.SqnManager) (*AutnOutcome, error) {
	if len(autn) != 16 {
		return nil, errors.Errorf("autn: AUTN must be 16 bytes, got %d", len(autn))
	}
	sqnXorAk := autn[0:6]
	amf := autn[6:8]
	receivedMac := autn[8:16]

	if amf[0]&0x80 == 0 {
		return &AutnOutcome{Result: AutnAmfSeparationBitFailure}, nil
	}

	currentSqn := sqn.GetSqn()
	recAtCurrent, err := milenage.Calculate(opc, k, rand, currentSqn[:], amf)
	if err != nil {
		return nil, errors.Wrap(err, "milenage at current SQN")
	}

	receivedSqnBytes, err := octets.Xor(sqnXorAk, recAtCurrent.Ak)
	if err != nil {
		return nil, errors.Wrap(err, "recover received SQN")
	}
	var receivedSqn [6]byte
	copy(receivedSqn[:], receivedSqnBytes)

	sqnAcceptable := sqn.CheckSqn(receivedSqn)

	recAtReceived, err := milenage.Calculate(opc, k, rand, receivedSqn[:], amf)
	if err != nil {
		return nil, errors.Wrap(err, "milenage at received SQN")
	}

	if !octets.Equal(recAtReceived.MacA, receivedMac) {
		return &AutnOutcome{
			Result:      AutnMacFailure,
			ReceivedSqn: receivedSqn,
			Record:      recAtReceived,
		}, nil
	}

	if !sqnAcceptable {
		return &AutnOutcome{
			Result:      AutnSynchronisationFailure,
			ReceivedSqn: receivedSqn,
			Record:      recAtReceived,
		}, nil
	}

	return &AutnOutcome{
		Result:      AutnOK,
		ReceivedSqn: receivedSqn,
		Record:      recAtReceived,
	}, nil
}
