// Package nasmsg defines the decoded, field-level NAS message structs the
// authentication core consumes and produces. Wire-level NAS IE encoding and
// decoding stays an external collaborator — these are the structs the
// surrounding NAS task hands the core after decode, and hands back to it for
// encode, mirroring the struct boundary free5gc/n3iwue and
// ellanetworks/core-tester draw between their NAS codec and their security
// logic.
package nasmsg

import "github.com/free5gc/nasauth/internal/context"

// AuthenticationRequest is the inbound 5GMM Authentication Request.
type AuthenticationRequest struct {
	NgKsi       context.NgKsi
	Abba        []byte
	RandPresent bool
	Rand        []byte
	AutnPresent bool
	Autn        []byte
	EapMessage  []byte
}

// HasEapMessage reports whether the request carries an EAP payload rather
// than bare 5G-AKA RAND/AUTN parameters.
func (r *AuthenticationRequest) HasEapMessage() bool {
	return len(r.EapMessage) > 0
}

// AuthenticationResult is the inbound 5GMM Authentication Result, carrying
// the EAP envelope exchanged during EAP-AKA'/EAP-TLS.
type AuthenticationResult struct {
	AbbaPresent bool
	Abba        []byte
	EapMessage  []byte
}

// AuthenticationReject is the inbound 5GMM Authentication Reject.
type AuthenticationReject struct {
	EapMessagePresent bool
	EapMessage        []byte
}

// MM cause values used by AuthenticationFailure/MmStatus, 3GPP TS 24.501
// Annex A.
const (
	CauseSemanticallyIncorrectMessage    uint8 = 95
	CauseUnspecifiedProtocolError        uint8 = 111
	CauseNgKsiAlreadyInUse               uint8 = 71
	CauseMacFailure                      uint8 = 20
	CauseSynchFailure                    uint8 = 21
	CauseNon5gAuthenticationUnacceptable uint8 = 26
)

// AuthenticationResponse is the outbound 5GMM Authentication Response,
// carrying either the 5G-AKA RES* or an EAP payload.
type AuthenticationResponse struct {
	ResponseParameter []byte
	EapMessage        []byte
}

func (AuthenticationResponse) outbound() {}

// AuthenticationFailure is the outbound 5GMM Authentication Failure.
type AuthenticationFailure struct {
	MmCause                        uint8
	AuthenticationFailureParameter []byte
}

func (AuthenticationFailure) outbound() {}

// MmStatus is the outbound 5GMM Status message sent for EAP-envelope
// violations that are not themselves authentication failures.
type MmStatus struct {
	MmCause uint8
}

func (MmStatus) outbound() {}

// Outbound is implemented by every NAS message type the core may emit.
type Outbound interface {
	outbound()
}

// NewAuthenticationFailure builds an AuthenticationFailure carrying no
// authentication-failure parameter.
func NewAuthenticationFailure(cause uint8) *AuthenticationFailure {
	return &AuthenticationFailure{MmCause: cause}
}

// NewMmStatusSemanticallyIncorrect builds the MmStatus emitted for EAP
// envelope violations per spec §7.1.
func NewMmStatusSemanticallyIncorrect() *MmStatus {
	return &MmStatus{MmCause: CauseSemanticallyIncorrectMessage}
}

// Sink is the NAS transport the core emits outbound messages through. It is
// the structural analogue of the original's sendNasMessage/sendMmStatus
// calls, treated as a synchronous, non-blocking collaborator per spec §5.
type Sink interface {
	SendNasMessage(msg Outbound)
}
