// Package context holds the UE-local authentication state the core reads
// and mutates: USIM configuration, the SQN manager, the two NAS security
// context slots, volatile authentication state and the EAP-TLS session
// slot. It is the single owned aggregate described for the authentication
// core; the core is its sole writer while processing one NAS message.
package context

import "io"

// OpType selects which operator-variant key the USIM configuration carries.
type OpType int

const (
	OpTypeOP OpType = iota
	OpTypeOPC
)

// Plmn identifies a serving network by MCC/MNC, used to build the SNN.
type Plmn struct {
	Mcc string
	Mnc string
}

// UsimConfig is the read-only-during-a-procedure USIM configuration.
type UsimConfig struct {
	K      []byte // 16 bytes
	OP     []byte // 16 bytes, present when OpType == OpTypeOP
	OPC    []byte // 16 bytes, present when OpType == OpTypeOPC
	OpType OpType
	AMF    []byte // 2 bytes
	Supi   string

	CaCertificate      string
	ClientCertificate  string
	ClientPrivateKey   string
	ClientPassword     string
}

// Tsc is the type of security context, native or mapped.
type Tsc int

const (
	TscNative Tsc = iota
	TscMapped
)

// NgKsi pairs a type-of-security-context with a 3-bit key set identifier.
type NgKsi struct {
	Tsc Tsc
	Ksi uint8
}

// KsiNotAvailable is the reserved ngKSI value 0b111 meaning "no key available".
const KsiNotAvailable uint8 = 0x07

// NasKeys holds the NAS key hierarchy produced by an authentication run.
type NasKeys struct {
	KAusf []byte
	KSeaf []byte
	KAmf  []byte
	Abba  []byte
}

// NasSecurityContext is one of the USIM's two context slots.
type NasSecurityContext struct {
	Tsc   Tsc
	NgKsi uint8
	Keys  NasKeys
}

// AuthVolatileState is the per-USIM volatile authentication state of §3.
type AuthVolatileState struct {
	Rand                     []byte
	ResStar                  []byte
	NwConsecutiveAuthFailure uint8
}

// Clear clears rand/resStar together, per invariant 1.
func (s *AuthVolatileState) Clear() {
	s.Rand = nil
	s.ResStar = nil
}

// TlsState is the EAP-TLS per-session state machine position.
type TlsState int

const (
	TlsStart TlsState = iota
	TlsHandshake
	TlsDone
)

// EapTlsSession is the opaque EAP-TLS session slot. Session holds whatever
// TLS/connection resources the eaptls handler acquired for TLS_START through
// TLS_DONE; it must be released (Close) on every exit from TLS_DONE or on
// error, per the resource-scoping design in §9.
type EapTlsSession struct {
	State   TlsState
	Session io.Closer
}

func (s *EapTlsSession) Reset() {
	if s.Session != nil {
		_ = s.Session.Close()
	}
	s.State = TlsStart
	s.Session = nil
}

// UState is the UE registration-update substate driven on Authentication-Reject.
type UState string

const UStateRoamingNotAllowed UState = "5U3_ROAMING_NOT_ALLOWED"

// MmState is the UE mobility-management state driven on Authentication-Reject.
type MmState string

const MmStateDeregisteredPS MmState = "DEREGISTERED_PS"

// MMBridge abstracts the surrounding MM state machine operations the
// authentication core must drive: Authentication-Reject's transition and
// networkFailingTheAuthCheck's local-release hook. The broader MM state
// machine beyond these touchpoints stays out of scope.
type MMBridge interface {
	SwitchUState(state UState)
	SwitchMmState(state MmState)
	ClearGuti()
	ClearTaiList()
	ClearLastVisitedTai()
	IsCmConnected() bool
	LocalReleaseConnection(cause string)
	StopTimer3510()
	StopTimer3517()
	StopTimer3519()
	StopTimer3521()
}

// Timer is the minimal start/stop contract the core issues to externally
// managed NAS timers; expiry itself is a separate NAS event out of scope here.
type Timer interface {
	Start()
	Stop()
}

// Timers bundles the two timers the authentication core itself starts/stops
// directly (T3516, T3520); the rest are reached through MMBridge on reject.
type Timers struct {
	T3516 Timer
	T3520 Timer
}

// SqnManager abstracts the USIM's SQN freshness policy (TS 33.102 Annex C).
// The core treats it as a black box.
type SqnManager interface {
	GetSqn() [6]byte
	CheckSqn(received [6]byte) bool
}

// USIM is the single owned aggregate of USIM/ME authentication state.
type USIM struct {
	Config *UsimConfig
	Sqn    SqnManager

	valid bool

	Auth            AuthVolatileState
	CurrentNsCtx    *NasSecurityContext
	NonCurrentNsCtx *NasSecurityContext
	EapTls          EapTlsSession
}

// NewUSIM constructs a USIM aggregate in the valid state.
func NewUSIM(cfg *UsimConfig, sqn SqnManager) *USIM {
	return &USIM{
		Config: cfg,
		Sqn:    sqn,
		valid:  true,
	}
}

func (u *USIM) IsValid() bool { return u.valid }

// Invalidate marks the USIM invalid until power-off/UICC removal, as done on
// Authentication-Reject. There is no re-validation path inside the core.
func (u *USIM) Invalidate() { u.valid = false }
