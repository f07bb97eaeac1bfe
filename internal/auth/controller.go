package auth

import (
	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/logger"
	"github.com/free5gc/nasauth/internal/nasmsg"
)

// Config carries the authentication core's runtime toggles. SkipAutnOnRandReplay
// preserves the "received RAND equals stored RAND ⇒ skip AUTN" optimisation
// of §4.4/§9 behind a switch, per the open question the source leaves
// unresolved: an operator can disable it if it proves non-conformant.
type Config struct {
	SkipAutnOnRandReplay bool
}

// DefaultConfig matches the source's observed (uncertain) behaviour: the
// optimisation is enabled.
func DefaultConfig() Config {
	return Config{SkipAutnOnRandReplay: true}
}

// Controller is the C7 procedure controller: the single entry point the
// surrounding NAS task calls with decoded authentication-related messages.
// It owns no state of its own beyond wiring; USIM is the owned aggregate.
type Controller struct {
	Sink    nasmsg.Sink
	USIM    *context.USIM
	Timers  *context.Timers
	Bridge  context.MMBridge
	Plmn    *context.Plmn
	Config  Config
}

// NewController wires the four external collaborators (§5's shared
// resources) and the method-handler toggles into a controller instance.
func NewController(sink nasmsg.Sink, usim *context.USIM, timers *context.Timers, bridge context.MMBridge, plmn *context.Plmn, cfg Config) *Controller {
	return &Controller{
		Sink:   sink,
		USIM:   usim,
		Timers: timers,
		Bridge: bridge,
		Plmn:   plmn,
		Config: cfg,
	}
}

// NetworkFailingTheAuthCheck implements §4.7's trip-counter policy. While
// hasChance is true and the counter is below the trip limit, it increments
// the counter and returns false so the caller proceeds with its normal
// failure emission. Once tripped it requests local connection release (when
// CM-CONNECTED), stops T3520, and returns true so the caller suppresses any
// further NAS response. The counter itself is reset to 0 on any successful
// authentication in the 5G-AKA/EAP-AKA' handlers.
func (c *Controller) NetworkFailingTheAuthCheck(hasChance bool) bool {
	const tripLimit = 3
	auth := &c.USIM.Auth

	if hasChance && auth.NwConsecutiveAuthFailure < tripLimit {
		auth.NwConsecutiveAuthFailure++
		return false
	}

	logger.Auth5gAkaLog.Warnf("authentication failure trip limit reached, forcing local release")
	if c.Bridge.IsCmConnected() {
		c.Bridge.LocalReleaseConnection("auth-failed")
	}
	c.Timers.T3520.Stop()
	return true
}

// ReceiveAuthenticationRequest is C7's entry point for inbound
// AuthenticationRequest messages.
func (c *Controller) ReceiveAuthenticationRequest(msg *nasmsg.AuthenticationRequest) {
	if !c.USIM.IsValid() {
		logger.Auth5gAkaLog.Warnf("authentication request ignored, USIM invalid")
		return
	}
	if c.Plmn == nil {
		logger.Auth5gAkaLog.Warnf("authentication request ignored, no current PLMN")
		return
	}

	c.Timers.T3520.Start()

	if msg.HasEapMessage() {
		c.handleEapAuthenticationRequest(msg)
		return
	}
	c.handle5gAkaAuthenticationRequest(msg)
}

// ReceiveAuthenticationResult is C7's entry point for inbound
// AuthenticationResult messages (EAP-AKA'/EAP-TLS success/failure carried
// over the NAS Authentication Result procedure).
func (c *Controller) ReceiveAuthenticationResult(msg *nasmsg.AuthenticationResult) {
	if msg.AbbaPresent && c.USIM.NonCurrentNsCtx != nil {
		c.USIM.NonCurrentNsCtx.Keys.Abba = msg.Abba
	}

	hdr, err := eapHeaderOf(msg.EapMessage)
	if err != nil {
		logger.AuthEapLog.Warnf("authentication result with malformed EAP payload: %v", err)
		return
	}

	switch hdr.Code {
	case eapCodeSuccess:
		// Reserved hook: nothing further to do on EAP-AKA'/EAP-TLS success
		// carried over Authentication Result.
	case eapCodeFailure:
		c.receiveEapFailureMessage()
	default:
		logger.AuthEapLog.Warnf("authentication result with unexpected EAP code %d, ignored", hdr.Code)
	}
}

// ReceiveAuthenticationReject is C7's entry point for inbound
// AuthenticationReject messages: it tears down authentication state and
// transitions the MM state machine per §4.7.
func (c *Controller) ReceiveAuthenticationReject(msg *nasmsg.AuthenticationReject) {
	c.USIM.Auth.Clear()
	c.Timers.T3516.Stop()

	if msg.EapMessagePresent {
		if hdr, err := eapHeaderOf(msg.EapMessage); err == nil && hdr.Code == eapCodeFailure {
			c.receiveEapFailureMessage()
		}
	}

	c.Bridge.SwitchUState(context.UStateRoamingNotAllowed)
	c.Bridge.ClearGuti()
	c.Bridge.ClearTaiList()
	c.Bridge.ClearLastVisitedTai()
	c.USIM.CurrentNsCtx = nil
	c.USIM.NonCurrentNsCtx = nil
	c.USIM.Invalidate()

	c.Bridge.StopTimer3510()
	c.Timers.T3516.Stop()
	c.Bridge.StopTimer3517()
	c.Bridge.StopTimer3519()
	c.Bridge.StopTimer3521()

	c.Bridge.SwitchMmState(context.MmStateDeregisteredPS)
}

// receiveEapFailureMessage deletes the staged nonCurrentNsCtx, per §4.7.
func (c *Controller) receiveEapFailureMessage() {
	c.USIM.NonCurrentNsCtx = nil
}

func (c *Controller) sendMmStatus() {
	c.Sink.SendNasMessage(nasmsg.NewMmStatusSemanticallyIncorrect())
}
