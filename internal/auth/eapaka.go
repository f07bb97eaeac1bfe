package auth

import (
	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/eap"
	"github.com/free5gc/nasauth/internal/keys"
	"github.com/free5gc/nasauth/internal/logger"
	"github.com/free5gc/nasauth/internal/nasmsg"
	"github.com/free5gc/nasauth/internal/octets"
)

// handleEapAuthenticationRequest routes an AuthenticationRequest carrying an
// EAP payload to the EAP-AKA' or EAP-TLS handler by the inner EAP method
// type, per §4.7's "C5 selects AKA'/TLS by inner EAP type".
func (c *Controller) handleEapAuthenticationRequest(msg *nasmsg.AuthenticationRequest) {
	hdr, err := eap.ParseHeader(msg.EapMessage)
	if err != nil {
		c.sendMmStatus()
		return
	}

	switch hdr.Type {
	case eap.TypeAkaPrime:
		c.handleEapAkaPrimeRequest(msg)
	case eap.TypeTLS:
		c.handleEapTlsRequest(msg)
	default:
		c.sendMmStatus()
	}
}

func (c *Controller) handleEapAkaPrimeRequest(msg *nasmsg.AuthenticationRequest) {
	identifier := msg.EapMessage[1]

	pkt, err := eap.DecodeAkaPrimePacket(msg.EapMessage)
	if err != nil || pkt.Subtype != eap.SubtypeChallenge {
		c.sendMmStatus()
		return
	}

	rand := pkt.Attributes[eap.AttrRand]
	autn := pkt.Attributes[eap.AttrAutn]
	receivedMac := pkt.Attributes[eap.AttrMac]
	if len(rand) != 16 || len(autn) != 16 || len(receivedMac) != 16 {
		c.sendMmStatus()
		return
	}

	kdf := pkt.Attributes[eap.AttrKdf]
	if len(kdf) != 2 || kdf[1] != 1 {
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendEapAkaPrimeSubtypeOnly(identifier, eap.SubtypeAuthenticationReject)
		return
	}
	snn := keys.ConstructServingNetworkName(*c.Plmn)
	if string(pkt.Attributes[eap.AttrKdfInput]) != snn {
		c.sendEapAkaPrimeSubtypeOnly(identifier, eap.SubtypeAuthenticationReject)
		return
	}

	if msg.NgKsi.Tsc != context.TscNative || msg.NgKsi.Ksi == context.KsiNotAvailable {
		c.sendEapAkaPrimeAuthFailure(nasmsg.CauseUnspecifiedProtocolError)
		return
	}
	if c.ngKsiCollides(msg.NgKsi.Ksi) {
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendEapAkaPrimeAuthFailure(nasmsg.CauseNgKsiAlreadyInUse)
		return
	}

	c.Timers.T3516.Start()
	outcome, err := ValidateAutn(c.opc(), c.USIM.Config.K, rand, autn, c.USIM.Sqn)
	if err != nil {
		logger.AuthEapLog.Errorf("AUTN validation error: %v", err)
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		return
	}

	switch outcome.Result {
	case AutnOK:
		c.acceptEapAkaPrime(msg, pkt, rand, autn, receivedMac, outcome)
	case AutnMacFailure:
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendEapAkaPrimeSubtypeOnly(identifier, eap.SubtypeAuthenticationReject)
	case AutnSynchronisationFailure:
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.synchFailEapAkaPrime(identifier, rand)
	case AutnAmfSeparationBitFailure:
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendEapAkaPrimeClientError(identifier)
	}
}

// acceptEapAkaPrime derives CK'/IK', MK, KAUT, verifies AT_MAC against
// pkt.MacInput (msg.EapMessage with AT_MAC already zeroed in place by the
// earlier DecodeAkaPrimePacket call) and, on match, stages the security
// context and emits the AKA_CHALLENGE response.
func (c *Controller) acceptEapAkaPrime(msg *nasmsg.AuthenticationRequest, pkt *eap.AkaPrimePacket, rand, autn, receivedMac []byte, outcome *AutnOutcome) {
	identifier := msg.EapMessage[1]

	sqnXorAk := autn[0:6]
	snn := keys.ConstructServingNetworkName(*c.Plmn)
	ckPrime, ikPrime, err := keys.CalculateCkPrimeIkPrime(outcome.Record.Ck, outcome.Record.Ik, snn, sqnXorAk)
	if err != nil {
		logger.AuthEapLog.Errorf("CK'/IK' derivation: %v", err)
		return
	}
	mk := keys.CalculateMk(ckPrime, ikPrime, c.USIM.Config.Supi)
	kAut := keys.KAut(mk)

	computedMac := keys.CalculateMacForEapAkaPrime(kAut, pkt.MacInput)
	if !octets.Equal(receivedMac, computedMac) {
		c.USIM.Auth.Clear()
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendEapAkaPrimeClientError(identifier)
		return
	}

	c.USIM.Auth.Rand = append([]byte{}, rand...)
	c.USIM.Auth.ResStar = nil

	nsCtx := &context.NasSecurityContext{
		Tsc:   msg.NgKsi.Tsc,
		NgKsi: msg.NgKsi.Ksi,
		Keys: context.NasKeys{
			KAusf: keys.CalculateKAusfForEapAkaPrime(mk),
			Abba:  msg.Abba,
		},
	}
	if err := keys.DeriveKeysSeafAmf(c.USIM.Config.Supi, *c.Plmn, nsCtx); err != nil {
		logger.AuthEapLog.Errorf("KSEAF/KAMF derivation: %v", err)
		return
	}
	c.USIM.NonCurrentNsCtx = nsCtx
	c.USIM.Auth.NwConsecutiveAuthFailure = 0
	c.Timers.T3520.Stop()

	resp := c.buildEapAkaPrimeChallengeResponse(identifier, outcome.Record.Res, kAut)
	c.Sink.SendNasMessage(&nasmsg.AuthenticationResponse{EapMessage: resp})
}

// buildEapAkaPrimeChallengeResponse builds an AKA_CHALLENGE EAP response
// carrying AT_RES and AT_KDF, places AT_MAC as 16 zero bytes, computes the
// MAC over the whole packet, then writes the real MAC value in place, per
// §4.5's "MAC field first placed as 16 zero bytes, then replaced".
func (c *Controller) buildEapAkaPrimeChallengeResponse(identifier uint8, res, kAut []byte) []byte {
	attrRes := eap.EncodeRes(res)
	attrKdf := eap.EncodeKdf()
	zeroMac, _ := eap.EncodeMac(nil)

	body := []byte{eap.SubtypeChallenge, 0, 0}
	body = append(body, attrRes...)
	body = append(body, attrKdf...)
	body = append(body, zeroMac...)

	full := eap.Encode(eap.CodeResponse, identifier, eap.TypeAkaPrime, body)
	mac := keys.CalculateMacForEapAkaPrime(kAut, full)

	finalMac, err := eap.EncodeMac(mac)
	if err != nil {
		logger.AuthEapLog.Errorf("final AT_MAC encode: %v", err)
		return full
	}
	copy(full[len(full)-20:], finalMac)
	return full
}

func (c *Controller) synchFailEapAkaPrime(identifier uint8, rand []byte) {
	auts, err := c.computeAuts(rand)
	if err != nil {
		logger.AuthEapLog.Errorf("AUTS computation: %v", err)
		return
	}
	attrAuts, err := eap.EncodeAuts(auts)
	if err != nil {
		logger.AuthEapLog.Errorf("AT_AUTS encode: %v", err)
		return
	}
	body := []byte{eap.SubtypeSynchronizationFailure, 0, 0}
	body = append(body, attrAuts...)
	resp := eap.Encode(eap.CodeResponse, identifier, eap.TypeAkaPrime, body)
	c.sendEapAkaPrimeFailure(resp)
}

func (c *Controller) sendEapAkaPrimeClientError(identifier uint8) {
	attr := eap.EncodeClientErrorCode(0)
	body := append([]byte{eap.SubtypeClientError, 0, 0}, attr...)
	resp := eap.Encode(eap.CodeResponse, identifier, eap.TypeAkaPrime, body)
	c.sendEapAkaPrimeFailure(resp)
}

func (c *Controller) sendEapAkaPrimeSubtypeOnly(identifier, subtype uint8) {
	body := []byte{subtype, 0, 0}
	resp := eap.Encode(eap.CodeResponse, identifier, eap.TypeAkaPrime, body)
	c.sendEapAkaPrimeFailure(resp)
}

// sendEapAkaPrimeFailure clears rand/resStar and stops T3516 before sending
// the given EAP response, mirroring the sendEapFailure closure's invariant
// that every EAP-AKA' failure path wipes volatile state before responding.
func (c *Controller) sendEapAkaPrimeFailure(eapMessage []byte) {
	c.USIM.Auth.Clear()
	c.Timers.T3516.Stop()
	c.Sink.SendNasMessage(&nasmsg.AuthenticationResponse{EapMessage: eapMessage})
}

// sendEapAkaPrimeAuthFailure mirrors sendAuthFailure: clear rand/resStar,
// stop T3516, then send a plain AuthenticationFailure (used for the
// preconditions rejected before an EAP challenge response is meaningful).
func (c *Controller) sendEapAkaPrimeAuthFailure(cause uint8) {
	c.USIM.Auth.Clear()
	c.Timers.T3516.Stop()
	c.sendAkaFailure(cause, nil)
}
