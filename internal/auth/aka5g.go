package auth

import (
	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/keys"
	"github.com/free5gc/nasauth/internal/logger"
	"github.com/free5gc/nasauth/internal/milenage"
	"github.com/free5gc/nasauth/internal/nasmsg"
	"github.com/free5gc/nasauth/internal/octets"
)

// handle5gAkaAuthenticationRequest implements C4: precondition checks, the
// RAND-replay optimisation, AUTN validation dispatch, key derivation on
// success and the three typed failure paths.
func (c *Controller) handle5gAkaAuthenticationRequest(msg *nasmsg.AuthenticationRequest) {
	if !msg.RandPresent || len(msg.Rand) != 16 || !msg.AutnPresent || len(msg.Autn) != 16 {
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.sendAkaFailure(nasmsg.CauseSemanticallyIncorrectMessage, nil)
		return
	}
	if msg.NgKsi.Tsc != context.TscNative {
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.sendAkaFailure(nasmsg.CauseUnspecifiedProtocolError, nil)
		return
	}
	if msg.NgKsi.Ksi == context.KsiNotAvailable {
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.sendAkaFailure(nasmsg.CauseUnspecifiedProtocolError, nil)
		return
	}
	if c.ngKsiCollides(msg.NgKsi.Ksi) {
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendAkaFailure(nasmsg.CauseNgKsiAlreadyInUse, nil)
		return
	}

	cfg := c.USIM.Config

	if c.Config.SkipAutnOnRandReplay && c.USIM.Auth.Rand != nil && octets.Equal(c.USIM.Auth.Rand, msg.Rand) {
		rec, err := milenage.Calculate(c.opc(), cfg.K, msg.Rand, c.USIM.Sqn.GetSqn()[:], cfg.AMF)
		if err != nil {
			logger.Auth5gAkaLog.Errorf("milenage on RAND replay: %v", err)
			return
		}
		c.accept5gAka(msg, rec.Ck, rec.Ik, [6]byte{}, rec.Res, true)
		return
	}

	c.Timers.T3516.Start()
	outcome, err := ValidateAutn(c.opc(), cfg.K, msg.Rand, msg.Autn, c.USIM.Sqn)
	if err != nil {
		logger.Auth5gAkaLog.Errorf("AUTN validation error: %v", err)
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		return
	}

	switch outcome.Result {
	case AutnOK:
		c.accept5gAka(msg, outcome.Record.Ck, outcome.Record.Ik, outcome.ReceivedSqn, outcome.Record.Res, false)
	case AutnMacFailure:
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendAkaFailure(nasmsg.CauseMacFailure, nil)
	case AutnSynchronisationFailure:
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		auts, err := c.computeAuts(msg.Rand)
		if err != nil {
			logger.Auth5gAkaLog.Errorf("AUTS computation: %v", err)
			return
		}
		c.sendAkaFailure(nasmsg.CauseSynchFailure, auts)
	case AutnAmfSeparationBitFailure:
		c.USIM.Auth.Clear()
		c.Timers.T3516.Stop()
		c.Timers.T3520.Start()
		if c.NetworkFailingTheAuthCheck(true) {
			return
		}
		c.sendAkaFailure(nasmsg.CauseNon5gAuthenticationUnacceptable, nil)
	}
}

func (c *Controller) opc() []byte {
	cfg := c.USIM.Config
	if cfg.OpType == context.OpTypeOPC {
		return cfg.OPC
	}
	opc, err := milenage.CalculateOpC(cfg.OP, cfg.K)
	if err != nil {
		logger.Auth5gAkaLog.Errorf("OPC derivation from OP: %v", err)
		return nil
	}
	return opc
}

// ngKsiCollides reports whether the offered ksi matches either existing
// security-context slot's ngKSI.
func (c *Controller) ngKsiCollides(ksi uint8) bool {
	if c.USIM.CurrentNsCtx != nil && c.USIM.CurrentNsCtx.NgKsi == ksi {
		return true
	}
	if c.USIM.NonCurrentNsCtx != nil && c.USIM.NonCurrentNsCtx.NgKsi == ksi {
		return true
	}
	return false
}

// computeAuts recomputes Milenage with the dummy AMF at the USIM's own
// current SQN and builds AUTS from that same SQN, per §4.1/§4.4's
// resynchronisation path: the UE tells the network its own SQN_MS so the
// network can resync to it, not the (stale/bogus) SQN the network offered.
func (c *Controller) computeAuts(rand []byte) ([]byte, error) {
	cfg := c.USIM.Config
	sqn := c.USIM.Sqn.GetSqn()
	rec, err := milenage.Calculate(c.opc(), cfg.K, rand, sqn[:], milenage.DummyAmf)
	if err != nil {
		return nil, err
	}
	return keys.CalculateAuts(sqn[:], rec.AkR, rec.MacS)
}

// accept5gAka runs the success path of §4.4: derive RES*/KAUSF/KSEAF/KAMF,
// stage nonCurrentNsCtx, reset the failure counter and emit the response.
func (c *Controller) accept5gAka(msg *nasmsg.AuthenticationRequest, ck, ik []byte, receivedSqn [6]byte, res []byte, isReplay bool) {
	cfg := c.USIM.Config
	snn := keys.ConstructServingNetworkName(*c.Plmn)
	ckIk := octets.Concat(ck, ik)

	resStar, err := keys.CalculateResStar(ckIk, snn, msg.Rand, res)
	if err != nil {
		logger.Auth5gAkaLog.Errorf("RES* derivation: %v", err)
		return
	}

	var sqnXorAk []byte
	if !isReplay {
		rec, err := milenage.Calculate(c.opc(), cfg.K, msg.Rand, receivedSqn[:], cfg.AMF)
		if err != nil {
			logger.Auth5gAkaLog.Errorf("milenage for KAUSF: %v", err)
			return
		}
		sqnXorAk, err = octets.Xor(receivedSqn[:], rec.Ak)
		if err != nil {
			logger.Auth5gAkaLog.Errorf("SQN xor AK: %v", err)
			return
		}
	} else {
		sqnXorAk = append([]byte{}, msg.Autn[0:6]...)
	}

	kAusf, err := keys.CalculateKAusfFor5gAka(ck, ik, snn, sqnXorAk)
	if err != nil {
		logger.Auth5gAkaLog.Errorf("KAUSF derivation: %v", err)
		return
	}

	c.USIM.Auth.Rand = append([]byte{}, msg.Rand...)
	c.USIM.Auth.ResStar = resStar

	nsCtx := &context.NasSecurityContext{
		Tsc:   msg.NgKsi.Tsc,
		NgKsi: msg.NgKsi.Ksi,
		Keys: context.NasKeys{
			KAusf: kAusf,
			Abba:  msg.Abba,
		},
	}
	if err := keys.DeriveKeysSeafAmf(cfg.Supi, *c.Plmn, nsCtx); err != nil {
		logger.Auth5gAkaLog.Errorf("KSEAF/KAMF derivation: %v", err)
		return
	}
	c.USIM.NonCurrentNsCtx = nsCtx

	c.USIM.Auth.NwConsecutiveAuthFailure = 0
	c.Timers.T3520.Stop()

	c.Sink.SendNasMessage(&nasmsg.AuthenticationResponse{ResponseParameter: resStar})
}

func (c *Controller) sendAkaFailure(cause uint8, param []byte) {
	c.Sink.SendNasMessage(&nasmsg.AuthenticationFailure{
		MmCause:                        cause,
		AuthenticationFailureParameter: param,
	})
}
