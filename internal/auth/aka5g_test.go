package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/nasmsg"
)

func decodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

type fakeSink struct {
	sent []nasmsg.Outbound
}

func (f *fakeSink) SendNasMessage(msg nasmsg.Outbound) {
	f.sent = append(f.sent, msg)
}

type fakeTimer struct {
	starts, stops int
}

func (t *fakeTimer) Start() { t.starts++ }
func (t *fakeTimer) Stop()  { t.stops++ }

type fakeBridge struct {
	cmConnected    bool
	released       bool
	uState         context.UState
	mmState        context.MmState
	guttiCleared   bool
	taiListCleared bool
	lastTaiCleared bool
}

func (b *fakeBridge) SwitchUState(s context.UState)   { b.uState = s }
func (b *fakeBridge) SwitchMmState(s context.MmState) { b.mmState = s }
func (b *fakeBridge) ClearGuti()                      { b.guttiCleared = true }
func (b *fakeBridge) ClearTaiList()                   { b.taiListCleared = true }
func (b *fakeBridge) ClearLastVisitedTai()             { b.lastTaiCleared = true }
func (b *fakeBridge) IsCmConnected() bool              { return b.cmConnected }
func (b *fakeBridge) LocalReleaseConnection(cause string) { b.released = true }
func (b *fakeBridge) StopTimer3510()                  {}
func (b *fakeBridge) StopTimer3517()                  {}
func (b *fakeBridge) StopTimer3519()                  {}
func (b *fakeBridge) StopTimer3521()                  {}

func newTestController(sqnAccept bool) (*Controller, *fakeSink, *fixedSqnManager) {
	usim := context.NewUSIM(&context.UsimConfig{
		K:      decodeHex("465b5ce8b199b49faa5f0a2ee238a6bc"),
		OPC:    decodeHex("cd63cb71954a9f4e48a5994e37a02baf"),
		OpType: context.OpTypeOPC,
		AMF:    decodeHex("b9b9"),
		Supi:   "imsi-001010000000001",
	}, &fixedSqnManager{sqn: [6]byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, accept: sqnAccept})

	sink := &fakeSink{}
	plmn := &context.Plmn{Mcc: "001", Mnc: "01"}
	c := NewController(sink, usim, &context.Timers{T3516: &fakeTimer{}, T3520: &fakeTimer{}}, &fakeBridge{}, plmn, DefaultConfig())
	return c, sink, usim.Sqn.(*fixedSqnManager)
}

func TestHandle5gAkaValidAuthentication(t *testing.T) {
	c, sink, _ := newTestController(true)

	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := buildAutn(t, c.USIM.Config.OPC, c.USIM.Config.K, rand, []byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, c.USIM.Config.AMF)

	req := &nasmsg.AuthenticationRequest{
		NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 0},
		Abba:        []byte{0x00, 0x00},
		RandPresent: true,
		Rand:        rand,
		AutnPresent: true,
		Autn:        autn,
	}

	c.ReceiveAuthenticationRequest(req)

	assert.Len(t, sink.sent, 1)
	resp, ok := sink.sent[0].(*nasmsg.AuthenticationResponse)
	assert.True(t, ok)
	assert.Len(t, resp.ResponseParameter, 16)
	assert.NotNil(t, c.USIM.NonCurrentNsCtx)
	assert.Equal(t, uint8(0), c.USIM.Auth.NwConsecutiveAuthFailure)
}

func TestHandle5gAkaSynchFailure(t *testing.T) {
	c, sink, _ := newTestController(false)

	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := buildAutn(t, c.USIM.Config.OPC, c.USIM.Config.K, rand, []byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, c.USIM.Config.AMF)

	req := &nasmsg.AuthenticationRequest{
		NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 0},
		Abba:        []byte{0x00, 0x00},
		RandPresent: true,
		Rand:        rand,
		AutnPresent: true,
		Autn:        autn,
	}

	c.ReceiveAuthenticationRequest(req)

	assert.Len(t, sink.sent, 1)
	fail, ok := sink.sent[0].(*nasmsg.AuthenticationFailure)
	assert.True(t, ok)
	assert.Equal(t, nasmsg.CauseSynchFailure, fail.MmCause)
	assert.Len(t, fail.AuthenticationFailureParameter, 14)
	assert.Nil(t, c.USIM.Auth.Rand)
	assert.Nil(t, c.USIM.Auth.ResStar)
}

func TestHandle5gAkaMacFailure(t *testing.T) {
	c, sink, _ := newTestController(true)

	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := buildAutn(t, c.USIM.Config.OPC, c.USIM.Config.K, rand, []byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, c.USIM.Config.AMF)
	autn[15] ^= 0xff

	req := &nasmsg.AuthenticationRequest{
		NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 0},
		Abba:        []byte{0x00, 0x00},
		RandPresent: true,
		Rand:        rand,
		AutnPresent: true,
		Autn:        autn,
	}

	c.ReceiveAuthenticationRequest(req)

	assert.Len(t, sink.sent, 1)
	fail, ok := sink.sent[0].(*nasmsg.AuthenticationFailure)
	assert.True(t, ok)
	assert.Equal(t, nasmsg.CauseMacFailure, fail.MmCause)
	assert.Equal(t, uint8(1), c.USIM.Auth.NwConsecutiveAuthFailure)
}

func TestHandle5gAkaNgKsiCollision(t *testing.T) {
	c, sink, _ := newTestController(true)
	c.USIM.CurrentNsCtx = &context.NasSecurityContext{NgKsi: 3}

	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := buildAutn(t, c.USIM.Config.OPC, c.USIM.Config.K, rand, []byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, c.USIM.Config.AMF)

	req := &nasmsg.AuthenticationRequest{
		NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 3},
		RandPresent: true,
		Rand:        rand,
		AutnPresent: true,
		Autn:        autn,
	}

	c.ReceiveAuthenticationRequest(req)

	assert.Len(t, sink.sent, 1)
	fail, ok := sink.sent[0].(*nasmsg.AuthenticationFailure)
	assert.True(t, ok)
	assert.Equal(t, nasmsg.CauseNgKsiAlreadyInUse, fail.MmCause)
	assert.Equal(t, uint8(1), c.USIM.Auth.NwConsecutiveAuthFailure)
}

func TestHandle5gAkaTripAfterThreeFailures(t *testing.T) {
	c, sink, _ := newTestController(true)

	rand := mustHex(t, "23553cbe9637a89d218ae64dae47bf35")
	autn := buildAutn(t, c.USIM.Config.OPC, c.USIM.Config.K, rand, []byte{0xff, 0x9b, 0xb4, 0xd0, 0xb6, 0x07}, c.USIM.Config.AMF)
	autn[15] ^= 0xff

	req := func() *nasmsg.AuthenticationRequest {
		return &nasmsg.AuthenticationRequest{
			NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 0},
			RandPresent: true,
			Rand:        rand,
			AutnPresent: true,
			Autn:        autn,
		}
	}

	for i := 0; i < 3; i++ {
		c.ReceiveAuthenticationRequest(req())
	}
	assert.Len(t, sink.sent, 3)

	bridge := c.Bridge.(*fakeBridge)
	bridge.cmConnected = true

	c.ReceiveAuthenticationRequest(req())

	assert.Len(t, sink.sent, 3) // fourth call suppressed
	assert.True(t, bridge.released)
}
