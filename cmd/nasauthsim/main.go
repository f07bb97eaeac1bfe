/*
 * NASAUTH Simulator Harness
 */

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/free5gc/nasauth/internal/auth"
	"github.com/free5gc/nasauth/internal/context"
	"github.com/free5gc/nasauth/internal/logger"
	"github.com/free5gc/nasauth/internal/milenage"
	"github.com/free5gc/nasauth/internal/nasmsg"
	"github.com/free5gc/nasauth/pkg/factory"
)

var cliCmd = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "Load configuration from `FILE`",
	},
}

// loggingSink is the demonstration Sink: it logs every message the
// controller emits instead of delivering it to a live NAS task.
type loggingSink struct{}

func (loggingSink) SendNasMessage(msg nasmsg.Outbound) {
	switch m := msg.(type) {
	case *nasmsg.AuthenticationResponse:
		logger.AppLog.Infof("-> AuthenticationResponse resStar=%x eap=%x", m.ResponseParameter, m.EapMessage)
	case *nasmsg.AuthenticationFailure:
		logger.AppLog.Infof("-> AuthenticationFailure cause=%d param=%x", m.MmCause, m.AuthenticationFailureParameter)
	case *nasmsg.MmStatus:
		logger.AppLog.Infof("-> MmStatus cause=%d", m.MmCause)
	default:
		logger.AppLog.Infof("-> unrecognised outbound message %T", m)
	}
}

// loggingBridge is the demonstration MMBridge: every hook just logs, since
// this harness drives no real MM state machine.
type loggingBridge struct {
	cmConnected bool
}

func (loggingBridge) SwitchUState(state context.UState)   { logger.AppLog.Infof("bridge: uState -> %s", state) }
func (loggingBridge) SwitchMmState(state context.MmState) { logger.AppLog.Infof("bridge: mmState -> %s", state) }
func (loggingBridge) ClearGuti()                          { logger.AppLog.Infof("bridge: clear GUTI") }
func (loggingBridge) ClearTaiList()                       { logger.AppLog.Infof("bridge: clear TAI list") }
func (loggingBridge) ClearLastVisitedTai()                { logger.AppLog.Infof("bridge: clear last visited TAI") }
func (b loggingBridge) IsCmConnected() bool               { return b.cmConnected }
func (loggingBridge) LocalReleaseConnection(cause string) {
	logger.AppLog.Warnf("bridge: local release connection: %s", cause)
}
func (loggingBridge) StopTimer3510() {}
func (loggingBridge) StopTimer3517() {}
func (loggingBridge) StopTimer3519() {}
func (loggingBridge) StopTimer3521() {}

// loggingTimer is the demonstration Timer: start/stop just log, no real
// T3516/T3520 expiry is driven by this harness.
type loggingTimer struct {
	name string
}

func (t loggingTimer) Start() { logger.AppLog.Debugf("timer %s started", t.name) }
func (t loggingTimer) Stop()  { logger.AppLog.Debugf("timer %s stopped", t.name) }

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func buildController(cfg *factory.Config) (*auth.Controller, error) {
	usimCfg := cfg.Configuration.Usim
	plmnCfg := cfg.Configuration.Plmn

	ctxCfg := &context.UsimConfig{
		K:                 mustHex(usimCfg.K),
		AMF:               mustHex(usimCfg.Amf),
		Supi:              usimCfg.Supi,
		CaCertificate:     usimCfg.CaCertificate,
		ClientCertificate: usimCfg.ClientCertificate,
		ClientPrivateKey:  usimCfg.ClientPrivateKey,
		ClientPassword:    usimCfg.ClientPassword,
	}
	if usimCfg.Opc != "" {
		ctxCfg.OpType = context.OpTypeOPC
		ctxCfg.OPC = mustHex(usimCfg.Opc)
	} else {
		ctxCfg.OpType = context.OpTypeOP
		ctxCfg.OP = mustHex(usimCfg.Op)
	}

	sqn := context.NewAnnex33102SqnManager([6]byte{})
	usim := context.NewUSIM(ctxCfg, sqn)

	plmn := &context.Plmn{Mcc: plmnCfg.Mcc, Mnc: plmnCfg.Mnc}
	timers := &context.Timers{T3516: loggingTimer{"T3516"}, T3520: loggingTimer{"T3520"}}
	bridge := loggingBridge{}

	authCfg := auth.DefaultConfig()
	authCfg.SkipAutnOnRandReplay = cfg.Configuration.SkipAutnOnRandReplayEnabled()

	return auth.NewController(loggingSink{}, usim, timers, bridge, plmn, authCfg), nil
}

func opcOf(cfg *context.UsimConfig) ([]byte, error) {
	if cfg.OpType == context.OpTypeOPC {
		return cfg.OPC, nil
	}
	return milenage.CalculateOpC(cfg.OP, cfg.K)
}

func nextSqn(sqn [6]byte) [6]byte {
	var v uint64
	for _, b := range sqn {
		v = v<<8 | uint64(b)
	}
	v++
	var out [6]byte
	for i := 5; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// runSmokeTest plays a single 5G-AKA AuthenticationRequest, with a RAND/AUTN
// pair freshly computed against the USIM's own K/OPC and a SQN ahead of the
// one the USIM currently holds, through ReceiveAuthenticationRequest, the
// same way the unit tests exercise the controller without a real network.
func runSmokeTest(c *auth.Controller) {
	rand := mustHex("23553cbe9637a89d218ae64dae47bf35")
	amf := mustHex("8000")
	sqn := nextSqn(c.USIM.Sqn.GetSqn())

	opc, err := opcOf(c.USIM.Config)
	if err != nil {
		logger.AppLog.Errorf("smoke test: derive OPC: %v", err)
		return
	}

	rec, err := milenage.Calculate(opc, c.USIM.Config.K, rand, sqn[:], amf)
	if err != nil {
		logger.AppLog.Errorf("smoke test: milenage: %v", err)
		return
	}

	sqnXorAk := make([]byte, 6)
	for i := range sqnXorAk {
		sqnXorAk[i] = sqn[i] ^ rec.Ak[i]
	}
	autn := append(append(append([]byte{}, sqnXorAk...), amf...), rec.MacA...)

	logger.AppLog.Infof("feeding 5G-AKA AuthenticationRequest, rand=%x autn=%x", rand, autn)

	req := &nasmsg.AuthenticationRequest{
		NgKsi:       context.NgKsi{Tsc: context.TscNative, Ksi: 0},
		Abba:        []byte{0x00, 0x00},
		RandPresent: true,
		Rand:        rand,
		AutnPresent: true,
		Autn:        autn,
	}
	c.ReceiveAuthenticationRequest(req)
}

func action(c *cli.Context) error {
	cfgPath := c.String("config")
	if cfgPath == "" {
		cfgPath = factory.NasauthDefaultConfigPath
	}

	cfg, err := factory.ReadConfig(cfgPath)
	if err != nil {
		return err
	}

	if level, err := logrus.ParseLevel(cfg.GetLogLevel()); err == nil {
		logger.SetLogLevel(level)
	}
	logger.SetReportCaller(cfg.GetLogReportCaller())

	controller, err := buildController(cfg)
	if err != nil {
		return err
	}

	runSmokeTest(controller)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "nasauthsim"
	app.Usage = "NAS authentication core simulator harness"
	app.Flags = cliCmd
	app.Action = action

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nasauthsim: %v\n", err)
		os.Exit(1)
	}
}
