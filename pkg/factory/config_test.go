package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Info: &Info{Version: NasauthExpectedVersion},
		Configuration: &Configuration{
			Usim: &Usim{
				K:    "465b5ce8b199b49faa5f0a2ee238a6bc",
				Opc:  "cd63cb71954a9f4e48a5994e37a02baf",
				Amf:  "8000",
				Supi: "imsi-001010000000001",
			},
			Plmn: &Plmn{Mcc: "001", Mnc: "01"},
		},
		Logger: &Logger{Enable: true, Level: "info"},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()
	ok, err := cfg.Validate()
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestValidateRejectsOpAndOpcBothSet(t *testing.T) {
	cfg := validConfig()
	cfg.Configuration.Usim.Op = "cd63cb71954a9f4e48a5994e37a02baf"

	_, err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsNeitherOpNorOpcSet(t *testing.T) {
	cfg := validConfig()
	cfg.Configuration.Usim.Opc = ""

	_, err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsBadMcc(t *testing.T) {
	cfg := validConfig()
	cfg.Configuration.Plmn.Mcc = "1"

	_, err := cfg.Validate()
	assert.Error(t, err)
}

func TestSkipAutnOnRandReplayEnabledDefaultsTrue(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.Configuration.SkipAutnOnRandReplayEnabled())

	disabled := false
	cfg.Configuration.SkipAutnOnRandReplay = &disabled
	assert.False(t, cfg.Configuration.SkipAutnOnRandReplayEnabled())
}

func TestCheckConfigVersionMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.Info.Version = "0.0.1"

	err := CheckConfigVersion(cfg)
	assert.Error(t, err)
}

func TestLoggerAccessorsDefaultWhenLoggerNil(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.GetLogEnable())
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.False(t, cfg.GetLogReportCaller())

	cfg.SetLogLevel("debug")
	assert.Equal(t, "debug", cfg.GetLogLevel())
}
