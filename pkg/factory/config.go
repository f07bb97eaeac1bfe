/*
 * NASAUTH USIM/ME Configuration Factory
 */

package factory

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/asaskevich/govalidator"
	yaml "gopkg.in/yaml.v2"

	"github.com/free5gc/nasauth/internal/logger"
)

const (
	NasauthDefaultConfigPath = "./config/nasauthcfg.yaml"
	NasauthExpectedVersion   = "1.0.0"
)

// Config is the top-level YAML document: an Info block for version
// checking, a Configuration block carrying the USIM/ME authentication
// parameters, and a Logger block, matching the three-section shape of
// free5gc/ausf/pkg/factory.Config.
type Config struct {
	Info          *Info          `yaml:"info" valid:"required"`
	Configuration *Configuration `yaml:"configuration" valid:"required"`
	Logger        *Logger        `yaml:"logger" valid:"required"`
	sync.RWMutex
}

func (c *Config) Validate() (bool, error) {
	if configuration := c.Configuration; configuration != nil {
		if result, err := configuration.validate(); err != nil {
			return result, err
		}
	}

	result, err := govalidator.ValidateStruct(c)
	return result, appendInvalid(err)
}

type Info struct {
	Version     string `yaml:"version,omitempty" valid:"required"`
	Description string `yaml:"description,omitempty" valid:"type(string)"`
}

// Configuration is the §6 "recognised options" set, plus the PLMN and
// RAND-replay AUTN-skip toggle the core needs to construct a Controller.
type Configuration struct {
	Usim                 *Usim `yaml:"usim,omitempty" valid:"required"`
	Plmn                 *Plmn `yaml:"plmn,omitempty" valid:"required"`
	SkipAutnOnRandReplay *bool `yaml:"skipAutnOnRandReplay,omitempty" valid:"optional"`
}

// Usim is §3's USIM configuration block and §6's EAP-TLS credential paths.
type Usim struct {
	K                 string `yaml:"k" valid:"stringlength(32|32),hexadecimal,required"`
	Op                string `yaml:"op,omitempty" valid:"optional"`
	Opc               string `yaml:"opc,omitempty" valid:"optional"`
	Amf               string `yaml:"amf" valid:"stringlength(4|4),hexadecimal,required"`
	Supi              string `yaml:"supi" valid:"required"`
	CaCertificate     string `yaml:"caCertificate,omitempty" valid:"optional"`
	ClientCertificate string `yaml:"clientCertificate,omitempty" valid:"optional"`
	ClientPrivateKey  string `yaml:"clientPrivateKey,omitempty" valid:"optional"`
	ClientPassword    string `yaml:"clientPassword,omitempty" valid:"optional"`
}

func (u *Usim) validate() (bool, error) {
	if u.Op == "" && u.Opc == "" {
		return false, errors.New("Invalid usim: exactly one of op/opc must be set")
	}
	if u.Op != "" && u.Opc != "" {
		return false, errors.New("Invalid usim: exactly one of op/opc must be set")
	}

	result, err := govalidator.ValidateStruct(u)
	return result, appendInvalid(err)
}

// Plmn identifies the serving network used to construct the SNN.
type Plmn struct {
	Mcc string `yaml:"mcc" valid:"required"`
	Mnc string `yaml:"mnc" valid:"required"`
}

type Logger struct {
	Enable       bool   `yaml:"enable" valid:"type(bool)"`
	Level        string `yaml:"level" valid:"required,in(trace|debug|info|warn|error|fatal|panic)"`
	ReportCaller bool   `yaml:"reportCaller" valid:"type(bool)"`
}

func (c *Configuration) validate() (bool, error) {
	if usim := c.Usim; usim != nil {
		if result, err := usim.validate(); err != nil {
			return result, err
		}
	}

	if plmn := c.Plmn; plmn != nil {
		if result := govalidator.StringMatches(plmn.Mcc, "^[0-9]{3}$"); !result {
			err := errors.New("Invalid plmn.Mcc: " + plmn.Mcc + ", should be 3 digits integer.")
			return false, err
		}
		if result := govalidator.StringMatches(plmn.Mnc, "^[0-9]{2,3}$"); !result {
			err := errors.New("Invalid plmn.Mnc: " + plmn.Mnc + ", should be 2 or 3 digits integer.")
			return false, err
		}
	}

	result, err := govalidator.ValidateStruct(c)
	return result, appendInvalid(err)
}

// SkipAutnOnRandReplayEnabled resolves the §9/open-question toggle, default
// true (preserving the source's observed-but-uncertain optimisation).
func (c *Configuration) SkipAutnOnRandReplayEnabled() bool {
	if c.SkipAutnOnRandReplay == nil {
		return true
	}
	return *c.SkipAutnOnRandReplay
}

func appendInvalid(err error) error {
	var errs govalidator.Errors

	if err == nil {
		return nil
	}

	es, ok := err.(govalidator.Errors)
	if !ok {
		return err
	}
	for _, e := range es.Errors() {
		errs = append(errs, fmt.Errorf("Invalid %w", e))
	}

	return error(errs)
}

func (c *Config) GetVersion() string {
	c.RLock()
	defer c.RUnlock()

	if c.Info.Version != "" {
		return c.Info.Version
	}
	return ""
}

func (c *Config) SetLogEnable(enable bool) {
	c.Lock()
	defer c.Unlock()

	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		c.Logger = &Logger{
			Enable: enable,
			Level:  "info",
		}
	} else {
		c.Logger.Enable = enable
	}
}

func (c *Config) SetLogLevel(level string) {
	c.Lock()
	defer c.Unlock()

	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		c.Logger = &Logger{
			Level: level,
		}
	} else {
		c.Logger.Level = level
	}
}

func (c *Config) SetLogReportCaller(reportCaller bool) {
	c.Lock()
	defer c.Unlock()

	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		c.Logger = &Logger{
			Level:        "info",
			ReportCaller: reportCaller,
		}
	} else {
		c.Logger.ReportCaller = reportCaller
	}
}

func (c *Config) GetLogEnable() bool {
	c.RLock()
	defer c.RUnlock()
	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		return false
	}
	return c.Logger.Enable
}

func (c *Config) GetLogLevel() string {
	c.RLock()
	defer c.RUnlock()
	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		return "info"
	}
	return c.Logger.Level
}

func (c *Config) GetLogReportCaller() bool {
	c.RLock()
	defer c.RUnlock()
	if c.Logger == nil {
		logger.CfgLog.Warnf("Logger should not be nil")
		return false
	}
	return c.Logger.ReportCaller
}

// InitConfigFactory reads f (or NasauthDefaultConfigPath if f is empty) and
// unmarshals it into cfg, matching the read-then-yaml.Unmarshal shape used
// throughout the free5gc NF factory packages.
func InitConfigFactory(f string, cfg *Config) error {
	if f == "" {
		f = NasauthDefaultConfigPath
	}

	content, err := os.ReadFile(f)
	if err != nil {
		return fmt.Errorf("[Factory] %+v", err)
	}
	logger.CfgLog.Infof("Read config from [%s]", f)
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("[Factory] %+v", err)
	}
	return nil
}

// CheckConfigVersion compares the loaded document's info.version against the
// version this build expects.
func CheckConfigVersion(cfg *Config) error {
	currentVersion := cfg.GetVersion()
	if currentVersion != NasauthExpectedVersion {
		return fmt.Errorf("config version is [%s], but expected is [%s]",
			currentVersion, NasauthExpectedVersion)
	}
	logger.CfgLog.Infof("config version [%s]", currentVersion)
	return nil
}

// ReadConfig loads, version-checks and validates a config document in one
// call, for callers (such as cmd/nasauthsim) that don't need the
// intermediate steps separately.
func ReadConfig(cfgPath string) (*Config, error) {
	cfg := &Config{}
	if err := InitConfigFactory(cfgPath, cfg); err != nil {
		return nil, fmt.Errorf("ReadConfig [%s] Error: %+v", cfgPath, err)
	}
	if err := CheckConfigVersion(cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Validate(); err != nil {
		if validErrs, ok := err.(govalidator.Errors); ok {
			for _, validErr := range validErrs.Errors() {
				logger.CfgLog.Errorf("%+v", validErr)
			}
		}
		return nil, fmt.Errorf("ReadConfig [%s] Error: %+v", cfgPath, err)
	}
	return cfg, nil
}
