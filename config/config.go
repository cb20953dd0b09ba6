package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Mode      Mode            `toml:"-"`
	Service   ServiceConfig   `toml:"service"`
	MobileID  MobileIDConfig  `toml:"mobileid"`
	Session   SessionConfig   `toml:"session"`
	Pseudonym PseudonymConfig `toml:"pseudonym"`
}

type ServiceConfig struct {
	Mode     string `toml:"mode"`
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
}

// MobileIDConfig is the operator-account side of the deployment. The
// certificate paths resolve relative to CertDir.
type MobileIDConfig struct {
	HostURI    string `toml:"hosturi"`
	APID       string `toml:"ap_id"`
	APPassword string `toml:"ap_pwd"`

	CertDir  string `toml:"certdir"`
	CertFile string `toml:"cert_file"`
	CertKey  string `toml:"cert_key"`
	CAFile   string `toml:"mid_ca"`
	OCSPFile string `toml:"mid_ocsp"`

	Endpoint         string `toml:"endpoint"`
	SignatureProfile string `toml:"signature_profile"`
	DefaultLanguage  string `toml:"default_lang"`
	DefaultMessage   string `toml:"default_message"`
	TimeoutWS        int    `toml:"timeout_ws"`
	TimeoutMID       int    `toml:"timeout_mid"`
	RememberMSISDN   bool   `toml:"remember_msisdn"`
	ProxyURL         string `toml:"proxy_url"`
}

type SessionConfig struct {
	Backend       string `toml:"backend"`
	TTL           int    `toml:"ttl"`
	Size          int    `toml:"size"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type PseudonymConfig struct {
	DefaultCountryCode string               `toml:"default_country_code"`
	Jurisdictions      []JurisdictionConfig `toml:"jurisdictions"`
}

type JurisdictionConfig struct {
	CountryCode      string `toml:"country_code"`
	SubscriberDigits int    `toml:"subscriber_digits"`
}

func New() (*Config, error) {
	return Load(os.Getenv("CONFIG"))
}

func Load(fileName string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(fileName, &cfg); err != nil {
		return nil, err
	}

	var mode Mode
	switch cfg.Service.Mode {
	case "local", "":
		mode = LocalMode
	case "dev", "development":
		mode = DevelopmentMode
	case "prod", "production":
		mode = ProductionMode
	default:
		return nil, fmt.Errorf("config service.mode value is invalid, must be one of \"development\", \"dev\", \"production\" or \"prod\"")
	}
	cfg.Mode = mode
	cfg.Service.Mode = mode.String()

	if err := cfg.MobileID.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *MobileIDConfig) validate() error {
	if c.HostURI == "" {
		return fmt.Errorf("missing or invalid hosturi option in config")
	}
	if c.APID == "" {
		return fmt.Errorf("missing or invalid ap_id option in config")
	}
	if c.APPassword == "" {
		return fmt.Errorf("missing or invalid ap_pwd option in config")
	}

	files := []struct {
		option string
		path   *string
	}{
		{"cert_file", &c.CertFile},
		{"cert_key", &c.CertKey},
		{"mid_ca", &c.CAFile},
		{"mid_ocsp", &c.OCSPFile},
	}
	for _, f := range files {
		if *f.path == "" {
			return fmt.Errorf("missing or invalid %s option in config", f.option)
		}
		resolved := c.resolve(*f.path)
		if _, err := os.Stat(resolved); err != nil {
			return fmt.Errorf("missing or invalid %s option in config: %s", f.option, resolved)
		}
		*f.path = resolved
	}

	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.DefaultMessage == "" {
		c.DefaultMessage = "Login with Mobile ID?"
	}
	if c.TimeoutWS <= 0 {
		c.TimeoutWS = 90
	}
	if c.TimeoutMID <= 0 {
		c.TimeoutMID = 80
	}
	return nil
}

func (c *MobileIDConfig) resolve(path string) string {
	if filepath.IsAbs(path) || c.CertDir == "" {
		return path
	}
	return filepath.Join(c.CertDir, path)
}

func (c *SessionConfig) validate() error {
	switch c.Backend {
	case "", "memory":
		c.Backend = "memory"
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("missing or invalid redis_addr option in config")
		}
	default:
		return fmt.Errorf("config session.backend value is invalid, must be \"memory\" or \"redis\"")
	}
	if c.TTL <= 0 {
		c.TTL = 600
	}
	if c.Size <= 0 {
		c.Size = 1024
	}
	return nil
}

// WSTimeout bounds the web-service round trip.
func (c *MobileIDConfig) WSTimeout() time.Duration {
	return time.Duration(c.TimeoutWS) * time.Second
}

// MIDTimeout bounds the end-to-end signing transaction on the handset.
func (c *MobileIDConfig) MIDTimeout() time.Duration {
	return time.Duration(c.TimeoutMID) * time.Second
}

func (c *SessionConfig) SessionTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

type Mode uint32

const (
	LocalMode Mode = iota
	DevelopmentMode
	ProductionMode
)

func (m Mode) String() string {
	switch m {
	case LocalMode:
		return "local"
	case DevelopmentMode:
		return "development"
	case ProductionMode:
		return "production"
	default:
		return ""
	}
}
