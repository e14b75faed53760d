// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultPrefix is prepended to every variable, e.g. AIDLEDGER_SERVER_PORT.
const DefaultPrefix = "AIDLEDGER"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabasePath    string `envconfig:"DATABASE_PATH" default:"aidledger.db"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"15"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Ledger
	VoucherValidityDays    int    `envconfig:"VOUCHER_VALIDITY_DAYS" default:"90"`
	SweepSchedule          string `envconfig:"SWEEP_SCHEDULE" default:"@every 1h"`
	FraudDonationThreshold string `envconfig:"FRAUD_DONATION_THRESHOLD" default:"10000"`
}

// Load reads the environment under prefix and validates the result.
func Load(prefix string) (*Config, error) {
	c := new(Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("set DATABASE_PATH")
	}
	if c.VoucherValidityDays <= 0 {
		return fmt.Errorf("VOUCHER_VALIDITY_DAYS must be positive, got %d", c.VoucherValidityDays)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	threshold, err := decimal.NewFromString(c.FraudDonationThreshold)
	if err != nil {
		return fmt.Errorf("FRAUD_DONATION_THRESHOLD: %w", err)
	}
	if !threshold.IsPositive() {
		return fmt.Errorf("FRAUD_DONATION_THRESHOLD must be positive, got %s", threshold)
	}
	return nil
}

func (c *Config) VoucherValidity() time.Duration {
	return time.Duration(c.VoucherValidityDays) * 24 * time.Hour
}

// FraudThreshold parses FraudDonationThreshold; Validate has already
// rejected anything unparseable.
func (c *Config) FraudThreshold() decimal.Decimal {
	d, _ := decimal.NewFromString(c.FraudDonationThreshold)
	return d
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// NewLogger builds the process logger. LOG_FORMAT=text switches to the
// human-readable formatter; anything else logs JSON.
func NewLogger(c *Config) *logrus.Logger {
	return newLogger(c, os.Stderr)
}

func newLogger(c *Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if strings.EqualFold(c.LogFormat, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
