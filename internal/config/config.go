// Package config exposes the typed, immutable session configuration the
// trading core consumes. All validation happens here before a session
// starts; the engine never re-validates.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/sagecry/sagebot/pkg/errors"
)

// Mode selects between simulated and real order execution.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeReal      Mode = "real"
)

// Default values applied by Load when the file leaves them unset.
const (
	DefaultCycleIntervalSeconds = 300
	DefaultMaxOpenPositions    = 5
	DefaultQuoteSuffix         = "USDT"
	DefaultEventBufferSize     = 500
)

// apiKeyDisplayLength is how many leading characters of a credential are
// shown on the read surface; the rest is masked.
const apiKeyDisplayLength = 5

// Config holds every parameter of one trading session. It is immutable for
// the session's lifetime.
type Config struct {
	// Mode is the execution mode: simulated or real.
	Mode Mode `yaml:"mode" validate:"required,oneof=simulated real"`

	// APIKey and SecretKey authenticate against the exchange. Required in
	// real mode; optional in simulated mode where only public market data
	// endpoints are hit.
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"secret_key"`
	// Testnet routes real orders to the exchange testnet.
	Testnet bool `yaml:"testnet"`

	// BuyTrigger is the minimum 24h change percent for a buy candidate.
	BuyTrigger float64 `yaml:"buy_trigger"`
	// SellProfitTrigger closes a position once its gain reaches it (positive).
	SellProfitTrigger float64 `yaml:"sell_profit_trigger" validate:"gt=0"`
	// SellLossTrigger closes a position once its loss reaches it (negative).
	SellLossTrigger float64 `yaml:"sell_loss_trigger" validate:"lt=0"`
	// TradeNotional is the fixed quote amount allocated per position.
	TradeNotional float64 `yaml:"trade_notional" validate:"gt=0"`
	// InitialWallet seeds the simulated wallet. Ignored in real mode where
	// the balance is owned by the exchange.
	InitialWallet float64 `yaml:"initial_wallet"`
	// MaxOpenPositions caps how many positions the ledger may hold.
	MaxOpenPositions int `yaml:"max_open_positions" validate:"gt=0"`
	// CycleIntervalSeconds is the target wall-clock period of one cycle.
	CycleIntervalSeconds int `yaml:"cycle_interval_seconds" validate:"gt=0"`
	// QuoteSuffix filters the scan to instruments quoted in this currency.
	QuoteSuffix string `yaml:"quote_suffix" validate:"required"`

	// ListenAddr, when set, serves the HTTP status and metrics surface.
	ListenAddr string `yaml:"listen_addr"`
	// EventLogPath, when set, appends every emitted event to this file as
	// JSON lines.
	EventLogPath string `yaml:"event_log_path"`
	// EventBufferSize bounds the in-memory ring of recent events exposed
	// over HTTP.
	EventBufferSize int `yaml:"event_buffer_size" validate:"gt=0"`
}

// Load reads a YAML config file, applies defaults, and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CycleIntervalSeconds == 0 {
		c.CycleIntervalSeconds = DefaultCycleIntervalSeconds
	}

	if c.MaxOpenPositions == 0 {
		c.MaxOpenPositions = DefaultMaxOpenPositions
	}

	if c.QuoteSuffix == "" {
		c.QuoteSuffix = DefaultQuoteSuffix
	}

	if c.EventBufferSize == 0 {
		c.EventBufferSize = DefaultEventBufferSize
	}
}

// Validate checks struct tags plus the cross-field rules the engine relies on.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid trading config", err)
	}

	if c.Mode == ModeReal && (c.APIKey == "" || c.SecretKey == "") {
		return errors.New(errors.ErrCodeInvalidConfiguration, "real mode requires api_key and secret_key")
	}

	if c.Mode == ModeSimulated && c.InitialWallet <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "simulated mode requires a positive initial_wallet")
	}

	return nil
}

// CycleInterval returns the target cycle period as a duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalSeconds) * time.Second
}

// WalletOption carries the simulated wallet seed; None in real mode.
func (c *Config) WalletOption() optional.Option[float64] {
	if c.Mode == ModeSimulated {
		return optional.Some(c.InitialWallet)
	}

	return optional.None[float64]()
}

// Summary renders the active session parameters for display, with
// credentials truncated.
func (c *Config) Summary() map[string]string {
	return map[string]string{
		"mode":                string(c.Mode),
		"api_key":             maskKey(c.APIKey),
		"buy_trigger":         fmt.Sprintf("%.2f%%", c.BuyTrigger),
		"sell_profit_trigger": fmt.Sprintf("%.2f%%", c.SellProfitTrigger),
		"sell_loss_trigger":   fmt.Sprintf("%.2f%%", c.SellLossTrigger),
		"trade_notional":      fmt.Sprintf("%.2f %s", c.TradeNotional, c.QuoteSuffix),
		"max_open_positions":  fmt.Sprintf("%d", c.MaxOpenPositions),
		"cycle_interval":      c.CycleInterval().String(),
		"quote_suffix":        c.QuoteSuffix,
	}
}

func maskKey(key string) string {
	if key == "" {
		return "N/A"
	}

	if len(key) <= apiKeyDisplayLength {
		return key + "..."
	}

	return key[:apiKeyDisplayLength] + "..."
}
