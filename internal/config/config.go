// Package config loads gateway configuration from the environment, an
// optional .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide gateway configuration.
type Config struct {
	Port            int           `env:"PORT,default=8080"`
	Environment     string        `env:"ENVIRONMENT,default=development"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`

	SolanaRPCURL string        `env:"SOLANA_RPC_URL,default=https://api.devnet.solana.com"`
	Commitment   string        `env:"SOLANA_COMMITMENT,default=confirmed"`
	RPCTimeout   time.Duration `env:"SOLANA_RPC_TIMEOUT,default=30s"`
	ProgramID    string        `env:"SAVINGS_PROGRAM_ID"`

	// DatabaseURL enables the relational cache. Empty runs chain-only.
	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE,default=true"`

	SimplifiedAuth bool `env:"SIMPLIFIED_AUTH,default=false"`
	FaucetEnabled  bool `env:"FAUCET_ENABLED,default=false"`

	CORSOrigins    string  `env:"CORS_ORIGINS,default=*"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=40"`

	// ConfigFile points at an optional YAML overlay.
	ConfigFile string `env:"CONFIG_FILE"`

	Currencies map[uint8]CurrencyMeta
}

// CurrencyMeta labels an on-chain currency id for clients.
type CurrencyMeta struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Decimals uint8  `yaml:"decimals" json:"decimals"`
}

// fileOverlay is the YAML document shape. Zero fields leave the
// environment value in place.
type fileOverlay struct {
	CORSOrigins []string               `yaml:"cors_origins"`
	Currencies  map[uint8]CurrencyMeta `yaml:"currencies"`
	RateLimit   struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// DefaultCurrencies are used when the overlay names none.
func DefaultCurrencies() map[uint8]CurrencyMeta {
	return map[uint8]CurrencyMeta{
		0: {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		1: {Symbol: "EURC", Name: "Euro Coin", Decimals: 6},
	}
}

// Load reads envFiles (missing files are ignored), decodes the environment,
// applies the YAML overlay and validates the result.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.Currencies = DefaultCurrencies()

	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if len(overlay.CORSOrigins) > 0 {
		c.CORSOrigins = strings.Join(overlay.CORSOrigins, ",")
	}
	if len(overlay.Currencies) > 0 {
		c.Currencies = overlay.Currencies
	}
	if overlay.RateLimit.RPS > 0 {
		c.RateLimitRPS = overlay.RateLimit.RPS
	}
	if overlay.RateLimit.Burst > 0 {
		c.RateLimitBurst = overlay.RateLimit.Burst
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.ProgramID == "" {
		return errors.New("SAVINGS_PROGRAM_ID is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("SAVINGS_PROGRAM_ID %q is not a valid address: %w", c.ProgramID, err)
	}
	u, err := url.Parse(c.SolanaRPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SOLANA_RPC_URL %q must be an http(s) URL", c.SolanaRPCURL)
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("SOLANA_COMMITMENT %q must be processed, confirmed or finalized", c.Commitment)
	}
	if c.RPCTimeout <= 0 {
		return errors.New("SOLANA_RPC_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}
	if c.SimplifiedAuth && c.IsProduction() {
		return errors.New("SIMPLIFIED_AUTH cannot be enabled in production")
	}
	return nil
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ProgramKey returns the parsed program id. Validate must have passed.
func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// AllowedOrigins splits CORSOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
