// Package config loads tgbot settings from a TOML file and TGBOT_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/flubl/telegrambot/internal/platform"
	"github.com/flubl/telegrambot/telegram"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "tgbot.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TGBOT"

// configFilePerm is owner read/write only: the file may hold a bot token.
const configFilePerm = 0o600

// Replaceable for testing error paths.
var (
	atomicWrite = platform.AtomicWrite
	processEnv  = envconfig.Process
)

// Duration wraps time.Duration so it reads and writes as "30s" in TOML.
type Duration struct {
	time.Duration
}

// MarshalText encodes the duration as a string such as "1m30s".
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Config holds the tgbot configuration.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Vault    VaultConfig    `toml:"vault"`
	Poll     PollConfig     `toml:"poll"`
	Log      LogConfig      `toml:"log"`
}

// TelegramConfig selects the bot and the API server.
type TelegramConfig struct {
	// Token is the bot token in clear. Leave empty to use TokenKey.
	Token string `toml:"token,omitempty"`
	// TokenKey names a token stored in the vault.
	TokenKey string   `toml:"token_key,omitempty"`
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// VaultConfig locates the token keyring. The passphrase is only read from
// the environment.
type VaultConfig struct {
	Path       string `toml:"path"`
	Passphrase string `toml:"-"`
}

// PollConfig tunes the getUpdates loop.
type PollConfig struct {
	// Timeout is the long-poll timeout in seconds.
	Timeout    int     `toml:"timeout"`
	AllowedIDs []int64 `toml:"allowed_ids"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// env lists the TGBOT_* overrides.
type env struct {
	Token           string        `envconfig:"TOKEN"`
	Endpoint        string        `envconfig:"ENDPOINT"`
	Timeout         time.Duration `envconfig:"TIMEOUT"`
	VaultPath       string        `envconfig:"VAULT_PATH"`
	VaultPassphrase string        `envconfig:"VAULT_PASSPHRASE"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Endpoint: telegram.DefaultEndpoint,
			Timeout:  Duration{60 * time.Second},
		},
		Vault: VaultConfig{Path: "tgbot.vault"},
		Poll:  PollConfig{Timeout: 30},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides. A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		for _, key := range md.Undecoded() {
			slog.Warn("unknown config key", "component", "config", "operation", "load", "key", key.String())
		}
		slog.Info("config loaded", "component", "config", "operation", "load", "path", path)
	case allowMissing && errors.Is(err, os.ErrNotExist):
		slog.Debug("no config file, using defaults", "component", "config", "operation", "load", "path", path)
	default:
		return nil, fmt.Errorf("config: load: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := processEnv(EnvPrefix, &e); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	if e.Token != "" {
		c.Telegram.Token = e.Token
	}
	if e.Endpoint != "" {
		c.Telegram.Endpoint = e.Endpoint
	}
	if e.Timeout != 0 {
		c.Telegram.Timeout = Duration{e.Timeout}
	}
	if e.VaultPath != "" {
		c.Vault.Path = e.VaultPath
	}
	if e.VaultPassphrase != "" {
		c.Vault.Passphrase = e.VaultPassphrase
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	return nil
}

// Validate checks the configuration and normalizes the endpoint to end with
// a slash. Errors wrap telegram.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Telegram.Token != "":
		if err := telegram.ValidateToken(c.Telegram.Token); err != nil {
			errs = append(errs, fmt.Errorf("telegram.token: %w", err))
		}
	case c.Telegram.TokenKey == "":
		errs = append(errs, fmt.Errorf("%w: telegram.token or telegram.token_key is required", telegram.ErrConfiguration))
	}

	u, err := url.Parse(c.Telegram.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: telegram.endpoint %q is not an http(s) URL", telegram.ErrConfiguration, c.Telegram.Endpoint))
	} else if !strings.HasSuffix(c.Telegram.Endpoint, "/") {
		c.Telegram.Endpoint += "/"
	}

	if c.Telegram.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("%w: telegram.timeout must not be negative", telegram.ErrConfiguration))
	}
	if c.Poll.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: poll.timeout must not be negative", telegram.ErrConfiguration))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level. An empty level means info.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", telegram.ErrConfiguration, c.Log.Level)
	}
	return level, nil
}

// Save writes cfg to path as TOML, atomically.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: save: encode: %w", err)
	}
	if err := atomicWrite(path, buf.Bytes(), configFilePerm); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	slog.Info("config saved", "component", "config", "operation", "save", "path", path)
	return nil
}
