package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/flubl/telegrambot/internal/config"
	"github.com/flubl/telegrambot/internal/vault"
	"github.com/flubl/telegrambot/telegram"
)

// Replaceable for testing.
var (
	configLoad    = config.Load
	vaultOpen     = vault.Open
	newClient     = telegram.NewClient
	signalContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	}
)

// loadConfig reads and validates the configuration at path and installs the
// configured log level on stderr. A missing file falls back to defaults plus
// TGBOT_* variables.
func loadConfig(path string, stderr io.Writer) (*config.Config, error) {
	cfg, err := configLoad(path, true)
	if err != nil {
		return nil, err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	setupLogger(stderr, level)
	return cfg, nil
}

func setupLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// openClient loads the configuration, resolves the bot token and builds a
// client for it.
func openClient(path string, scanner *bufio.Scanner, stderr io.Writer) (*config.Config, *telegram.Client, error) {
	cfg, err := loadConfig(path, stderr)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	token, err := resolveToken(cfg, scanner, stderr)
	if err != nil {
		return nil, nil, err
	}

	// The HTTP timeout must outlast a long poll.
	timeout := cfg.Telegram.Timeout.Duration
	if floor := time.Duration(cfg.Poll.Timeout)*time.Second + 10*time.Second; timeout > 0 && timeout < floor {
		timeout = floor
	}
	client := newClient(token,
		telegram.WithEndpoint(cfg.Telegram.Endpoint),
		telegram.WithHTTPClient(&http.Client{Timeout: timeout}),
		telegram.WithTracerProvider(otel.GetTracerProvider()),
	)
	slog.Debug("client ready", "component", "cmd", "operation", "open_client", "endpoint", cfg.Telegram.Endpoint)
	return cfg, client, nil
}

// resolveToken returns the clear token from the configuration, or opens the
// keyring and reads the token named by telegram.token_key.
func resolveToken(cfg *config.Config, scanner *bufio.Scanner, stderr io.Writer) (string, error) {
	if cfg.Telegram.Token != "" {
		return cfg.Telegram.Token, nil
	}
	kr, err := openKeyring(cfg, scanner, stderr)
	if err != nil {
		return "", err
	}
	token, err := kr.Token(cfg.Telegram.TokenKey)
	if err != nil {
		return "", err
	}
	return token, nil
}

// passphrase returns TGBOT_VAULT_PASSPHRASE when set, otherwise prompts.
func passphrase(cfg *config.Config, scanner *bufio.Scanner, w io.Writer) (string, error) {
	if cfg.Vault.Passphrase != "" {
		return cfg.Vault.Passphrase, nil
	}
	p, err := readLine(scanner, "Passphrase: ", w)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if p == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	return p, nil
}

func openKeyring(cfg *config.Config, scanner *bufio.Scanner, w io.Writer) (*vault.Keyring, error) {
	p, err := passphrase(cfg, scanner, w)
	if err != nil {
		return nil, err
	}
	return vaultOpen(p, cfg.Vault.Path)
}

// readLine prints prompt to w and reads one trimmed line.
func readLine(scanner *bufio.Scanner, prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("unexpected end of input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// fail reports err on stderr and returns the failure exit code.
func fail(stderr io.Writer, op string, err error) int {
	slog.Debug("command failed", "component", "cmd", "operation", op, "error", err)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
