package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/flubl/telegrambot/internal/config"
	"github.com/flubl/telegrambot/telegram/login"
)

const defaultLoginMaxAge = 24 * time.Hour

// runVerifyLogin checks the query string (or full redirect URL) a login
// widget produced against the bot token.
func runVerifyLogin(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config", "max-age"}, nil)
	if err != nil || len(fs.args) != 1 {
		fmt.Fprintln(stderr, "Usage: tgbot verify-login [--config path] [--max-age 24h] <query-or-url>")
		return 1
	}
	maxAge := defaultLoginMaxAge
	if v := fs.value("max-age", ""); v != "" {
		if maxAge, err = time.ParseDuration(v); err != nil {
			return fail(stderr, "verify_login", fmt.Errorf("invalid --max-age %q: %w", v, err))
		}
	}

	raw := fs.args[0]
	if _, query, ok := strings.Cut(raw, "?"); ok {
		raw = query
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return fail(stderr, "verify_login", err)
	}
	data, err := login.ParseQuery(q)
	if err != nil {
		return fail(stderr, "verify_login", err)
	}

	cfg, err := loadConfig(fs.value("config", config.DefaultPath), stderr)
	if err != nil {
		return fail(stderr, "verify_login", err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(stderr, "verify_login", err)
	}
	token, err := resolveToken(cfg, bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "verify_login", err)
	}

	if err := login.NewDataVerifier(token).Verify(data, maxAge); err != nil {
		return fail(stderr, "verify_login", err)
	}
	slog.Info("login verified", "component", "cmd", "operation", "verify_login", "user_id", data.ID)
	fmt.Fprintf(stdout, "valid: id %d (%s)\n", data.ID, strings.TrimSpace(data.FirstName+" "+data.LastName))
	return 0
}
