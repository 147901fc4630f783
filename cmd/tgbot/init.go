package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/flubl/telegrambot/internal/config"
	"github.com/flubl/telegrambot/internal/vault"
	"github.com/flubl/telegrambot/telegram"
)

// defaultTokenKey names the keyring entry init stores the token under.
const defaultTokenKey = "default"

// Replaceable for testing error paths.
var (
	configSave  = config.Save
	vaultCreate = vault.Create
)

// parseAllowedIDs parses comma-separated integer IDs. Blank input means no
// whitelist.
func parseAllowedIDs(input string) ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("init: invalid Telegram ID %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// runInit asks for the token and whitelist and writes a configuration file.
// The token is either written in clear or sealed into the keyring.
func runInit(args []string, stdin io.Reader, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config"}, []string{"vault"})
	if err != nil || len(fs.args) != 0 {
		fmt.Fprintln(stderr, "Usage: tgbot init [--config path] [--vault]")
		return 1
	}
	path := fs.value("config", config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fail(stderr, "init", fmt.Errorf("%s already exists", path))
	}

	cfg, err := loadConfig(path, stderr)
	if err != nil {
		return fail(stderr, "init", err)
	}

	scanner := bufio.NewScanner(stdin)
	token, err := readLine(scanner, "Bot token: ", stderr)
	if err != nil {
		return fail(stderr, "init", err)
	}
	if err := telegram.ValidateToken(token); err != nil {
		return fail(stderr, "init", err)
	}
	idsInput, err := readLine(scanner, "Allowed user IDs (comma-separated, blank for everyone): ", stderr)
	if err != nil {
		return fail(stderr, "init", err)
	}
	if cfg.Poll.AllowedIDs, err = parseAllowedIDs(idsInput); err != nil {
		return fail(stderr, "init", err)
	}

	if fs.set["vault"] {
		if err := storeInitToken(cfg, token, scanner, stderr); err != nil {
			return fail(stderr, "init", err)
		}
		cfg.Telegram.Token = ""
		cfg.Telegram.TokenKey = defaultTokenKey
	} else {
		cfg.Telegram.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return fail(stderr, "init", err)
	}
	if err := configSave(cfg, path); err != nil {
		return fail(stderr, "init", err)
	}
	fmt.Fprintf(stderr, "Configuration written to %s\n", path)
	return 0
}

// storeInitToken seals token into the keyring, creating it when needed.
func storeInitToken(cfg *config.Config, token string, scanner *bufio.Scanner, w io.Writer) error {
	p, err := passphrase(cfg, scanner, w)
	if err != nil {
		return err
	}
	kr, err := vaultCreate(p, cfg.Vault.Path)
	if errors.Is(err, vault.ErrExists) {
		kr, err = vaultOpen(p, cfg.Vault.Path)
	}
	if err != nil {
		return err
	}
	return kr.Store(defaultTokenKey, token)
}
