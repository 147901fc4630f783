package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/flubl/telegrambot/internal/config"
	"github.com/flubl/telegrambot/internal/vault"
)

// runVault dispatches keyring subcommands: init, set, get, list, rm.
func runVault(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config"}, nil)
	if err != nil || len(fs.args) == 0 {
		printVaultUsage(stderr)
		return 1
	}
	sub, rest := fs.args[0], fs.args[1:]

	want := map[string]int{"init": 0, "set": 1, "get": 1, "list": 0, "rm": 1}
	n, ok := want[sub]
	if !ok {
		fmt.Fprintf(stderr, "vault: unknown subcommand %q\n", sub)
		printVaultUsage(stderr)
		return 1
	}
	if len(rest) != n {
		printVaultUsage(stderr)
		return 1
	}

	cfg, err := loadConfig(fs.value("config", config.DefaultPath), stderr)
	if err != nil {
		return fail(stderr, "vault", err)
	}
	scanner := bufio.NewScanner(stdin)

	if sub == "init" {
		p, err := passphrase(cfg, scanner, stderr)
		if err != nil {
			return fail(stderr, "vault", err)
		}
		if _, err := vaultCreate(p, cfg.Vault.Path); err != nil {
			return fail(stderr, "vault", err)
		}
		fmt.Fprintf(stderr, "Keyring created: %s\n", cfg.Vault.Path)
		return 0
	}

	kr, err := openKeyring(cfg, scanner, stderr)
	if err != nil {
		return fail(stderr, "vault", vaultUserError(err))
	}

	switch sub {
	case "set":
		token, err := readLine(scanner, "Token: ", stderr)
		if err != nil {
			return fail(stderr, "vault", err)
		}
		if err := kr.Store(rest[0], token); err != nil {
			return fail(stderr, "vault", err)
		}
		fmt.Fprintf(stderr, "Token stored: %s\n", rest[0])
	case "get":
		token, err := kr.Token(rest[0])
		if err != nil {
			return fail(stderr, "vault", vaultUserError(err))
		}
		fmt.Fprintln(stdout, token)
	case "list":
		names := kr.Names()
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		slog.Info("keyring listed", "component", "vault-cli", "operation", "list", "count", len(names))
	case "rm":
		if err := kr.Remove(rest[0]); err != nil {
			return fail(stderr, "vault", vaultUserError(err))
		}
		fmt.Fprintf(stderr, "Token removed: %s\n", rest[0])
	}
	return 0
}

// vaultUserError rewords keyring errors for the terminal.
func vaultUserError(err error) error {
	switch {
	case errors.Is(err, vault.ErrPassphrase):
		return errors.New("wrong passphrase or corrupted keyring")
	case errors.Is(err, vault.ErrNotFound):
		return fmt.Errorf("no such token (%w)", err)
	}
	return err
}

func printVaultUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tgbot vault <subcommand> [--config path]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  init        Create an empty keyring")
	fmt.Fprintln(w, "  set <name>  Store a bot token")
	fmt.Fprintln(w, "  get <name>  Print a bot token")
	fmt.Fprintln(w, "  list        List token names")
	fmt.Fprintln(w, "  rm <name>   Remove a token")
}
