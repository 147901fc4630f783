package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 1
	}

	shutdown, err := setupTracing(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("trace flush failed", "component", "cmd", "operation", "tracing", "error", err)
		}
	}()

	return dispatch(args, stdin, stdout, stderr)
}

func dispatch(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	switch args[1] {
	case "version":
		fmt.Fprintln(stdout, Version)
		return 0
	case "init":
		return runInit(args[2:], stdin, stderr)
	case "me":
		return runMe(args[2:], stdin, stdout, stderr)
	case "send":
		return runSend(args[2:], stdin, stdout, stderr)
	case "upload":
		return runUpload(args[2:], stdin, stdout, stderr)
	case "download":
		return runDownload(args[2:], stdin, stdout, stderr)
	case "commands":
		return runCommands(args[2:], stdin, stderr)
	case "webhook":
		return runWebhook(args[2:], stdin, stdout, stderr)
	case "poll":
		return runPoll(args[2:], stdin, stdout, stderr)
	case "verify-login":
		return runVerifyLogin(args[2:], stdin, stdout, stderr)
	case "vault":
		if len(args) < 3 {
			printVaultUsage(stderr)
			return 1
		}
		return runVault(args[2:], stdin, stdout, stderr)
	default:
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tgbot <command> [--config path] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  init           Write a configuration file")
	fmt.Fprintln(w, "  me             Show the bot account")
	fmt.Fprintln(w, "  send           Send a text message")
	fmt.Fprintln(w, "  upload         Upload one or more files")
	fmt.Fprintln(w, "  download       Download a file by id")
	fmt.Fprintln(w, "  commands       Set the bot command menu")
	fmt.Fprintln(w, "  webhook        Set, delete or inspect the webhook")
	fmt.Fprintln(w, "  poll           Print incoming updates")
	fmt.Fprintln(w, "  verify-login   Check a login widget redirect")
	fmt.Fprintln(w, "  vault          Manage the token keyring")
	fmt.Fprintln(w, "  version        Print version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Set OTEL_EXPORTER_OTLP_ENDPOINT to export Bot API call traces.")
}
