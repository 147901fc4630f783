package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flubl/telegrambot/internal/config"
	"github.com/flubl/telegrambot/internal/platform"
	"github.com/flubl/telegrambot/internal/updates"
	"github.com/flubl/telegrambot/telegram"
)

// Replaceable for testing.
var (
	retryFn     = platform.Retry
	atomicWrite = platform.AtomicWrite
	osOpen      = func(name string) (io.ReadCloser, error) { return os.Open(name) }
)

const (
	sendAttempts  = 3
	sendBaseDelay = time.Second
)

func runMe(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config"}, nil)
	if err != nil || len(fs.args) != 0 {
		fmt.Fprintln(stderr, "Usage: tgbot me [--config path]")
		return 1
	}
	_, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "me", err)
	}

	me, err := client.GetMe(context.Background())
	if err != nil {
		return fail(stderr, "me", err)
	}
	fmt.Fprintf(stdout, "@%s (%s, id %d)\n", me.Username, me.FirstName, me.ID)
	return 0
}

// runSend sends the remaining arguments, or stdin when there are none, as
// one message.
func runSend(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config", "reply-to"}, []string{"markdown", "silent"})
	if err != nil || len(fs.args) < 1 {
		fmt.Fprintln(stderr, "Usage: tgbot send [--config path] [--markdown] [--silent] [--reply-to id] <chat> [text...]")
		return 1
	}
	scanner := bufio.NewScanner(stdin)
	_, client, err := openClient(fs.value("config", config.DefaultPath), scanner, stderr)
	if err != nil {
		return fail(stderr, "send", err)
	}

	text := strings.Join(fs.args[1:], " ")
	if text == "" {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		text = strings.Join(lines, "\n")
	}
	if strings.TrimSpace(text) == "" {
		return fail(stderr, "send", errors.New("message text is empty"))
	}

	req := telegram.SendMessage{
		ChatID:              telegram.ParseChatID(fs.args[0]),
		Text:                text,
		DisableNotification: fs.set["silent"],
	}
	if fs.set["markdown"] {
		req.Text = telegram.MarkdownToHTML(text)
		req.ParseMode = telegram.ParseModeHTML
	}
	if v := fs.value("reply-to", ""); v != "" {
		if _, err := fmt.Sscan(v, &req.ReplyToMessageID); err != nil {
			return fail(stderr, "send", fmt.Errorf("invalid --reply-to %q", v))
		}
	}

	ctx := context.Background()
	var msg *telegram.Message
	err = retryFn(ctx, sendAttempts, sendBaseDelay, func() error {
		var sendErr error
		msg, sendErr = client.SendMessage(ctx, req)
		return sendErr
	})
	if err != nil {
		return fail(stderr, "send", err)
	}
	slog.Info("message sent", "component", "cmd", "operation", "send", "chat_id", msg.Chat.ID, "message_id", msg.MessageID)
	fmt.Fprintln(stdout, msg.MessageID)
	return 0
}

// runUpload sends one file as a photo or document, or several as an album.
func runUpload(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config", "caption"}, []string{"photo"})
	if err != nil || len(fs.args) < 2 || len(fs.args) > 11 {
		fmt.Fprintln(stderr, "Usage: tgbot upload [--config path] [--photo] [--caption text] <chat> <file>...")
		return 1
	}
	_, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "upload", err)
	}

	chat := telegram.ParseChatID(fs.args[0])
	caption := fs.value("caption", "")
	paths := fs.args[1:]

	files := make([]*telegram.InputFile, 0, len(paths))
	for _, p := range paths {
		f, err := osOpen(p)
		if err != nil {
			return fail(stderr, "upload", err)
		}
		defer f.Close()
		files = append(files, telegram.FileReader(filepath.Base(p), f))
	}

	ctx := context.Background()
	var sent []telegram.Message
	switch {
	case len(files) == 1 && fs.set["photo"]:
		var m *telegram.Message
		if m, err = client.SendPhoto(ctx, telegram.SendPhoto{ChatID: chat, Photo: files[0], Caption: caption}); err == nil {
			sent = append(sent, *m)
		}
	case len(files) == 1:
		var m *telegram.Message
		if m, err = client.SendDocument(ctx, telegram.SendDocument{ChatID: chat, Document: files[0], Caption: caption}); err == nil {
			sent = append(sent, *m)
		}
	default:
		media := make([]telegram.InputMedia, len(files))
		for i, f := range files {
			// Only the first item's caption is shown for an album.
			c := ""
			if i == 0 {
				c = caption
			}
			if fs.set["photo"] {
				media[i] = telegram.InputMediaPhoto{Media: f, Caption: c}
			} else {
				media[i] = telegram.InputMediaDocument{Media: f, Caption: c}
			}
		}
		sent, err = client.SendMediaGroup(ctx, telegram.SendMediaGroup{ChatID: chat, Media: media})
	}
	if err != nil {
		return fail(stderr, "upload", err)
	}
	for _, m := range sent {
		fmt.Fprintln(stdout, m.MessageID)
	}
	slog.Info("files uploaded", "component", "cmd", "operation", "upload", "count", len(files))
	return 0
}

// runDownload saves a file by id into a directory, under the server's name.
func runDownload(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config"}, nil)
	if err != nil || len(fs.args) < 1 || len(fs.args) > 2 {
		fmt.Fprintln(stderr, "Usage: tgbot download [--config path] <file_id> [dir]")
		return 1
	}
	_, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "download", err)
	}
	dir := "."
	if len(fs.args) == 2 {
		dir = fs.args[1]
	}

	var buf bytes.Buffer
	name, err := client.Download(context.Background(), fs.args[0], &buf)
	if err != nil {
		return fail(stderr, "download", err)
	}
	dest := filepath.Join(dir, name)
	if err := atomicWrite(dest, buf.Bytes(), 0o644); err != nil {
		return fail(stderr, "download", err)
	}
	fmt.Fprintln(stdout, dest)
	return 0
}

// runCommands replaces the command menu with name=description pairs.
func runCommands(args []string, stdin io.Reader, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config", "chat"}, nil)
	if err != nil || len(fs.args) == 0 {
		fmt.Fprintln(stderr, "Usage: tgbot commands [--config path] [--chat id] <name=description>...")
		return 1
	}
	commands := make([]telegram.BotCommand, 0, len(fs.args))
	for _, a := range fs.args {
		name, desc, ok := strings.Cut(a, "=")
		if !ok || name == "" || desc == "" {
			return fail(stderr, "commands", fmt.Errorf("invalid command %q, want name=description", a))
		}
		commands = append(commands, telegram.BotCommand{Command: strings.TrimPrefix(name, "/"), Description: desc})
	}
	var scope telegram.BotCommandScope = telegram.BotCommandScopeDefault{}
	if chat := fs.value("chat", ""); chat != "" {
		scope = telegram.BotCommandScopeChat{ChatID: telegram.ParseChatID(chat)}
	}

	_, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "commands", err)
	}
	if err := client.SetMyCommands(context.Background(), commands, scope); err != nil {
		return fail(stderr, "commands", err)
	}
	fmt.Fprintf(stderr, "Commands set: %d\n", len(commands))
	return 0
}

func runWebhook(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config", "secret"}, []string{"drop-pending"})
	if err != nil || len(fs.args) == 0 {
		printWebhookUsage(stderr)
		return 1
	}
	sub := fs.args[0]
	if (sub == "set") != (len(fs.args) == 2) || len(fs.args) > 2 {
		printWebhookUsage(stderr)
		return 1
	}
	_, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "webhook", err)
	}

	ctx := context.Background()
	switch sub {
	case "set":
		u, err := url.Parse(fs.args[1])
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fail(stderr, "webhook", fmt.Errorf("webhook URL must be https: %q", fs.args[1]))
		}
		err = client.SetWebhook(ctx, telegram.SetWebhook{
			URL:                u,
			SecretToken:        fs.value("secret", ""),
			AllowedUpdates:     updates.DefaultAllowedUpdates,
			DropPendingUpdates: fs.set["drop-pending"],
		})
		if err != nil {
			return fail(stderr, "webhook", err)
		}
		fmt.Fprintf(stderr, "Webhook set: %s\n", u)
	case "delete":
		if err := client.DeleteWebhook(ctx, fs.set["drop-pending"]); err != nil {
			return fail(stderr, "webhook", err)
		}
		fmt.Fprintln(stderr, "Webhook deleted")
	case "info":
		info, err := client.GetWebhookInfo(ctx)
		if err != nil {
			return fail(stderr, "webhook", err)
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			return fail(stderr, "webhook", err)
		}
	default:
		printWebhookUsage(stderr)
		return 1
	}
	return 0
}

func printWebhookUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tgbot webhook <subcommand> [--config path]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  set <https-url> [--secret s] [--drop-pending]  Register a webhook")
	fmt.Fprintln(w, "  delete [--drop-pending]                        Remove the webhook")
	fmt.Fprintln(w, "  info                                           Show webhook status")
}

// runPoll prints each accepted update as a JSON line until interrupted.
// With --echo, text messages are sent back to their chat.
func runPoll(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, err := parseFlags(args, []string{"config"}, []string{"echo"})
	if err != nil || len(fs.args) != 0 {
		fmt.Fprintln(stderr, "Usage: tgbot poll [--config path] [--echo]")
		return 1
	}
	cfg, client, err := openClient(fs.value("config", config.DefaultPath), bufio.NewScanner(stdin), stderr)
	if err != nil {
		return fail(stderr, "poll", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	poller := updates.NewPoller(client, cfg.Poll.AllowedIDs, cfg.Poll.Timeout)
	ch := make(chan telegram.Update)
	go func() {
		poller.Run(ctx, ch)
		close(ch)
	}()

	enc := json.NewEncoder(stdout)
	for u := range ch {
		if err := enc.Encode(u); err != nil {
			slog.Error("failed to write update", "component", "cmd", "operation", "poll", "error", err)
		}
		if fs.set["echo"] && u.Message != nil && u.Message.Text != "" {
			_, err := client.SendMessage(ctx, telegram.SendMessage{
				ChatID:           telegram.ChatIDInt(u.Message.Chat.ID),
				Text:             u.Message.Text,
				ReplyToMessageID: u.Message.MessageID,
			})
			if err != nil {
				slog.Error("echo failed", "component", "cmd", "operation", "poll", "update_id", u.UpdateID, "error", err)
			}
		}
	}
	return 0
}
