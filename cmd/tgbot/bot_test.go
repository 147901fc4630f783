package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "123:abc"

// apiServer serves Bot API calls from handlers keyed by method name and
// points the TGBOT_* environment at it. It returns a config path that does
// not exist, so only defaults and the environment apply.
func apiServer(t *testing.T, handlers map[string]http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		h, ok := handlers[method]
		if !ok {
			t.Errorf("unexpected call %s", r.URL.Path)
			http.Error(w, `{"ok":false,"error_code":404,"description":"Not Found"}`, http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("TGBOT_TOKEN", testToken)
	t.Setenv("TGBOT_ENDPOINT", srv.URL)
	t.Setenv("TGBOT_LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "missing.toml")
}

func okResult(result string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"result":`+result+`}`)
	}
}

// jsonBody decodes the request's JSON body into a map.
func jsonBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return m
}

const sentMessage = `{"message_id":77,"chat":{"id":42,"type":"private"},"date":1}`

func TestRunMe(t *testing.T) {
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"getMe": okResult(`{"id":1,"is_bot":true,"first_name":"Bot","username":"the_bot"}`),
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"tgbot", "me", "--config", cfg}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d; stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "@the_bot") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunMe_missingToken(t *testing.T) {
	t.Setenv("TGBOT_TOKEN", "")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr bytes.Buffer
	code := run([]string{"tgbot", "me", "--config", filepath.Join(t.TempDir(), "none.toml")}, strings.NewReader(""), io.Discard, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "token") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunSend(t *testing.T) {
	var got map[string]any
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"sendMessage": func(w http.ResponseWriter, r *http.Request) {
			got = jsonBody(t, r)
			okResult(sentMessage)(w, r)
		},
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"tgbot", "send", "--config", cfg, "--markdown", "--silent", "42", "**hi**", "there"},
		strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d; stderr: %s", code, stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != "77" {
		t.Errorf("stdout = %q, want 77", stdout.String())
	}
	if got["text"] != "<b>hi</b> there" || got["parse_mode"] != "HTML" {
		t.Errorf("request = %v", got)
	}
	if got["chat_id"] != float64(42) || got["disable_notification"] != true {
		t.Errorf("request = %v", got)
	}
}

func TestRunSend_stdin(t *testing.T) {
	var got map[string]any
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"sendMessage": func(w http.ResponseWriter, r *http.Request) {
			got = jsonBody(t, r)
			okResult(sentMessage)(w, r)
		},
	})

	code := run([]string{"tgbot", "send", "--config", cfg, "@chan"}, strings.NewReader("line one\nline two\n"), io.Discard, io.Discard)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got["text"] != "line one\nline two" || got["chat_id"] != "@chan" {
		t.Errorf("request = %v", got)
	}
}

func TestRunSend_apiError(t *testing.T) {
	calls := 0
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"sendMessage": func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
		},
	})

	var stderr bytes.Buffer
	code := run([]string{"tgbot", "send", "--config", cfg, "1", "hi"}, strings.NewReader(""), io.Discard, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "chat not found") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (client errors are not retried)", calls)
	}
}

func TestRunSend_emptyText(t *testing.T) {
	cfg := apiServer(t, nil)
	code := run([]string{"tgbot", "send", "--config", cfg, "1"}, strings.NewReader("  \n"), io.Discard, io.Discard)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("AAA"), 0o600)
	os.WriteFile(b, []byte("BBB"), 0o600)

	t.Run("single document", func(t *testing.T) {
		cfg := apiServer(t, map[string]http.HandlerFunc{
			"sendDocument": func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
				}
				if r.FormValue("caption") != "cap" || r.FormValue("chat_id") != "42" {
					t.Errorf("form = %v", r.MultipartForm.Value)
				}
				okResult(sentMessage)(w, r)
			},
		})
		var stdout, stderr bytes.Buffer
		code := run([]string{"tgbot", "upload", "--config", cfg, "--caption", "cap", "42", a}, strings.NewReader(""), &stdout, &stderr)
		if code != 0 {
			t.Fatalf("exit code = %d; stderr: %s", code, stderr.String())
		}
		if strings.TrimSpace(stdout.String()) != "77" {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("album", func(t *testing.T) {
		album := fmt.Sprintf("[%s,%s]", sentMessage, sentMessage)
		cfg := apiServer(t, map[string]http.HandlerFunc{
			"sendMediaGroup": func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
				}
				if n := len(r.MultipartForm.File); n != 2 {
					t.Errorf("file parts = %d, want 2", n)
				}
				okResult(album)(w, r)
			},
		})
		var stdout bytes.Buffer
		code := run([]string{"tgbot", "upload", "--config", cfg, "42", a, b}, strings.NewReader(""), &stdout, io.Discard)
		if code != 0 {
			t.Fatalf("exit code = %d", code)
		}
		if strings.Count(stdout.String(), "77") != 2 {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := apiServer(t, nil)
		code := run([]string{"tgbot", "upload", "--config", cfg, "42", filepath.Join(dir, "nope")}, strings.NewReader(""), io.Discard, io.Discard)
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
	})
}

func TestRunDownload(t *testing.T) {
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"getFile":    okResult(`{"file_id":"F","file_path":"documents/file_1.txt"}`),
		"file_1.txt": func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "content") },
	})
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run([]string{"tgbot", "download", "--config", cfg, "F", dir}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d; stderr: %s", code, stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "file_1.txt"))
	if err != nil || string(data) != "content" {
		t.Errorf("file = %q, %v", data, err)
	}
}

func TestRunCommands(t *testing.T) {
	var got map[string]any
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"setMyCommands": func(w http.ResponseWriter, r *http.Request) {
			got = jsonBody(t, r)
			okResult(`true`)(w, r)
		},
	})

	code := run([]string{"tgbot", "commands", "--config", cfg, "--chat", "-5", "/help=Show help", "start=Begin"}, strings.NewReader(""), io.Discard, io.Discard)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	cmds, _ := got["commands"].([]any)
	if len(cmds) != 2 || cmds[0].(map[string]any)["command"] != "help" {
		t.Errorf("commands = %v", got["commands"])
	}
	if scope, _ := got["scope"].(map[string]any); scope["type"] != "chat" {
		t.Errorf("scope = %v", got["scope"])
	}

	if code := run([]string{"tgbot", "commands", "--config", cfg, "broken"}, strings.NewReader(""), io.Discard, io.Discard); code != 1 {
		t.Errorf("exit code = %d for malformed pair, want 1", code)
	}
}

func TestRunWebhook(t *testing.T) {
	var set, del map[string]any
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"setWebhook": func(w http.ResponseWriter, r *http.Request) {
			set = jsonBody(t, r)
			okResult(`true`)(w, r)
		},
		"deleteWebhook": func(w http.ResponseWriter, r *http.Request) {
			del = jsonBody(t, r)
			okResult(`true`)(w, r)
		},
		"getWebhookInfo": okResult(`{"url":"https://example.com/hook","has_custom_certificate":false,"pending_update_count":3}`),
	})

	if code := run([]string{"tgbot", "webhook", "--config", cfg, "set", "https://example.com/hook", "--secret", "s3"}, strings.NewReader(""), io.Discard, io.Discard); code != 0 {
		t.Fatalf("set: exit code = %d", code)
	}
	if set["url"] != "https://example.com/hook" || set["secret_token"] != "s3" {
		t.Errorf("setWebhook request = %v", set)
	}

	if code := run([]string{"tgbot", "webhook", "--config", cfg, "delete", "--drop-pending"}, strings.NewReader(""), io.Discard, io.Discard); code != 0 {
		t.Fatalf("delete: exit code = %d", code)
	}
	if del["drop_pending_updates"] != true {
		t.Errorf("deleteWebhook request = %v", del)
	}

	var stdout bytes.Buffer
	if code := run([]string{"tgbot", "webhook", "--config", cfg, "info"}, strings.NewReader(""), &stdout, io.Discard); code != 0 {
		t.Fatalf("info: exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), `"pending_update_count": 3`) {
		t.Errorf("info output = %s", stdout.String())
	}

	if code := run([]string{"tgbot", "webhook", "--config", cfg, "set", "http://example.com"}, strings.NewReader(""), io.Discard, io.Discard); code != 1 {
		t.Errorf("plain http URL: exit code = %d, want 1", code)
	}
}

func TestRunPoll(t *testing.T) {
	var mu sync.Mutex
	polls, echoes := 0, 0
	cfg := apiServer(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			polls++
			first := polls == 1
			mu.Unlock()
			if first {
				okResult(`[{"update_id":9,"message":{"message_id":5,"from":{"id":1,"is_bot":false,"first_name":"U"},"chat":{"id":1,"type":"private"},"date":1,"text":"ping"}}]`)(w, r)
				return
			}
			<-r.Context().Done()
		},
		"sendMessage": func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			echoes++
			mu.Unlock()
			if body := jsonBody(t, r); body["text"] != "ping" || body["reply_to_message_id"] != float64(5) {
				t.Errorf("echo request = %v", body)
			}
			okResult(sentMessage)(w, r)
		},
	})

	origSignal := signalContext
	signalContext = func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 500*time.Millisecond)
	}
	t.Cleanup(func() { signalContext = origSignal })

	var stdout, stderr bytes.Buffer
	code := run([]string{"tgbot", "poll", "--config", cfg, "--echo"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d; stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"update_id":9`) {
		t.Errorf("stdout = %q", stdout.String())
	}
	mu.Lock()
	defer mu.Unlock()
	if echoes != 1 {
		t.Errorf("echoes = %d, want 1", echoes)
	}
}
