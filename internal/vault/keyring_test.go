package vault

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flubl/telegrambot/telegram"
)

// fastKDF lowers the work factor so tests run quickly.
func fastKDF(t *testing.T) {
	t.Helper()
	orig := iterations
	iterations = 1000
	t.Cleanup(func() { iterations = orig })
}

func newKeyring(t *testing.T) (*Keyring, string) {
	t.Helper()
	fastKDF(t)
	path := filepath.Join(t.TempDir(), "tgbot.vault")
	k, err := Create("passphrase", path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return k, path
}

func TestCreate(t *testing.T) {
	_, path := newKeyring(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var f keyringFile
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Version != formatVersion || f.Iterations != 1000 || f.Salt == "" || f.Check == "" {
		t.Errorf("file = %+v", f)
	}
	if len(f.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", f.Tokens)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != keyringFilePerm {
		t.Errorf("perm = %o, want %o", info.Mode().Perm(), keyringFilePerm)
	}
}

func TestCreate_Errors(t *testing.T) {
	_, path := newKeyring(t)
	if _, err := Create("passphrase", path); !errors.Is(err, ErrExists) {
		t.Errorf("Create(existing) = %v, want ErrExists", err)
	}
	if _, err := Create("", filepath.Join(t.TempDir(), "v")); err == nil {
		t.Error("Create(empty passphrase) expected error")
	}

	orig := atomicWrite
	atomicWrite = func(string, []byte, os.FileMode) error { return errors.New("disk full") }
	t.Cleanup(func() { atomicWrite = orig })
	if _, err := Create("passphrase", filepath.Join(t.TempDir(), "v")); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Create() = %v, want write error", err)
	}
}

func TestStoreTokenReopen(t *testing.T) {
	k, path := newKeyring(t)

	if err := k.Store("default", "123:abc"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := k.Store("staging", "456:def"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "123:abc") {
		t.Error("token stored in clear")
	}

	reopened, err := Open("passphrase", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := reopened.Token("default")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "123:abc" {
		t.Errorf("Token = %q, want 123:abc", got)
	}
	if names := reopened.Names(); len(names) != 2 || names[0] != "default" || names[1] != "staging" {
		t.Errorf("Names = %v", names)
	}
}

func TestStore_Overwrite(t *testing.T) {
	k, _ := newKeyring(t)
	k.Store("default", "1:a")
	if err := k.Store("default", "2:b"); err != nil {
		t.Fatal(err)
	}
	if got, _ := k.Token("default"); got != "2:b" {
		t.Errorf("Token = %q, want 2:b", got)
	}
}

func TestStore_Invalid(t *testing.T) {
	k, _ := newKeyring(t)

	if err := k.Store("default", "not-a-token"); !errors.Is(err, telegram.ErrConfiguration) {
		t.Errorf("Store(bad token) = %v, want ErrConfiguration", err)
	}
	if err := k.Store("", "1:a"); err == nil {
		t.Error("Store(empty name) expected error")
	}
	if err := k.Store(checkName, "1:a"); err == nil {
		t.Error("Store(reserved name) expected error")
	}
	if len(k.Names()) != 0 {
		t.Errorf("Names = %v, want none", k.Names())
	}
}

func TestStore_SaveErrorRollsBack(t *testing.T) {
	k, _ := newKeyring(t)
	k.Store("default", "1:a")

	orig := atomicWrite
	atomicWrite = func(string, []byte, os.FileMode) error { return errors.New("disk full") }
	t.Cleanup(func() { atomicWrite = orig })

	if err := k.Store("default", "2:b"); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := k.Token("default"); got != "1:a" {
		t.Errorf("Token after failed overwrite = %q, want 1:a", got)
	}
	if err := k.Store("new", "3:c"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := k.Token("new"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Token(new) = %v, want ErrNotFound", err)
	}
	if err := k.Remove("default"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := k.Token("default"); err != nil {
		t.Errorf("Token after failed remove: %v", err)
	}
}

func TestRemove(t *testing.T) {
	k, path := newKeyring(t)
	k.Store("default", "1:a")

	if err := k.Remove("default"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := k.Remove("default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(again) = %v, want ErrNotFound", err)
	}

	reopened, err := Open("passphrase", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Token("default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Token after remove = %v, want ErrNotFound", err)
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	_, path := newKeyring(t)
	if _, err := Open("wrong", path); !errors.Is(err, ErrPassphrase) {
		t.Errorf("Open(wrong) = %v, want ErrPassphrase", err)
	}
}

func TestOpen_SwappedEntries(t *testing.T) {
	k, path := newKeyring(t)
	k.Store("a", "1:a")
	k.Store("b", "2:b")

	data, _ := os.ReadFile(path)
	var f keyringFile
	json.Unmarshal(data, &f)
	f.Tokens["a"], f.Tokens["b"] = f.Tokens["b"], f.Tokens["a"]
	data, _ = json.Marshal(f)
	os.WriteFile(path, data, 0o600)

	reopened, err := Open("passphrase", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Token("a"); err == nil {
		t.Error("swapped entry should not decrypt")
	}
}

func TestOpen_BadFiles(t *testing.T) {
	_, good := newKeyring(t)
	goodData, _ := os.ReadFile(good)
	var base keyringFile
	json.Unmarshal(goodData, &base)

	tests := []struct {
		name   string
		mutate func(*keyringFile)
		raw    string
	}{
		{name: "not json", raw: "{"},
		{name: "wrong version", mutate: func(f *keyringFile) { f.Version = 9 }},
		{name: "no iterations", mutate: func(f *keyringFile) { f.Iterations = 0 }},
		{name: "bad salt", mutate: func(f *keyringFile) { f.Salt = "!!" }},
		{name: "bad check", mutate: func(f *keyringFile) { f.Check = "!!" }},
		{name: "bad token", mutate: func(f *keyringFile) { f.Tokens = map[string]string{"x": "!!"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.raw)
			if tt.mutate != nil {
				f := base
				f.Tokens = map[string]string{}
				tt.mutate(&f)
				data, _ = json.Marshal(f)
			}
			path := filepath.Join(t.TempDir(), "v")
			os.WriteFile(path, data, 0o600)
			if _, err := Open("passphrase", path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Open("passphrase", filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) = %v, want ErrNotExist", err)
	}
}

func TestKeyring_Concurrent(t *testing.T) {
	k, _ := newKeyring(t)
	k.Store("default", "1:a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := k.Token("default"); err != nil {
				t.Errorf("Token: %v", err)
			}
			k.Names()
		}()
	}
	wg.Wait()
}
