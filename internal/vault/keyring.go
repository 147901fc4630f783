// Package vault keeps bot tokens in a passphrase-protected keyring file.
//
// Each token is sealed with AES-256-GCM under a key derived from the
// passphrase with PBKDF2-SHA256. The file also carries a sealed check value
// so a wrong passphrase is reported on Open rather than on first use.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/flubl/telegrambot/internal/platform"
	"github.com/flubl/telegrambot/telegram"
)

// Sentinel errors.
var (
	ErrNotFound   = errors.New("vault: token not found")
	ErrPassphrase = errors.New("vault: wrong passphrase")
	ErrExists     = errors.New("vault: keyring already exists")
)

// keyringFilePerm is owner read/write only.
const keyringFilePerm = 0o600

// formatVersion is written to new keyrings and required on Open.
const formatVersion = 1

const checkName, checkValue = "\x00check", "tgbot"

// Replaceable for testing.
var (
	atomicWrite = platform.AtomicWrite
	iterations  = DefaultIterations
)

// keyringFile is the on-disk JSON form. Binary values are base64.
type keyringFile struct {
	Version    int               `json:"version"`
	Iterations int               `json:"iterations"`
	Salt       string            `json:"salt"`
	Check      string            `json:"check"`
	Tokens     map[string]string `json:"tokens"`
}

// Keyring holds sealed bot tokens by name. Methods are safe for concurrent use.
type Keyring struct {
	mu         sync.Mutex
	path       string
	key        []byte
	salt       []byte
	iterations int
	check      []byte
	tokens     map[string][]byte
}

// Create makes a new, empty keyring at path. It fails with ErrExists if a
// file is already there.
func Create(passphrase, path string) (*Keyring, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault: create: empty passphrase")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	k := &Keyring{
		path:       path,
		key:        deriveKey(passphrase, salt, iterations),
		salt:       salt,
		iterations: iterations,
		tokens:     make(map[string][]byte),
	}
	if k.check, err = seal(k.key, checkName, []byte(checkValue)); err != nil {
		return nil, fmt.Errorf("vault: create: %w", err)
	}
	if err := k.save(); err != nil {
		return nil, fmt.Errorf("vault: create: %w", err)
	}
	slog.Info("keyring created", "component", "vault", "operation", "create", "path", path)
	return k, nil
}

// Open loads the keyring at path and checks the passphrase against it.
func Open(passphrase, path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vault: open: %w", err)
	}
	var f keyringFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("vault: open: unmarshal: %w", err)
	}
	if f.Version != formatVersion {
		return nil, fmt.Errorf("vault: open: unsupported version %d", f.Version)
	}
	if f.Iterations <= 0 {
		return nil, fmt.Errorf("vault: open: invalid iteration count %d", f.Iterations)
	}

	k := &Keyring{
		path:       path,
		iterations: f.Iterations,
		tokens:     make(map[string][]byte, len(f.Tokens)),
	}
	if k.salt, err = decode(f.Salt); err != nil {
		return nil, fmt.Errorf("vault: open: salt: %w", err)
	}
	if k.check, err = decode(f.Check); err != nil {
		return nil, fmt.Errorf("vault: open: check: %w", err)
	}
	for name, enc := range f.Tokens {
		ct, err := decode(enc)
		if err != nil {
			return nil, fmt.Errorf("vault: open: token %q: %w", name, err)
		}
		k.tokens[name] = ct
	}

	k.key = deriveKey(passphrase, k.salt, k.iterations)
	if got, err := unseal(k.key, checkName, k.check); err != nil || string(got) != checkValue {
		return nil, ErrPassphrase
	}

	slog.Info("keyring opened", "component", "vault", "operation", "open", "path", path, "tokens", len(k.tokens))
	return k, nil
}

// Token returns the token stored under name.
func (k *Keyring) Token(name string) (string, error) {
	k.mu.Lock()
	ct, ok := k.tokens[name]
	k.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	plain, err := unseal(k.key, name, ct)
	if err != nil {
		return "", fmt.Errorf("vault: token %q: %w", name, err)
	}
	return string(plain), nil
}

// Store seals token under name and saves the keyring. The token must look
// like a bot token.
func (k *Keyring) Store(name, token string) error {
	if name == "" || name == checkName {
		return fmt.Errorf("vault: store: invalid name %q", name)
	}
	if err := telegram.ValidateToken(token); err != nil {
		return fmt.Errorf("vault: store: %w", err)
	}
	ct, err := seal(k.key, name, []byte(token))
	if err != nil {
		return fmt.Errorf("vault: store: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	prev, existed := k.tokens[name]
	k.tokens[name] = ct
	if err := k.save(); err != nil {
		if existed {
			k.tokens[name] = prev
		} else {
			delete(k.tokens, name)
		}
		return fmt.Errorf("vault: store: %w", err)
	}
	slog.Info("token stored", "component", "vault", "operation", "store", "name", name)
	return nil
}

// Remove deletes the token stored under name and saves the keyring.
func (k *Keyring) Remove(name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	ct, ok := k.tokens[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(k.tokens, name)
	if err := k.save(); err != nil {
		k.tokens[name] = ct
		return fmt.Errorf("vault: remove: %w", err)
	}
	slog.Info("token removed", "component", "vault", "operation", "remove", "name", name)
	return nil
}

// Names returns the stored token names, sorted.
func (k *Keyring) Names() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, 0, len(k.tokens))
	for name := range k.tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// save writes the keyring; callers hold mu or own k exclusively.
func (k *Keyring) save() error {
	f := keyringFile{
		Version:    formatVersion,
		Iterations: k.iterations,
		Salt:       base64.StdEncoding.EncodeToString(k.salt),
		Check:      base64.StdEncoding.EncodeToString(k.check),
		Tokens:     make(map[string]string, len(k.tokens)),
	}
	for name, ct := range k.tokens {
		f.Tokens[name] = base64.StdEncoding.EncodeToString(ct)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return atomicWrite(k.path, append(data, '\n'), keyringFilePerm)
}

func decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
