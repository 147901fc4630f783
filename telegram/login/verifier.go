// Package login verifies data signed by the Telegram Login Widget.
//
// The widget hands the site a set of fields plus a hash. The hash is the
// hex HMAC-SHA-256 of the fields' data-check string, keyed with the SHA-256
// digest of the bot token:
//
//	key   = SHA256(bot_token)
//	check = "auth_date=...\nfirst_name=...\nid=..."   (sorted, hash excluded)
//	hash  = hex(HMAC_SHA256(key, check))
package login

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidArgument = errors.New("login: invalid argument")
	ErrAuthentication  = errors.New("login: authentication failed")
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Verifier checks login payloads of type T against one bot token. It holds
// no mutable state and is safe for concurrent use.
type Verifier[T any] struct {
	key    []byte
	schema *Schema[T]
}

// NewVerifier returns a Verifier for payloads described by schema.
func NewVerifier[T any](token string, schema *Schema[T]) *Verifier[T] {
	key := sha256.Sum256([]byte(token))
	return &Verifier[T]{key: key[:], schema: schema}
}

// Hash returns the lowercase hex hash p should carry.
func (v *Verifier[T]) Hash(p *T) (string, error) {
	check, err := v.schema.DataCheckString(p)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(check))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify returns nil if p's hash matches and, when maxAge is positive, its
// authentication date is present and no older than maxAge.
func (v *Verifier[T]) Verify(p *T, maxAge time.Duration) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidArgument)
	}
	want, err := v.Hash(p)
	if err != nil {
		return err
	}
	got := strings.ToLower(v.schema.Hash(p))
	if !hmac.Equal([]byte(want), []byte(got)) {
		return fmt.Errorf("%w: hash mismatch", ErrAuthentication)
	}

	if maxAge <= 0 {
		return nil
	}
	if v.schema.AuthDate == nil {
		return fmt.Errorf("%w: payload has no auth date", ErrAuthentication)
	}
	date, ok := v.schema.AuthDate(p)
	if !ok {
		return fmt.Errorf("%w: auth date missing", ErrAuthentication)
	}
	if age := timeNow().Sub(date); age > maxAge {
		return fmt.Errorf("%w: auth date is %s old, limit %s", ErrAuthentication, age.Truncate(time.Second), maxAge)
	}
	return nil
}

// Validate reports whether Verify succeeds.
func (v *Verifier[T]) Validate(p *T, maxAge time.Duration) bool {
	return v.Verify(p, maxAge) == nil
}
