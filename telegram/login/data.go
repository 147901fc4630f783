package login

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Data is the payload the login widget passes to the site, either as query
// parameters on the redirect URL or as a JSON object to a callback.
type Data struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// DataSchema signs every Data field except Hash; empty optional fields are
// left out, as the widget does not send them.
var DataSchema = MustSchema(Schema[Data]{
	DefaultOmit: OmitZero,
	Fields: []Field[Data]{
		{Name: "id", Value: func(d *Data) any { return d.ID }},
		{Name: "first_name", Value: func(d *Data) any { return d.FirstName }},
		{Name: "last_name", Value: func(d *Data) any { return d.LastName }},
		{Name: "username", Value: func(d *Data) any { return d.Username }},
		{Name: "photo_url", Value: func(d *Data) any { return d.PhotoURL }},
		{Name: "auth_date", Value: func(d *Data) any { return d.AuthDate }},
	},
	Hash: func(d *Data) string { return d.Hash },
	AuthDate: func(d *Data) (time.Time, bool) {
		if d.AuthDate == 0 {
			return time.Time{}, false
		}
		return time.Unix(d.AuthDate, 0), true
	},
})

// NewDataVerifier returns a Verifier for login widget payloads.
func NewDataVerifier(token string) *Verifier[Data] {
	return NewVerifier(token, DataSchema)
}

// ParseQuery reads Data from the widget's redirect query parameters.
func ParseQuery(q url.Values) (*Data, error) {
	d := &Data{
		FirstName: q.Get("first_name"),
		LastName:  q.Get("last_name"),
		Username:  q.Get("username"),
		PhotoURL:  q.Get("photo_url"),
		Hash:      q.Get("hash"),
	}
	if d.Hash == "" {
		return nil, fmt.Errorf("%w: hash is missing", ErrInvalidArgument)
	}
	var err error
	if d.ID, err = parseInt(q, "id"); err != nil {
		return nil, err
	}
	if d.AuthDate, err = parseInt(q, "auth_date"); err != nil {
		return nil, err
	}
	return d, nil
}

func parseInt(q url.Values, name string) (int64, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidArgument, name, err)
	}
	return n, nil
}
