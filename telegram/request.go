package telegram

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"
)

// Request is a Bot API method call. Method names the endpoint; Params lists
// the wire parameters in the order they are sent.
type Request interface {
	Method() string
	Params() Params
}

// FileRequest is implemented by requests that carry files nested inside
// structured parameters (media groups, sticker sets). Files given directly as
// an *InputFile parameter are found without it.
type FileRequest interface {
	Request
	Files() []*InputFile
}

// Param is a single wire parameter.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered parameter list. The Add helpers skip empty values, so
// every entry carries something worth sending.
type Params []Param

// Add appends v unless it is nil, including a nil pointer, slice, map or
// interface held in v.
func (p *Params) Add(name string, v any) {
	if isNil(v) {
		return
	}
	*p = append(*p, Param{Name: name, Value: v})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// AddString appends s if it is not empty.
func (p *Params) AddString(name, s string) {
	if s != "" {
		*p = append(*p, Param{Name: name, Value: s})
	}
}

// AddInt appends n if it is not zero.
func (p *Params) AddInt(name string, n int64) {
	if n != 0 {
		*p = append(*p, Param{Name: name, Value: n})
	}
}

// AddBool appends b if it is true.
func (p *Params) AddBool(name string, b bool) {
	if b {
		*p = append(*p, Param{Name: name, Value: b})
	}
}

// AddFile appends f if it is not nil.
func (p *Params) AddFile(name string, f *InputFile) {
	if f != nil {
		*p = append(*p, Param{Name: name, Value: f})
	}
}

// AddURL appends u if it is not nil.
func (p *Params) AddURL(name string, u *url.URL) {
	if u != nil {
		*p = append(*p, Param{Name: name, Value: u})
	}
}

// AddChat appends a chat reference if it is set.
func (p *Params) AddChat(name string, c ChatID) {
	if !c.IsZero() {
		*p = append(*p, Param{Name: name, Value: c})
	}
}

// Lookup returns the value of the named parameter.
func (p Params) Lookup(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// ChatID identifies a chat either by numeric id or by "@username" for public
// channels and supergroups.
type ChatID struct {
	ID       int64
	Username string
}

// ChatIDInt returns a ChatID for a numeric chat id.
func ChatIDInt(id int64) ChatID {
	return ChatID{ID: id}
}

// ChatUsername returns a ChatID for a public "@username".
func ChatUsername(name string) ChatID {
	return ChatID{Username: name}
}

// ParseChatID accepts either a decimal id or an @username.
func ParseChatID(s string) ChatID {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ChatID{ID: id}
	}
	return ChatID{Username: s}
}

// IsZero reports whether neither id nor username is set.
func (c ChatID) IsZero() bool {
	return c.ID == 0 && c.Username == ""
}

func (c ChatID) String() string {
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// MarshalJSON encodes numeric ids as numbers and usernames as strings.
func (c ChatID) MarshalJSON() ([]byte, error) {
	if c.Username != "" {
		return json.Marshal(c.Username)
	}
	return strconv.AppendInt(nil, c.ID, 10), nil
}

// MarshalText is used for multipart form fields.
func (c ChatID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
