package tgroute

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Envelope is a read-only view over a raw update body. It answers routing
// questions without decoding the whole payload.
type Envelope struct {
	raw      []byte
	category Category
}

// Inspect validates raw and resolves its category: the first top-level key
// other than "update_id". It returns ErrUnknownCategory (wrapped) when that
// key is not a known category.
func Inspect(raw []byte) (Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return Envelope{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Envelope{}, ErrInvalidJSON
	}

	var key string
	root.ForEach(func(k, _ gjson.Result) bool {
		if k.String() == "update_id" {
			return true
		}
		key = k.String()
		return false
	})
	if key == "" {
		return Envelope{}, ErrUnknownCategory
	}

	c, ok := ParseCategory(key)
	if !ok || c == Command || c == ForceReply {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
	return Envelope{raw: raw, category: c}, nil
}

// Category returns the resolved category.
func (e Envelope) Category() Category { return e.category }

// UpdateID returns the update identifier, or 0 when absent.
func (e Envelope) UpdateID() int64 {
	return gjson.GetBytes(e.raw, "update_id").Int()
}

// SenderID returns the id of the user who caused the update, when the
// payload has one.
func (e Envelope) SenderID() (int64, bool) {
	path := e.category.String() + ".from.id"
	if e.category == PollAnswer {
		path = "poll_answer.user.id"
	}
	r := gjson.GetBytes(e.raw, path)
	if !r.Exists() {
		return 0, false
	}
	return r.Int(), true
}

// Has reports whether a gjson path exists, e.g. "message.photo".
func (e Envelope) Has(path string) bool {
	return gjson.GetBytes(e.raw, path).Exists()
}

// GetString returns the string value at path, or false if not found
// or not a string.
func (e Envelope) GetString(path string) (string, bool) {
	r := gjson.GetBytes(e.raw, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// Raw returns the original bytes.
func (e Envelope) Raw() []byte { return e.raw }
