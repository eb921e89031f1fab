// Package models defines the vault collections, their payload types and the
// row/record shapes passed between the repositories and the services.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
)

// Collection names one of the fixed record stores.
type Collection string

const (
	Notes     Collection = "notes"
	Bookmarks Collection = "bookmarks"
	Passwords Collection = "passwords"
)

// Collections lists every collection in schema order.
var Collections = []Collection{Notes, Bookmarks, Passwords}

// ErrUnreadable is returned when a typed view is requested for a record
// whose payload could not be decrypted.
var ErrUnreadable = errors.New("record payload is unreadable")

// ParseCollection accepts the plural table name or its singular form.
func ParseCollection(s string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "notes", "note":
		return Notes, nil
	case "bookmarks", "bookmark":
		return Bookmarks, nil
	case "passwords", "password":
		return Passwords, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, s)
	}
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	switch c {
	case Notes, Bookmarks, Passwords:
		return true
	}
	return false
}

// Payload is implemented by the typed collection payloads.
type Payload interface {
	Collection() Collection
}

// Note stores free-form text.
type Note struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (Note) Collection() Collection { return Notes }

// Bookmark stores a link with an optional note.
type Bookmark struct {
	Note string `json:"note"`
	URL  string `json:"url"`
}

func (Bookmark) Collection() Collection { return Bookmarks }

// Password stores login credentials.
type Password struct {
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	TOTPSecret string   `json:"totpSecret"`
	URLs       []string `json:"urls"`
}

func (Password) Collection() Collection { return Passwords }

// Row is the on-disk shape shared by all collections. Payload holds the
// ciphertext.
type Row struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
	Payload   string `json:"payload"`
}

// Meta is the listing view of a row; it never touches the payload.
type Meta struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

// Record is a decrypted row. When Unreadable is set, Payload is nil.
type Record struct {
	ID         string
	Collection Collection
	Title      string
	UpdatedAt  time.Time
	Payload    json.RawMessage
	Unreadable bool
}

// Millis converts t to the stored updated_at representation.
func Millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis is the inverse of Millis.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// DecodePayload returns the typed payload of rec.
func DecodePayload[T any](rec *Record) (T, error) {
	var v T
	if rec == nil || rec.Unreadable {
		return v, ErrUnreadable
	}
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", rec.Collection, err)
	}
	return v, nil
}

// Unwrap decodes the payload into the type matching the record collection.
func (r *Record) Unwrap() (Payload, error) {
	switch r.Collection {
	case Notes:
		return DecodePayload[Note](r)
	case Bookmarks:
		return DecodePayload[Bookmark](r)
	case Passwords:
		return DecodePayload[Password](r)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownCollection, r.Collection)
	}
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
