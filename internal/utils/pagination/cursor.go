// Package pagination implements keyset page tokens shared by every list
// endpoint. A token names the last row of the previous page by its
// (created_at, id) pair; callers treat it as opaque.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid pagination token")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor is a position in a list ordered by created_at DESC, id DESC.
type Cursor struct {
	ID      uint64 `json:"i"`
	Created int64  `json:"t"` // unix micros
}

func (c Cursor) IsZero() bool { return c.ID == 0 && c.Created == 0 }

func (c Cursor) Time() time.Time { return time.UnixMicro(c.Created).UTC() }

// At builds the cursor for a row.
func At(id uint64, createdAt time.Time) Cursor {
	return Cursor{ID: id, Created: createdAt.UnixMicro()}
}

// Encode renders c as an unpadded URL-safe token.
func Encode(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a token produced by Encode. The empty token is the first page.
func Decode(token string) (Cursor, error) {
	var c Cursor
	if token == "" {
		return c, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, ErrInvalidToken
	}
	if err := json.Unmarshal(b, &c); err != nil || c.ID == 0 {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// ClampLimit bounds a caller-supplied page size to [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Trim cuts a limit+1 result set down to limit and returns the token for
// the next page, or nil when there is none.
func Trim[T any](items []T, limit int, key func(T) Cursor) ([]T, *string) {
	if len(items) <= limit {
		return items, nil
	}
	token := Encode(key(items[limit-1]))
	return items[:limit], &token
}
