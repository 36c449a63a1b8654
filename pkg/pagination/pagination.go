// Package pagination implements opaque keyset cursors. Time-ordered lists
// page by (created_at, id) descending; the catalog pages by ascending id.
// Cursors are URL-safe so clients can pass them back verbatim in a query
// string.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	timeCursorTag = "t"
	idCursorTag   = "id"
)

// ErrInvalidCursor is wrapped by every cursor decoding failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params are the raw page inputs from a request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points just past the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting when unset.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so the caller can tell whether a
// next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func encode(tag, body string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(tag + "|" + body))
}

func decode(tag, value string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", ErrInvalidCursor
	}
	body, ok := strings.CutPrefix(string(raw), tag+"|")
	if !ok {
		return "", ErrInvalidCursor
	}
	return body, nil
}

func EncodeCursor(c Cursor) string {
	return encode(timeCursorTag, c.CreatedAt.UTC().Format(time.RFC3339Nano)+"|"+c.ID.String())
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	body, err := decode(timeCursorTag, value)
	if err != nil {
		return nil, err
	}
	ts, rawID, ok := strings.Cut(body, "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

func EncodeIDCursor(lastID int64) string {
	return encode(idCursorTag, strconv.FormatInt(lastID, 10))
}

// ParseIDCursor returns 0 for an empty value.
func ParseIDCursor(value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	body, err := decode(idCursorTag, value)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(body, 10, 64)
	if err != nil || id < 0 {
		return 0, ErrInvalidCursor
	}
	return id, nil
}

// Keyset orders qb newest first, seeks past cursor and fetches one row more
// than pageSize.
func Keyset(qb *gorm.DB, cursor *Cursor, pageSize int) *gorm.DB {
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	return qb.Order("created_at DESC").Order("id DESC").Limit(pageSize + 1)
}

// TrimPage drops the look-ahead row fetched by Keyset and returns the
// cursor of the last kept row, or nil on the final page.
func TrimPage[T any](rows []T, pageSize int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= pageSize {
		return rows, nil
	}
	rows = rows[:pageSize]
	next := key(rows[len(rows)-1])
	return rows, &next
}

// EncodeNext encodes an optional next-page cursor, "" on the final page.
func EncodeNext(c *Cursor) string {
	if c == nil {
		return ""
	}
	return EncodeCursor(*c)
}
