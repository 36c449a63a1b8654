package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 5, time.UTC), ID: uuid.New()}
	encoded := EncodeCursor(in)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")

	out, err := ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	c, err := ParseCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{
		"not-base64!",
		EncodeIDCursor(4),
		base64.RawURLEncoding.EncodeToString([]byte("t|2026-03-01T10:00:00Z")),
		base64.RawURLEncoding.EncodeToString([]byte("t|yesterday|" + uuid.NewString())),
	} {
		_, err := ParseCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}

func TestIDCursor(t *testing.T) {
	id, err := ParseIDCursor(EncodeIDCursor(981))
	require.NoError(t, err)
	assert.EqualValues(t, 981, id)

	id, err = ParseIDCursor("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = ParseIDCursor(EncodeCursor(Cursor{ID: uuid.New()}))
	assert.ErrorIs(t, err, ErrInvalidCursor)
	_, err = ParseIDCursor(base64.RawURLEncoding.EncodeToString([]byte("id|-3")))
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

type row struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
}

func TestKeysetWalksEveryRowOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		// two rows share a timestamp to exercise the id tie-break
		require.NoError(t, db.Create(&row{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i/2) * time.Minute)}).Error)
	}

	seen := map[uuid.UUID]bool{}
	var cursor *Cursor
	pages := 0
	for {
		var rows []row
		require.NoError(t, Keyset(db.Model(&row{}), cursor, 2).Find(&rows).Error)
		rows, cursor = TrimPage(rows, 2, func(r row) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} })
		pages++
		for _, r := range rows {
			assert.False(t, seen[r.ID], "row returned twice")
			seen[r.ID] = true
		}
		if cursor == nil {
			break
		}
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}
