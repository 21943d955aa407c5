package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorToken(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.UTC)
	token := Encode(At(42, ts))
	assert.NotContains(t, token, "=")

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ID)
	assert.True(t, ts.Equal(c.Time()))
}

func TestDecode_EmptyAndInvalid(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	for _, bad := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":5}`)),
	} {
		_, err = Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestTrim(t *testing.T) {
	items := []int{5, 4, 3}
	key := func(i int) Cursor { return Cursor{ID: uint64(i)} }

	page, next := Trim(items, 2, key)
	assert.Equal(t, []int{5, 4}, page)
	require.NotNil(t, next)
	c, err := Decode(*next)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.ID)

	page, next = Trim(items, 3, key)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
	assert.Equal(t, 7, ClampLimit(7))
}
