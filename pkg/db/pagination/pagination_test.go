package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "abc", CreatedAt: "2025-06-01T12:00:00Z"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", cursor.ID)
	assert.Equal(t, "2025-06-01T12:00:00Z", cursor.CreatedAt)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID string }
	extract := func(r *row) string { return r.ID }

	info := BuildCursorPageInfo([]*row{}, 2, extract)
	require.NotNil(t, info)
	assert.False(t, info.HasMore)

	info = BuildCursorPageInfo([]*row{{"a"}, {"b"}}, 2, extract)
	require.NotNil(t, info)
	assert.False(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	info = BuildCursorPageInfo([]*row{{"a"}, {"b"}, {"c"}}, 2, extract)
	require.NotNil(t, info)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)
}
