package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_EncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewTimestampCursor(ts)

	encoded, err := c.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded.Timestamp)
	assert.True(t, ts.Equal(*decoded.Timestamp))
	assert.Equal(t, CursorTypeTimestamp, decoded.Type)
}

func TestCursor_EncodeNilIsEmptyString(t *testing.T) {
	var c *Cursor
	encoded, err := c.Encode()
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestDecodeCursor_EmptyStringIsNil(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursor_RejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestPageRequest_Validate(t *testing.T) {
	first, last, tooMany, negative := 10, 10, 1000, -1

	cases := []struct {
		name    string
		req     PageRequest
		wantErr bool
	}{
		{"empty request is valid", PageRequest{}, false},
		{"first alone is valid", PageRequest{First: &first}, false},
		{"first and last together is invalid", PageRequest{First: &first, Last: &last}, true},
		{"first exceeding max is invalid", PageRequest{First: &tooMany}, true},
		{"non-positive first is invalid", PageRequest{First: &negative}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPageRequest_GetLimitDefaultsTo20(t *testing.T) {
	req := PageRequest{}
	assert.Equal(t, 20, req.GetLimit())

	first := 5
	req.First = &first
	assert.Equal(t, 5, req.GetLimit())
}

func TestPageRequest_DirectionHelpers(t *testing.T) {
	first := 1
	req := PageRequest{First: &first}
	assert.True(t, req.IsForward())
	assert.False(t, req.IsBackward())

	last := 1
	req2 := PageRequest{Last: &last}
	assert.False(t, req2.IsForward())
	assert.True(t, req2.IsBackward())
}

func TestNewIDCursor(t *testing.T) {
	id := uuid.New()
	c := NewIDCursor(id)
	require.NotNil(t, c.ID)
	assert.Equal(t, id, *c.ID)
	assert.Equal(t, CursorTypeID, c.Type)
}
