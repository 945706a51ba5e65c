package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection_BuildsEdgesWithCursors(t *testing.T) {
	nodes := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	first := 2
	req := PageRequest{First: &first}

	conn, err := NewConnection(nodes, func(t time.Time) (*Cursor, error) {
		return NewTimestampCursor(t), nil
	}, &req, true)
	require.NoError(t, err)

	require.Len(t, conn.Edges, 2)
	assert.True(t, conn.Edges[0].Node.Equal(nodes[0]))
	assert.NotEmpty(t, conn.Edges[0].Cursor)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
	require.NotNil(t, conn.PageInfo.StartCursor)
	require.NotNil(t, conn.PageInfo.EndCursor)
}

func TestNewConnectionWithTotal_SetsTotal(t *testing.T) {
	nodes := []int{1, 2, 3}
	req := PageRequest{}

	conn, err := NewConnectionWithTotal(nodes, func(n int) (*Cursor, error) {
		return NewCompositeCursor(map[string]interface{}{"n": n}), nil
	}, &req, false, 42)
	require.NoError(t, err)

	require.NotNil(t, conn.Total)
	assert.Equal(t, 42, *conn.Total)
	assert.False(t, conn.PageInfo.HasNextPage)
}

func TestNewConnection_EmptyNodesHasNoCursors(t *testing.T) {
	req := PageRequest{}
	conn, err := NewConnection([]int{}, func(n int) (*Cursor, error) {
		return NewCompositeCursor(nil), nil
	}, &req, false)
	require.NoError(t, err)

	assert.Empty(t, conn.Edges)
	assert.Nil(t, conn.PageInfo.StartCursor)
	assert.Nil(t, conn.PageInfo.EndCursor)
}
