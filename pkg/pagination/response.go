package pagination

// Edge is one item in a paginated list, alongside its own cursor.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// Connection is a Relay-style paginated response.
type Connection[T any] struct {
	Edges    []*Edge[T] `json:"edges"`
	PageInfo PageInfo   `json:"page_info"`
	Total    *int       `json:"total,omitempty"`
}

// NewConnection builds a Connection from a page of nodes.
func NewConnection[T any](nodes []T, getCursor func(T) (*Cursor, error), pageRequest *PageRequest, hasMore bool) (*Connection[T], error) {
	edges := make([]*Edge[T], 0, len(nodes))

	for _, node := range nodes {
		cursor, err := getCursor(node)
		if err != nil {
			return nil, err
		}

		encodedCursor, err := cursor.Encode()
		if err != nil {
			return nil, err
		}

		edges = append(edges, &Edge[T]{
			Node:   node,
			Cursor: encodedCursor,
		})
	}

	pageInfo := PageInfo{
		HasNextPage:     hasMore && pageRequest.IsForward(),
		HasPreviousPage: hasMore && pageRequest.IsBackward(),
	}

	if len(edges) > 0 {
		pageInfo.StartCursor = &edges[0].Cursor
		pageInfo.EndCursor = &edges[len(edges)-1].Cursor
	}

	return &Connection[T]{
		Edges:    edges,
		PageInfo: pageInfo,
	}, nil
}

// NewConnectionWithTotal builds a Connection that also reports the
// total item count across all pages.
func NewConnectionWithTotal[T any](nodes []T, getCursor func(T) (*Cursor, error), pageRequest *PageRequest, hasMore bool, total int) (*Connection[T], error) {
	conn, err := NewConnection(nodes, getCursor, pageRequest, hasMore)
	if err != nil {
		return nil, err
	}
	conn.Total = &total
	return conn, nil
}
