package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CursorType identifies which field a cursor is anchored on.
type CursorType string

const (
	CursorTypeID        CursorType = "id"
	CursorTypeTimestamp CursorType = "timestamp"
	CursorTypeComposite CursorType = "composite"
)

// Cursor marks a position in a paginated list.
type Cursor struct {
	Type      CursorType             `json:"type"`
	ID        *uuid.UUID             `json:"id,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// PageInfo describes a page's position within the overall list.
type PageInfo struct {
	HasNextPage     bool    `json:"has_next_page"`
	HasPreviousPage bool    `json:"has_previous_page"`
	StartCursor     *string `json:"start_cursor,omitempty"`
	EndCursor       *string `json:"end_cursor,omitempty"`
}

// PageRequest is a Relay-style cursor pagination request.
type PageRequest struct {
	First  *int    `json:"first,omitempty"`
	After  *string `json:"after,omitempty"`
	Last   *int    `json:"last,omitempty"`
	Before *string `json:"before,omitempty"`
}

// NewIDCursor builds a cursor anchored on a UUID.
func NewIDCursor(id uuid.UUID) *Cursor {
	return &Cursor{
		Type: CursorTypeID,
		ID:   &id,
	}
}

// NewTimestampCursor builds a cursor anchored on a point in time.
func NewTimestampCursor(timestamp time.Time) *Cursor {
	return &Cursor{
		Type:      CursorTypeTimestamp,
		Timestamp: &timestamp,
	}
}

// NewCompositeCursor builds a cursor anchored on several named fields.
func NewCompositeCursor(fields map[string]interface{}) *Cursor {
	return &Cursor{
		Type:   CursorTypeComposite,
		Fields: fields,
	}
}

// Encode renders the cursor as an opaque base64 token.
func (c *Cursor) Encode() (string, error) {
	if c == nil {
		return "", nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a cursor token produced by Encode.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}

	return &cursor, nil
}

// GetLimit returns the requested page size, defaulting to 20.
func (pr *PageRequest) GetLimit() int {
	if pr.First != nil {
		return *pr.First
	}
	if pr.Last != nil {
		return *pr.Last
	}
	return 20
}

// IsForward reports whether this is a forward-paging request.
func (pr *PageRequest) IsForward() bool {
	return pr.First != nil || pr.After != nil
}

// IsBackward reports whether this is a backward-paging request.
func (pr *PageRequest) IsBackward() bool {
	return pr.Last != nil || pr.Before != nil
}

// Validate rejects self-contradictory or out-of-range page requests.
func (pr *PageRequest) Validate() error {
	if pr.First != nil && pr.Last != nil {
		return fmt.Errorf("cannot use both 'first' and 'last' parameters")
	}

	if pr.After != nil && pr.Before != nil {
		return fmt.Errorf("cannot use both 'after' and 'before' parameters")
	}

	if pr.First != nil && *pr.First <= 0 {
		return fmt.Errorf("'first' must be positive")
	}
	if pr.Last != nil && *pr.Last <= 0 {
		return fmt.Errorf("'last' must be positive")
	}

	const maxPageSize = 100
	if pr.First != nil && *pr.First > maxPageSize {
		return fmt.Errorf("'first' cannot exceed %d", maxPageSize)
	}
	if pr.Last != nil && *pr.Last > maxPageSize {
		return fmt.Errorf("'last' cannot exceed %d", maxPageSize)
	}

	return nil
}

// GetCursor decodes whichever of After/Before was set on the request.
func (pr *PageRequest) GetCursor() (*Cursor, error) {
	if pr.After != nil {
		return DecodeCursor(*pr.After)
	}
	if pr.Before != nil {
		return DecodeCursor(*pr.Before)
	}
	return nil, nil
}
