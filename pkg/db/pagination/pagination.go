package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" binding:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Page trims the extra look-ahead row fetched by option.ApplyPagination and
// builds the page info. key returns the id and creation time of an item.
func Page[T any](items []T, pageSize int, key func(T) (string, time.Time)) ([]T, PageInfo) {
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	if len(items) <= pageSize {
		return items, PageInfo{}
	}

	items = items[:pageSize]
	id, createdAt := key(items[len(items)-1])
	token, err := EncodeCursor(Cursor{ID: id, CreatedAt: createdAt.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return items, PageInfo{}
	}
	return items, PageInfo{NextPageToken: token, HasMore: true}
}
