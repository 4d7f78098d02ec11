package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"
)

// SortOrder represents sort direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrInvalidCursor is returned for a cursor this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are the list parameters every list operation accepts.
// After and Before are opaque cursors; at most one is honoured, Before wins.
type Params struct {
	Limit  int
	After  string
	Before string
	Sort   SortOrder
}

// Normalize clamps the limit and defaults the sort to descending.
func (p Params) Normalize() Params {
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Sort != SortAsc && p.Sort != SortDesc {
		p.Sort = SortDesc
	}
	return p
}

// Meta describes how to fetch the next page.
type Meta struct {
	Cursor       string `json:"cursor,omitempty"`
	HasMoreItems bool   `json:"hasMoreItems"`
}

// Page is one page of results.
type Page[T any] struct {
	Items []T  `json:"data"`
	Meta  Meta `json:"meta"`
}

// ParseParams reads limit, after, before and sort from the query string.
func ParseParams(c *gin.Context) Params {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return Params{
		Limit:  limit,
		After:  c.Query("after"),
		Before: c.Query("before"),
		Sort:   SortOrder(c.DefaultQuery("sort", string(SortDesc))),
	}.Normalize()
}

// EncodeCursor turns a DynamoDB key into an opaque cursor. Only string attributes are supported.
func EncodeCursor(key map[string]types.AttributeValue) (string, error) {
	plain := make(map[string]string, len(key))
	for k, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("encode cursor: attribute %s is not a string", k)
		}
		plain[k] = s.Value
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to a nil key.
func DecodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	key := make(map[string]types.AttributeValue, len(plain))
	for k, v := range plain {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
