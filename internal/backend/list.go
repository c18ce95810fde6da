package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPageLimit is the page size used by ListAll.
const DefaultPageLimit = 100

// maxPages stops a misbehaving backend from paging forever.
const maxPages = 1000

// Page is the data shape of list endpoints.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// ListAll collects every item of a list endpoint. Concurrent calls for the same
// path share one fetch; the returned slice must not be mutated. The shared
// fetch ignores the cancellation of whichever caller started it and is bounded
// by the client timeout; each caller still returns early on its own ctx.
func ListAll[T any](ctx context.Context, c *Client, path string, limit int) ([]T, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	ch := c.group.DoChan(path, func() (any, error) {
		return listAll[T](context.WithoutCancel(ctx), c, path, limit)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		items, ok := res.Val.([]T)
		if !ok {
			return nil, fmt.Errorf("backend: list %s: unexpected result %T", path, res.Val)
		}
		return items, nil
	}
}

func listAll[T any](ctx context.Context, c *Client, path string, limit int) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(limit))
		var p Page[T]
		if err := c.Get(ctx, path, query, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(p.Items) < limit || len(all) >= p.Total {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}
