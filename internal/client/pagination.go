package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// PaginatedList repeatedly issues {cursor: <prev>} (absent on the first
// call) against method, concatenating result[key] entries until
// result.nextCursor is falsy. It records, per method, whether the first
// page carried a nextCursor at all, so callers can tell a single-page
// server from one whose pagination was genuinely exercised.
func (c *Client) PaginatedList(ctx context.Context, method, key string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	cursor := ""
	first := true

	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}
		resp, err := c.Request(ctx, method, params)
		if err != nil {
			return all, err
		}
		if resp.Error != nil {
			return all, resp.Error
		}

		var page struct {
			NextCursor string            `json:"nextCursor"`
			Entries    []json.RawMessage `json:"-"`
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(resp.Result, &raw); err != nil {
			return all, fmt.Errorf("client: decoding %s result: %w", method, err)
		}
		if nc, ok := raw["nextCursor"]; ok {
			_ = json.Unmarshal(nc, &page.NextCursor)
		}
		entries, ok := raw[key]
		if !ok {
			return all, fmt.Errorf("client: %s result missing %q", method, key)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(entries, &items); err != nil {
			return all, fmt.Errorf("client: %s.%s is not an array: %w", method, key, err)
		}
		all = append(all, items...)

		if first {
			c.mu.Lock()
			c.firstPageHadCursor[method] = page.NextCursor != ""
			c.mu.Unlock()
			first = false
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return all, nil
}

// PaginationExercised reports whether method's first page advertised a
// nextCursor, i.e. whether more than one page actually existed.
func (c *Client) PaginationExercised(method string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstPageHadCursor[method]
}
