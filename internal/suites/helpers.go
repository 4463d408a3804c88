package suites

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
)

// decodeResult unmarshals resp.Result into v, erroring if resp carries a
// JSON-RPC error instead of a result.
func decodeResult(resp *jsonrpc.Message, v any) error {
	if resp.Error != nil {
		return fmt.Errorf("server returned error: %s", resp.Error.Error())
	}
	if resp.Result == nil {
		return fmt.Errorf("response has neither result nor error")
	}
	if err := json.Unmarshal(resp.Result, v); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// decodeEntries unmarshals a list of raw JSON-Schema-ish entries into a []T.
func decodeEntries[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("decoding entry: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

var toolNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// isErrorResult reports whether a tools/call result signals failure via
// isError:true or error-labeled text content, per TOOL-005.
func isErrorResult(result map[string]any) bool {
	if isErr, ok := result["isError"].(bool); ok && isErr {
		return true
	}
	content, _ := result["content"].([]any)
	for _, c := range content {
		item, ok := c.(map[string]any)
		if !ok {
			continue
		}
		text, _ := item["text"].(string)
		if text != "" && containsErrorWord(text) {
			return true
		}
	}
	return false
}

func containsErrorWord(s string) bool {
	return regexp.MustCompile(`(?i)error|invalid|fail`).MatchString(s)
}
