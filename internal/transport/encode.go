package transport

import (
	"encoding/json"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
)

func jsonEncode(msg *jsonrpc.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return b, nil
}
