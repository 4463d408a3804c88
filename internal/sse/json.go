package sse

import (
	"encoding/json"
	"io"

	"go.uber.org/zap"
)

// DecodeJSONEvents reads every SSE event from r, attempts to JSON-decode
// each event's Data field, and yields only the ones that decode. Malformed
// event data is logged at debug level and dropped, per spec §4.1's derived
// parser layer.
func DecodeJSONEvents(r io.Reader, logger *zap.Logger) ([]json.RawMessage, error) {
	events, err := DecodeAll(r)
	if err != nil && len(events) == 0 {
		return nil, err
	}
	var out []json.RawMessage
	for _, ev := range events {
		if !json.Valid([]byte(ev.Data)) {
			logger.Debug("dropping SSE event with non-JSON data", zap.String("data", ev.Data))
			continue
		}
		out = append(out, json.RawMessage(ev.Data))
	}
	return out, err
}
