// Package jsonrpc defines the wire types exchanged with an MCP server and
// the small error taxonomy the rest of the probe builds on.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// -32000 to -32099 are reserved for implementation-defined server errors.
	CodeServerError = -32000
)

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// ID is a JSON-RPC request identifier. The probe always sends integer ids
// but must tolerate strings and null coming back from a non-conformant
// server, so it is carried as a raw value rather than a typed int.
type ID struct {
	raw   json.RawMessage
	valid bool
}

func NewID(n int64) ID {
	b, _ := json.Marshal(n)
	return ID{raw: b, valid: true}
}

func (id ID) IsValid() bool { return id.valid }

func (id ID) Equal(other ID) bool {
	if !id.valid || !other.valid {
		return false
	}
	return string(id.raw) == string(other.raw)
}

func (id ID) String() string {
	if !id.valid {
		return "<none>"
	}
	return string(id.raw)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.valid {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.raw = nil
		id.valid = false
		return nil
	}
	id.raw = append([]byte(nil), data...)
	id.valid = true
	return nil
}

// Message is a single JSON-RPC object: request, response, or notification.
// All three shapes are modeled as one loosely-typed struct because a
// conformance probe must be able to represent and inspect whatever a
// misbehaving server sends, including objects that mix fields no
// well-formed message would mix.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  *string         `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest reports whether the message looks like a request: it carries
// both an id and a method.
func (m *Message) IsRequest() bool {
	return m.ID != nil && m.ID.IsValid() && m.Method != nil
}

// IsNotification reports whether the message carries a method and no id.
func (m *Message) IsNotification() bool {
	return m.Method != nil && (m.ID == nil || !m.ID.IsValid())
}

// IsResponse reports whether the message carries an id and no method. It
// does not look at result or error (broken servers may send a bare id), so
// callers should not assume more than "this is something other than a
// request or notification".
func (m *Message) IsResponse() bool {
	return m.ID != nil && m.ID.IsValid() && m.Method == nil
}

// NewRequest builds a request message for method/params with the given id.
func NewRequest(id ID, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, ID: &id, Method: &method, Params: raw}, nil
}

// NewNotification builds an id-less message.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, Method: &method, Params: raw}, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return b, nil
}

// Decode parses one JSON object (a single line from stdio, or one decoded
// SSE/JSON HTTP body) into a Message. It does not accept batches; MCP does
// not use JSON-RPC batching.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC message: %w", err)
	}
	return &m, nil
}
