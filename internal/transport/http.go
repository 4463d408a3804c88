package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/gate4ai/mcp-probe/internal/sse"
	backoff "gopkg.in/cenkalti/backoff.v1"
	"go.uber.org/zap"
)

const sessionHeader = "Mcp-Session-Id"

// HTTP is the streaming-HTTP transport. One POST per outbound message;
// responses may be a single JSON object or a text/event-stream body whose
// decoded events are appended to an internal queue.
type HTTP struct {
	url     string
	headers map[string]string
	logger  *zap.Logger
	client  *http.Client

	mu                  sync.Mutex
	sessionID           string
	running             bool
	lastWWWAuthenticate string

	queueMu sync.Mutex
	queue   []*jsonrpc.Message
	notify  chan struct{}
}

func NewHTTP(url string, headers map[string]string, logger *zap.Logger) *HTTP {
	return &HTTP{
		url:     url,
		headers: headers,
		logger:  logger,
		client:  &http.Client{Timeout: 60 * time.Second},
		notify:  make(chan struct{}, 1),
	}
}

func (h *HTTP) Name() string { return "http" }

// Start marks the transport running; no connection is opened eagerly.
func (h *HTTP) Start(ctx context.Context) error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	h.logger.Info("http transport started", zap.String("url", h.url))
	return nil
}

func (h *HTTP) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *HTTP) Send(ctx context.Context, msg *jsonrpc.Message) error {
	b, err := jsonEncode(msg)
	if err != nil {
		return err
	}
	return h.SendRaw(ctx, b)
}

// SendRaw POSTs a raw body to the target. Transport errors and 5xx
// responses are retried with the teacher's exponential-backoff helper for
// at most 5s in total; 401 and other 4xx responses, and undecodable JSON
// bodies, are returned at once without a retry.
func (h *HTTP) SendRaw(ctx context.Context, raw []byte) error {
	op := func() error {
		return h.postOnce(ctx, raw)
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func (h *HTTP) postOnce(ctx context.Context, raw []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(raw))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("http: building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	h.mu.Lock()
	sessionID := h.sessionID
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	h.mu.Unlock()
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	defer resp.Body.Close()

	if newID := resp.Header.Get(sessionHeader); newID != "" {
		h.mu.Lock()
		h.sessionID = newID
		h.mu.Unlock()
	}

	if resp.StatusCode == http.StatusUnauthorized {
		h.lastWWWAuthenticate = resp.Header.Get("WWW-Authenticate")
		return backoff.Permanent(ErrAuthRequired)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("http: server error status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("http: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("http: reading body: %w", err))
	}
	if len(body) == 0 {
		return nil
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch contentType {
	case "text/event-stream":
		return h.dispatchSSE(body)
	default:
		return h.dispatchJSON(body)
	}
}

func (h *HTTP) dispatchJSON(body []byte) error {
	msg, err := jsonrpc.Decode(body)
	if err != nil {
		h.logger.Debug("http: non-JSON response body", zap.Error(err))
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}
	h.enqueue(msg)
	return nil
}

func (h *HTTP) dispatchSSE(body []byte) error {
	raws, err := sse.DecodeJSONEvents(bytes.NewReader(body), h.logger)
	if err != nil {
		h.logger.Debug("http: error decoding SSE body", zap.Error(err))
	}
	for _, raw := range raws {
		msg, decErr := jsonrpc.Decode(raw)
		if decErr != nil {
			h.logger.Debug("http: SSE event was valid JSON but not a JSON-RPC message", zap.Error(decErr))
			continue
		}
		h.enqueue(msg)
	}
	return nil
}

func (h *HTTP) enqueue(msg *jsonrpc.Message) {
	h.queueMu.Lock()
	h.queue = append(h.queue, msg)
	h.queueMu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *HTTP) Receive(ctx context.Context, timeout time.Duration) (*jsonrpc.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if msg, ok := h.dequeue(); ok {
			return msg, nil
		}
		select {
		case <-h.notify:
			continue
		case <-timer.C:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (h *HTTP) dequeue() (*jsonrpc.Message, bool) {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	if len(h.queue) == 0 {
		return nil, false
	}
	msg := h.queue[0]
	h.queue = h.queue[1:]
	return msg, true
}

// LastWWWAuthenticate returns the WWW-Authenticate header value from the
// most recent 401 response, so AUTH-001 can assert on its content.
func (h *HTTP) LastWWWAuthenticate() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastWWWAuthenticate
}

// Stop issues a DELETE on the session URL if a session id was obtained.
// 405 means the server doesn't support session teardown and is ignored.
func (h *HTTP) Stop(ctx context.Context) error {
	h.mu.Lock()
	sessionID := h.sessionID
	h.running = false
	h.mu.Unlock()
	if sessionID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.url, nil)
	if err != nil {
		return fmt.Errorf("http: building DELETE request: %w", err)
	}
	req.Header.Set(sessionHeader, sessionID)
	h.mu.Lock()
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	h.mu.Unlock()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("http: session DELETE failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed {
		h.logger.Debug("http: server does not support session deletion")
	}
	return nil
}

func (h *HTTP) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// SetHeader sets a header sent with every subsequent request, used by the
// auth suite to attach a bearer token acquired mid-run.
func (h *HTTP) SetHeader(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.headers == nil {
		h.headers = map[string]string{}
	}
	h.headers[key] = value
}
