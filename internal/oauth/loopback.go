package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

type callbackResult struct {
	Code  string
	State string
}

// loopbackServer is a single-request HTTP server listening on
// 127.0.0.1:port/callback, used only to catch the authorization-code
// redirect. It runs under its own timeout, unrelated to the main
// transport's lifetime (spec §9 design note).
type loopbackServer struct {
	srv     *http.Server
	ln      net.Listener
	resultC chan callbackResult
	errC    chan error
	timeout time.Duration
}

func newLoopbackServer(port int, timeout time.Duration) (*loopbackServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, err
	}
	l := &loopbackServer{
		ln:      ln,
		resultC: make(chan callbackResult, 1),
		errC:    make(chan error, 1),
		timeout: timeout,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", l.handleCallback)
	l.srv = &http.Server{Handler: mux}
	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case l.errC <- err:
			default:
			}
		}
	}()
	return l, nil
}

func (l *loopbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, "Authorization complete, you may close this tab.")
	select {
	case l.resultC <- callbackResult{Code: code, State: state}:
	default:
	}
}

func (l *loopbackServer) Wait(ctx context.Context) (callbackResult, error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case r := <-l.resultC:
		return r, nil
	case err := <-l.errC:
		return callbackResult{}, err
	case <-timer.C:
		return callbackResult{}, fmt.Errorf("oauth: timed out waiting for authorization callback")
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

func (l *loopbackServer) Close() error {
	return l.srv.Close()
}
