// Package oauth implements the OAuth 2.1 authorization-code-with-PKCE flow
// used by AUTH-004. Per spec §1 this is an external collaborator: its only
// interface to the core is TokenAcquirer.Acquire, one "get me a bearer
// token" operation. The flow itself — PKCE S256, a state parameter, and a
// one-shot loopback callback server — is out of the probe engine's scope
// but is implemented here against the stdlib plus github.com/google/uuid
// for state generation, matching spec §6's description.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultCallbackTimeout = 120 * time.Second

// TokenAcquirer is the single operation the probe core depends on.
type TokenAcquirer interface {
	Acquire(ctx context.Context) (accessToken string, err error)
}

// Discovery holds the two endpoints found via the well-known discovery
// documents (AUTH-002/AUTH-003).
type Discovery struct {
	AuthorizationServers []string
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// Flow implements TokenAcquirer using authorization-code + PKCE(S256).
type Flow struct {
	ClientID     string
	RedirectPort int
	TargetURL    string
	Discovery    Discovery
	HTTPClient   *http.Client
}

func NewFlow(clientID string, redirectPort int, targetURL string, disc Discovery) *Flow {
	return &Flow{
		ClientID:     clientID,
		RedirectPort: redirectPort,
		TargetURL:    targetURL,
		Discovery:    disc,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Acquire runs the full PKCE authorization-code flow: opens a one-shot
// loopback server on RedirectPort, drives the browser (left to the caller —
// the probe only prints the authorization URL, per spec §1's "browser
// redirect" being external), and exchanges the returned code for a token.
func (f *Flow) Acquire(ctx context.Context) (string, error) {
	verifier, challenge, err := generatePKCE()
	if err != nil {
		return "", fmt.Errorf("oauth: generating PKCE pair: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString([]byte(uuid.NewString()))[:22]

	authURL, err := f.buildAuthorizationURL(challenge, state)
	if err != nil {
		return "", err
	}

	callback, err := newLoopbackServer(f.RedirectPort, defaultCallbackTimeout)
	if err != nil {
		return "", fmt.Errorf("oauth: starting loopback callback server: %w", err)
	}
	defer callback.Close()

	fmt.Printf("Open this URL to authorize: %s\n", authURL)

	result, err := callback.Wait(ctx)
	if err != nil {
		return "", err
	}
	if result.State != state {
		return "", fmt.Errorf("oauth: state mismatch (possible CSRF)")
	}

	return f.exchangeCode(ctx, result.Code, verifier)
}

func (f *Flow) buildAuthorizationURL(challenge, state string) (string, error) {
	u, err := url.Parse(f.Discovery.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("oauth: parsing authorization endpoint: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", fmt.Sprintf("http://127.0.0.1:%d/callback", f.RedirectPort))
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	q.Set("resource", f.TargetURL)
	q.Set("scope", "mcp")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Flow) exchangeCode(ctx context.Context, code, verifier string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", fmt.Sprintf("http://127.0.0.1:%d/callback", f.RedirectPort))
	form.Set("client_id", f.ClientID)
	form.Set("code_verifier", verifier)
	form.Set("resource", f.TargetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Discovery.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oauth: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth: token exchange request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth: token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("oauth: decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("oauth: token response missing access_token")
	}
	return body.AccessToken, nil
}

func generatePKCE() (verifier, challenge string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
