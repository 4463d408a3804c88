package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

var resourceMetadataParam = regexp.MustCompile(`resource_metadata="?([^",\s]+)"?`)

// ResourceMetadataURL extracts the resource_metadata parameter from a
// WWW-Authenticate header, per RFC 9728's protected-resource metadata
// pointer (spec §6 / AUTH-002).
func ResourceMetadataURL(wwwAuthenticate string) (string, bool) {
	m := resourceMetadataParam.FindStringSubmatch(wwwAuthenticate)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ProtectedResourceMetadata is the document served at
// /.well-known/oauth-protected-resource (RFC 9728), the target of AUTH-002.
type ProtectedResourceMetadata struct {
	AuthorizationServers []string `json:"authorization_servers"`
}

// AuthorizationServerMetadata is the document served at
// /.well-known/oauth-authorization-server, the target of AUTH-003.
type AuthorizationServerMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

// DiscoverProtectedResource fetches the protected-resource metadata
// document (AUTH-002). httpClient may be nil to use http.DefaultClient.
func DiscoverProtectedResource(ctx context.Context, resourceMetadataURL string, httpClient *http.Client) (ProtectedResourceMetadata, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var prm ProtectedResourceMetadata
	if err := getJSON(ctx, httpClient, resourceMetadataURL, &prm); err != nil {
		return ProtectedResourceMetadata{}, fmt.Errorf("oauth: fetching protected resource metadata: %w", err)
	}
	return prm, nil
}

// DiscoverAuthorizationServer fetches the named authorization server's
// metadata document (AUTH-003). httpClient may be nil to use
// http.DefaultClient.
func DiscoverAuthorizationServer(ctx context.Context, issuer string, httpClient *http.Client) (AuthorizationServerMetadata, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	asURL, err := authorizationServerMetadataURL(issuer)
	if err != nil {
		return AuthorizationServerMetadata{}, err
	}
	var asm AuthorizationServerMetadata
	if err := getJSON(ctx, httpClient, asURL, &asm); err != nil {
		return AuthorizationServerMetadata{}, fmt.Errorf("oauth: fetching authorization server metadata: %w", err)
	}
	return asm, nil
}

// Discover runs both discovery steps in sequence and returns the combined
// Discovery a Flow needs to run the full PKCE exchange (AUTH-004).
// httpClient may be nil to use http.DefaultClient.
func Discover(ctx context.Context, resourceMetadataURL string, httpClient *http.Client) (Discovery, error) {
	prm, err := DiscoverProtectedResource(ctx, resourceMetadataURL, httpClient)
	if err != nil {
		return Discovery{}, err
	}
	if len(prm.AuthorizationServers) == 0 {
		return Discovery{}, fmt.Errorf("oauth: protected resource metadata listed no authorization servers")
	}

	asm, err := DiscoverAuthorizationServer(ctx, prm.AuthorizationServers[0], httpClient)
	if err != nil {
		return Discovery{}, err
	}

	return Discovery{
		AuthorizationServers:  prm.AuthorizationServers,
		AuthorizationEndpoint: asm.AuthorizationEndpoint,
		TokenEndpoint:         asm.TokenEndpoint,
	}, nil
}

func authorizationServerMetadataURL(issuer string) (string, error) {
	u, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("oauth: parsing authorization server issuer %q: %w", issuer, err)
	}
	u.Path = u.Path + "/.well-known/oauth-authorization-server"
	return u.String(), nil
}

func getJSON(ctx context.Context, client *http.Client, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
