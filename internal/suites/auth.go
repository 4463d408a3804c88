package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/oauth"
	"github.com/gate4ai/mcp-probe/internal/transport"
)

// Auth builds the `auth` suite. It applies only to the HTTP transport and
// only when OAuth was requested (spec §4.6); the runner gates whether this
// suite is even built, but every check still self-SKIPs on a non-HTTP
// transport so the suite degrades gracefully if ever constructed directly.
func Auth(c *Context) harness.Suite {
	return harness.Suite{
		Name: "auth",
		Checks: []harness.Check{
			{ID: "AUTH-001", Description: "an anonymous request to a protected server returns 401 with WWW-Authenticate: Bearer", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				httpT, ok := c.Transport.(interface{ LastWWWAuthenticate() string })
				if !ok {
					return nil, harness.Skip("auth suite applies only to the HTTP transport")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				_, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err == nil {
					return nil, harness.Skip("server does not require authentication")
				}
				if err != transport.ErrAuthRequired && !strings.Contains(err.Error(), transport.ErrAuthRequired.Error()) {
					return nil, err
				}
				header := httpT.LastWWWAuthenticate()
				if !strings.Contains(header, "Bearer") {
					return harness.Fail(fmt.Sprintf("401 response carried no Bearer WWW-Authenticate header: %q", header)), nil
				}
				return harness.PassDetail(header), nil
			}},
			{ID: "AUTH-002", Description: "discovering /.well-known/oauth-protected-resource yields a non-empty authorization_servers array", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				httpT, ok := c.Transport.(interface{ LastWWWAuthenticate() string })
				if !ok {
					return nil, harness.Skip("auth suite applies only to the HTTP transport")
				}
				header := httpT.LastWWWAuthenticate()
				if header == "" {
					return nil, harness.Skip("no 401 response observed yet")
				}
				metaURL, ok := oauth.ResourceMetadataURL(header)
				if !ok {
					return harness.Fail(fmt.Sprintf("WWW-Authenticate header carried no resource_metadata parameter: %q", header)), nil
				}
				prm, err := oauth.DiscoverProtectedResource(ctx, metaURL, nil)
				if err != nil {
					return harness.Fail(fmt.Sprintf("fetching protected resource metadata: %v", err)), nil
				}
				if len(prm.AuthorizationServers) == 0 {
					return harness.Fail("protected resource metadata listed no authorization servers"), nil
				}
				c.discoveredAuthServers = prm.AuthorizationServers
				return harness.PassDetail(fmt.Sprintf("%d authorization server(s)", len(prm.AuthorizationServers))), nil
			}},
			{ID: "AUTH-003", Description: "discovering the authorization server's /.well-known/oauth-authorization-server yields authorization_endpoint and token_endpoint", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				if _, ok := c.Transport.(interface{ LastWWWAuthenticate() string }); !ok {
					return nil, harness.Skip("auth suite applies only to the HTTP transport")
				}
				if len(c.discoveredAuthServers) == 0 {
					return nil, harness.Skip("no authorization server discovered")
				}
				asm, err := oauth.DiscoverAuthorizationServer(ctx, c.discoveredAuthServers[0], nil)
				if err != nil {
					return harness.Fail(fmt.Sprintf("fetching authorization server metadata: %v", err)), nil
				}
				if asm.AuthorizationEndpoint == "" || asm.TokenEndpoint == "" {
					return harness.Fail("authorization server metadata missing authorization_endpoint or token_endpoint"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "AUTH-004", Description: "with an interactive terminal attached, the full OAuth 2.1 PKCE flow acquires a token the server accepts", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.IsTerminal {
					return nil, harness.Skip("no interactive terminal attached")
				}
				httpT, ok := c.Transport.(interface{ SetHeader(string, string) })
				if !ok {
					return nil, harness.Skip("auth suite applies only to the HTTP transport")
				}
				if c.TokenSource == nil {
					return nil, harness.Skip("no OAuth token acquirer configured")
				}
				token, err := c.TokenSource.Acquire(ctx)
				if err != nil {
					return harness.Fail(fmt.Sprintf("token acquisition failed: %v", err)), nil
				}
				httpT.SetHeader("Authorization", "Bearer "+token)
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return harness.Fail(fmt.Sprintf("authenticated request failed: %v", err)), nil
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("authenticated request returned an error: %s", resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
		},
	}
}
