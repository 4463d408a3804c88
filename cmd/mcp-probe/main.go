// Command mcp-probe runs the MCP conformance suites against a server
// reachable over stdio or streaming HTTP, and reports PASS/FAIL/WARN/SKIP
// per check plus a process exit code (spec §4.7).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/config"
	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/oauth"
	"github.com/gate4ai/mcp-probe/internal/report"
	"github.com/gate4ai/mcp-probe/internal/runner"
	"github.com/gate4ai/mcp-probe/internal/schema"
	"github.com/gate4ai/mcp-probe/internal/suites"
	"github.com/gate4ai/mcp-probe/internal/transport"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logerConfig := zap.NewProductionConfig()
	logerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logerConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: failed to initialize logger: %v\n", err)
		return report.ExitConfigError
	}
	defer logger.Sync()

	cfg, listChecks, configPath, oauthClientID, redirectPort, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
		return report.ExitConfigError
	}

	if configPath != "" {
		overlay, err := config.LoadOverlay(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
			return report.ExitConfigError
		}
		if err := config.ApplyOverlay(cfg, overlay); err != nil {
			fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
			return report.ExitConfigError
		}
	}

	if err := runner.ValidateSuiteNames(cfg.Suites); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
		return report.ExitConfigError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
		return report.ExitConfigError
	}

	if listChecks {
		printCheckCatalogue(os.Stdout)
		return report.ExitOK
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupted := false
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		interrupted = true
		logger.Info("received termination signal, aborting run")
		cancel()
	}()

	var tokenSource oauth.TokenAcquirer
	if cfg.Transport == config.TransportHTTP && oauthClientID != "" {
		disc, ok := discoverOAuth(ctx, cfg.URL)
		if !ok {
			logger.Warn("oauth-client-id given but the server's 401 response did not advertise discoverable OAuth metadata; the auth suite's token-dependent checks will be skipped")
		} else {
			tokenSource = oauth.NewFlow(oauthClientID, redirectPort, cfg.URL, disc)
		}
	}

	start := time.Now()
	newTransport := func() (transport.Transport, error) {
		switch cfg.Transport {
		case config.TransportStdio:
			return transport.NewStdio(cfg.Command, logger), nil
		case config.TransportHTTP:
			return transport.NewHTTP(cfg.URL, cfg.Headers, logger), nil
		default:
			return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
		}
	}

	result, err := runner.Run(ctx, cfg, runner.Factories{
		NewTransport:   newTransport,
		Logger:         logger,
		TokenSource:    tokenSource,
		Validator:      schema.ShallowValidator{},
		BaseURL:        cfg.URL,
		OAuthRequested: oauthClientID != "",
		IsTerminal:     isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()),
	})
	finished := time.Now()

	if interrupted {
		return report.ExitInterrupted
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
		return report.ExitConfigError
	}

	target := cfg.URL
	if target == "" {
		target = cfg.Command
	}
	rep := report.Build(result, target, start, finished)

	if err := writeReport(rep, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-probe: %v\n", err)
		return report.ExitConfigError
	}

	return report.ExitCode(rep, cfg.Strict)
}

// discoverOAuth sends one unauthenticated probe request and, if the server
// answers 401 with a resource_metadata pointer, follows RFC 9728 discovery
// to the authorization server's endpoints.
func discoverOAuth(ctx context.Context, target string) (oauth.Discovery, bool) {
	body := strings.NewReader(`{"jsonrpc":"2.0","id":"discover","method":"tools/list","params":{}}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return oauth.Discovery{}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return oauth.Discovery{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		return oauth.Discovery{}, false
	}
	metaURL, ok := oauth.ResourceMetadataURL(resp.Header.Get("WWW-Authenticate"))
	if !ok {
		return oauth.Discovery{}, false
	}
	disc, err := oauth.Discover(ctx, metaURL, nil)
	if err != nil {
		return oauth.Discovery{}, false
	}
	return disc, true
}

func writeReport(rep *report.Report, cfg *config.RunConfig) error {
	out := os.Stdout
	var f *os.File
	if cfg.OutputPath != "" && cfg.OutputPath != "-" {
		var err error
		f, err = os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if cfg.OutputFormat == "json" {
		b, err := rep.JSON()
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		_, err = out.Write(append(b, '\n'))
		return err
	}
	report.WriteConsole(out, rep, cfg.NoColor)
	return nil
}

// printCheckCatalogue builds every suite against an empty context (no
// checks are executed, only their declarations are inspected) and prints
// one line per check, for --list-checks.
func printCheckCatalogue(w *os.File) {
	sc := &suites.Context{}
	noFreshClient := func() (*client.Client, func(), error) {
		return nil, nil, fmt.Errorf("not available in --list-checks mode")
	}
	for _, s := range []harness.Suite{
		suites.Auth(sc),
		suites.Lifecycle(sc, noFreshClient),
		suites.JSONRPC(sc),
		suites.Tools(sc),
		suites.Resources(sc),
		suites.Prompts(sc),
		suites.Notifications(sc),
		suites.Tasks(sc),
		suites.Edge(sc),
	} {
		for _, c := range s.Checks {
			fmt.Fprintf(w, "%-8s %-9s %s — %s\n", c.ID, c.Severity, s.Name, c.Description)
		}
	}
}

func parseFlags(args []string) (cfg *config.RunConfig, listChecks bool, configPath, oauthClientID string, redirectPort int, err error) {
	fs := flag.NewFlagSet("mcp-probe", flag.ContinueOnError)
	var (
		transportFlag = fs.String("transport", "", "transport: stdio or http")
		command       = fs.String("command", "", "shell command line to launch a stdio server")
		url           = fs.String("url", "", "URL of a streaming-HTTP server")
		header        = fs.String("header", "", "comma-separated Key:Value pairs sent with every HTTP request")
		timeout       = fs.Duration("timeout", 10*time.Second, "per-request timeout")
		suitesFlag    = fs.String("suites", "", "comma-separated suite names to run (default: all applicable)")
		failFast      = fs.Bool("fail-fast", false, "abort the run on the first FAIL")
		strict        = fs.Bool("strict", false, "promote WARNING-or-above findings to a non-zero exit code")
		noColor       = fs.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable ANSI color in console output")
		output        = fs.String("output", "-", "output path, or - for stdout")
		format        = fs.String("format", "console", "output format: console or json")
		configFile    = fs.String("config", "", "optional YAML file layered under the flags above")
		listChecksF   = fs.Bool("list-checks", false, "print the full check catalogue and exit")
		clientID      = fs.String("oauth-client-id", "", "OAuth 2.1 client id for the auth suite's token acquisition")
		port          = fs.Int("oauth-redirect-port", 8765, "loopback port for the OAuth authorization-code redirect")
	)
	if err := fs.Parse(args); err != nil {
		return nil, false, "", "", 0, err
	}

	headers := map[string]string{}
	if *header != "" {
		for _, pair := range strings.Split(*header, ",") {
			kv := strings.SplitN(pair, ":", 2)
			if len(kv) == 2 {
				headers[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
	}

	var suiteNames []string
	if *suitesFlag != "" {
		suiteNames = strings.Split(*suitesFlag, ",")
	}

	cfg = &config.RunConfig{
		Transport:    config.TransportKind(*transportFlag),
		Command:      *command,
		URL:          *url,
		Headers:      headers,
		Timeout:      *timeout,
		Suites:       suiteNames,
		FailFast:     *failFast,
		Strict:       *strict,
		NoColor:      *noColor,
		OutputPath:   *output,
		OutputFormat: *format,
	}
	return cfg, *listChecksF, *configFile, *clientID, *port, nil
}
