// Command httpcert prints certification policies, certification tree paths
// and certification tree roots for HTTP responses.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/przydatek/response-verification/pkg/certifier"
	"github.com/przydatek/response-verification/pkg/config"
	"github.com/przydatek/response-verification/pkg/observability"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = runtime failure
//	2 = usage error
func Run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	slog.SetDefault(newLogger(stderr, cfg.LogLevel))

	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "expr":
		return runExprCmd(args[2:], cfg, stdout, stderr)
	case "path":
		return runPathCmd(args[2:], cfg, stdout, stderr)
	case "root":
		return runRootCmd(args[2:], cfg, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: httpcert <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  expr   Print the canonical CEL policy of the route serving a URL")
	_, _ = fmt.Fprintln(w, "  path   Certify one response and print its tree path")
	_, _ = fmt.Fprintln(w, "  root   Certify a manifest of responses and print the tree root")
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func loadRoutes(path string, cfg *config.Config, stderr io.Writer) ([]config.Route, bool) {
	if path == "" {
		path = cfg.RoutesFile
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --routes is required (or set HTTPCERT_ROUTES)")
		return nil, false
	}
	routes, err := config.LoadRoutes(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, false
	}
	return routes, true
}

// newCertifier builds a certifier that reports through OpenTelemetry as
// configured by cfg. The returned func flushes exporters.
func newCertifier(ctx context.Context, routes []config.Route, cfg *config.Config, opts ...certifier.Option) (*certifier.Certifier, func(), error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTelEnabled
	obsCfg.OTLPEndpoint = cfg.OTelEndpoint
	obsCfg.Insecure = cfg.OTelInsecure

	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			slog.Warn("observability shutdown failed", "error", err)
		}
	}

	opts = append([]certifier.Option{
		certifier.WithObservability(obs),
		certifier.WithWorkers(cfg.Workers),
	}, opts...)
	c, err := certifier.New(routes, opts...)
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return c, shutdown, nil
}
