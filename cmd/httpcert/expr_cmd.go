package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/przydatek/response-verification/pkg/certifier"
	"github.com/przydatek/response-verification/pkg/config"
)

// runExprCmd implements `httpcert expr`.
func runExprCmd(args []string, cfg *config.Config, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("expr", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var routesFile, url string
	cmd.StringVar(&routesFile, "routes", "", "Path to the YAML routes file")
	cmd.StringVar(&url, "path", "/", "Request path or URL to resolve")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	routes, ok := loadRoutes(routesFile, cfg, stderr)
	if !ok {
		return 2
	}

	c, shutdown, err := newCertifier(context.Background(), routes, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer shutdown()
	route, ok := c.Match(url)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Error: %v: %s\n", certifier.ErrNoRoute, url)
		return 1
	}

	_, _ = fmt.Fprintln(stdout, route.Expression.String())
	return 0
}
