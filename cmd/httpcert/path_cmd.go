package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/przydatek/response-verification/pkg/certifier"
	"github.com/przydatek/response-verification/pkg/config"
	"github.com/przydatek/response-verification/pkg/httpcert"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// headerList collects repeated -H "Name: value" flags.
type headerList []httpcert.HeaderField

func (h *headerList) String() string {
	parts := make([]string, len(*h))
	for i, f := range *h {
		parts[i] = f.Name + ": " + f.Value
	}
	return strings.Join(parts, ", ")
}

func (h *headerList) Set(v string) error {
	name, value, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header must be \"Name: value\", got %q", v)
	}
	*h = append(*h, httpcert.HeaderField{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	return nil
}

// pathOutput is the JSON document printed by `httpcert path`.
type pathOutput struct {
	Route      string   `json:"route"`
	Kind       string   `json:"kind"`
	PolicyHash string   `json:"policy_hash"`
	Path       []string `json:"path"`
}

// runPathCmd implements `httpcert path`.
func runPathCmd(args []string, cfg *config.Config, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("path", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		routesFile    string
		method, url   string
		status        uint
		reqHeaders    headerList
		respHeaders   headerList
		bodyFile      string
		bodyHashInput string
	)
	cmd.StringVar(&routesFile, "routes", "", "Path to the YAML routes file")
	cmd.StringVar(&method, "method", "GET", "Request method")
	cmd.StringVar(&url, "url", "/", "Request URL")
	cmd.UintVar(&status, "status", 200, "Response status code")
	cmd.Var(&reqHeaders, "req-header", "Request header \"Name: value\" (repeatable)")
	cmd.Var(&respHeaders, "H", "Response header \"Name: value\" (repeatable)")
	cmd.StringVar(&bodyFile, "body", "", "File holding the response body")
	cmd.StringVar(&bodyHashInput, "body-hash", "", "Hex SHA-256 of the response body, used instead of --body")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if status > 999 {
		_, _ = fmt.Fprintf(stderr, "Error: invalid status %d\n", status)
		return 2
	}

	routes, ok := loadRoutes(routesFile, cfg, stderr)
	if !ok {
		return 2
	}

	item := certifier.Item{
		Request:  &httpcert.Request{Method: method, URL: url, Headers: reqHeaders},
		Response: &httpcert.Response{StatusCode: uint16(status), Headers: respHeaders},
	}
	if bodyFile != "" {
		body, err := os.ReadFile(bodyFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: read body: %v\n", err)
			return 1
		}
		item.Response.Body = body
	}
	if bodyHashInput != "" {
		h, err := rihash.ParseHash(bodyHashInput)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: --body-hash: %v\n", err)
			return 2
		}
		item.BodyHash = &h
	}

	ctx := context.Background()
	c, shutdown, err := newCertifier(ctx, routes, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer shutdown()

	route, _ := c.Match(url)
	cert, err := c.Certify(ctx, item)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	out := pathOutput{
		Route:      route.Path.String(),
		Kind:       string(cert.Kind()),
		PolicyHash: cert.PolicyHash().String(),
	}
	for _, seg := range httpcert.TreePath(cert) {
		out.Path = append(out.Path, hex.EncodeToString(seg))
	}
	return writeCanonicalJSON(stdout, stderr, out)
}

// writeCanonicalJSON prints v as RFC 8785 canonical JSON.
func writeCanonicalJSON(stdout, stderr io.Writer, v any) int {
	raw, err := json.Marshal(v)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: encode output: %v\n", err)
		return 1
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: canonicalize output: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, string(canonical))
	return 0
}
