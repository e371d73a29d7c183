package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/przydatek/response-verification/pkg/certifier"
	"github.com/przydatek/response-verification/pkg/certtree"
	"github.com/przydatek/response-verification/pkg/config"
	"github.com/przydatek/response-verification/pkg/httpcert"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// manifest lists request/response pairs to certify.
type manifest struct {
	Entries []manifestEntry `yaml:"entries"`
}

type manifestEntry struct {
	Method          string                 `yaml:"method"`
	URL             string                 `yaml:"url"`
	RequestHeaders  []httpcert.HeaderField `yaml:"request_headers"`
	Status          uint16                 `yaml:"status"`
	ResponseHeaders []httpcert.HeaderField `yaml:"response_headers"`
	Body            string                 `yaml:"body"`
	BodyHash        string                 `yaml:"body_hash"`
}

func (e manifestEntry) item() (certifier.Item, error) {
	method := e.Method
	if method == "" {
		method = "GET"
	}
	status := e.Status
	if status == 0 {
		status = 200
	}
	item := certifier.Item{
		Request:  &httpcert.Request{Method: method, URL: e.URL, Headers: e.RequestHeaders},
		Response: &httpcert.Response{StatusCode: status, Headers: e.ResponseHeaders, Body: []byte(e.Body)},
	}
	if e.BodyHash != "" {
		h, err := rihash.ParseHash(e.BodyHash)
		if err != nil {
			return item, err
		}
		item.BodyHash = &h
	}
	return item, nil
}

// runRootCmd implements `httpcert root`.
func runRootCmd(args []string, cfg *config.Config, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("root", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var routesFile, manifestFile string
	cmd.StringVar(&routesFile, "routes", "", "Path to the YAML routes file")
	cmd.StringVar(&manifestFile, "manifest", "", "Path to the YAML manifest of responses (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if manifestFile == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --manifest is required")
		return 2
	}

	routes, ok := loadRoutes(routesFile, cfg, stderr)
	if !ok {
		return 2
	}

	data, err := os.ReadFile(manifestFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read manifest: %v\n", err)
		return 1
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: parse manifest: %v\n", err)
		return 1
	}

	items := make([]certifier.Item, len(m.Entries))
	for i, e := range m.Entries {
		items[i], err = e.item()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: entry %d: %v\n", i, err)
			return 1
		}
	}

	tree := certtree.New()
	ctx := context.Background()
	c, shutdown, err := newCertifier(ctx, routes, cfg, certifier.WithTree(tree))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer shutdown()

	failed := 0
	for i, o := range c.CertifyBatch(ctx, items) {
		if o.Err != nil {
			failed++
			_, _ = fmt.Fprintf(stderr, "entry %d (%s): %v\n", i, items[i].Request.URL, o.Err)
		}
	}

	_, _ = fmt.Fprintln(stdout, tree.RootHash().String())
	if failed > 0 {
		_, _ = fmt.Fprintf(stderr, "Error: %d of %d entries failed\n", failed, len(items))
		return 1
	}
	return 0
}
