package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/przydatek/response-verification/pkg/cel"
)

const sampleRoutes = `
routes:
  - path: /index.html
    certification: full
    request_headers: [If-Match]
    query_parameters: [foo, bar, baz]
    response_headers: [ETag, Cache-Control]
    fallback: true
  - path: /assets
    wildcard: true
    certification: response_only
    response_header_exclusions: [Date]
  - path: /health
    certification: skip
  - path: /raw
    expression: 'default_certification(ValidationArgs{no_certification:Empty{}})'
`

func TestParseRoutes(t *testing.T) {
	routes, err := ParseRoutes([]byte(sampleRoutes))
	require.NoError(t, err)
	require.Len(t, routes, 4)

	full, ok := routes[0].Expression.(*cel.FullExpression)
	require.True(t, ok)
	assert.Equal(t, "/index.html", routes[0].Path.String())
	assert.True(t, routes[0].Fallback)
	want := cel.FullCertification().
		WithRequestHeaders("If-Match").
		WithRequestQueryParameters("foo", "bar", "baz").
		WithResponseCertification(cel.CertifiedResponseHeaders("ETag", "Cache-Control")).
		Build()
	assert.Equal(t, want.String(), full.String())

	assert.True(t, routes[1].Path.IsWildcard())
	ro, ok := routes[1].Expression.(*cel.ResponseOnlyExpression)
	require.True(t, ok)
	assert.True(t, ro.Response.IsExclusion())
	assert.Equal(t, []string{"Date"}, ro.Response.Headers())

	assert.IsType(t, &cel.SkipExpression{}, routes[2].Expression)
	assert.IsType(t, &cel.SkipExpression{}, routes[3].Expression)
}

func TestParseRoutes_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"missing path", "routes:\n  - certification: skip\n", "path is required"},
		{"missing level", "routes:\n  - path: /\n", "certification or expression is required"},
		{"unknown level", "routes:\n  - path: /\n    certification: partial\n", "unknown certification"},
		{"both header lists", "routes:\n  - path: /\n    certification: response_only\n    response_headers: [a]\n    response_header_exclusions: [b]\n", "mutually exclusive"},
		{"skip with lists", "routes:\n  - path: /\n    certification: skip\n    response_headers: [a]\n", "takes no header"},
		{"response only with request lists", "routes:\n  - path: /\n    certification: response_only\n    request_headers: [a]\n", "no request lists"},
		{"fallback on skip", "routes:\n  - path: /\n    certification: skip\n    fallback: true\n", "fallback"},
		{"expression plus level", "routes:\n  - path: /\n    certification: skip\n    expression: x\n", "cannot be combined"},
		{"bad expression", "routes:\n  - path: /\n    expression: 'nope('\n", "ERR_CEL_SYNTAX"},
		{"duplicate", "routes:\n  - path: /a\n    certification: skip\n  - path: /a\n    certification: skip\n", "duplicates route 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutes([]byte(tt.yaml))
			require.Error(t, err)
			var rerr *RouteError
			require.ErrorAs(t, err, &rerr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseRoutes_ExactAndWildcardMayShareAPath(t *testing.T) {
	routes, err := ParseRoutes([]byte("routes:\n  - path: /a\n    certification: skip\n  - path: /a\n    wildcard: true\n    certification: skip\n"))
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestParseRoutes_BadYAML(t *testing.T) {
	_, err := ParseRoutes([]byte("routes: [\n"))
	assert.ErrorContains(t, err, "parse routes")
}

func TestLoadRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRoutes), 0o600))

	routes, err := LoadRoutes(path)
	require.NoError(t, err)
	assert.Len(t, routes, 4)

	_, err = LoadRoutes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load routes")
}
