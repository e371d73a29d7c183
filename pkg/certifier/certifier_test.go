package certifier

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/certtree"
	"github.com/przydatek/response-verification/pkg/config"
	"github.com/przydatek/response-verification/pkg/httpcert"
	"github.com/przydatek/response-verification/pkg/rihash"
)

const testRoutes = `
routes:
  - path: /index.html
    certification: full
    request_headers: [If-Match]
    query_parameters: [foo, bar, baz]
    response_headers: [ETag, Cache-Control]
  - path: /api
    wildcard: true
    certification: full
    response_headers: [Content-Type]
    fallback: true
  - path: /api/public
    wildcard: true
    certification: response_only
  - path: /
    wildcard: true
    certification: skip
`

func newTestCertifier(t *testing.T, opts ...Option) *Certifier {
	t.Helper()
	routes, err := config.ParseRoutes([]byte(testRoutes))
	require.NoError(t, err)
	c, err := New(routes, opts...)
	require.NoError(t, err)
	return c
}

func get(url string) Item {
	return Item{
		Request:  &httpcert.Request{Method: "GET", URL: url},
		Response: &httpcert.Response{StatusCode: 200, Body: []byte("ok")},
	}
}

func TestMatch(t *testing.T) {
	c := newTestCertifier(t)

	tests := []struct {
		url  string
		want string
	}{
		{"/index.html", "/index.html"},
		{"/index.html?foo=1", "/index.html"},
		{"/api/users", "/api*"},
		{"/api/public/logo.png", "/api/public*"},
		{"/other", "/*"},
		{"/", "/*"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			r, ok := c.Match(tt.url)
			require.True(t, ok)
			assert.Equal(t, tt.want, r.Path.String())
		})
	}
}

func TestMatch_NoRoute(t *testing.T) {
	routes, err := config.ParseRoutes([]byte("routes:\n  - path: /only\n    certification: skip\n"))
	require.NoError(t, err)
	c, err := New(routes)
	require.NoError(t, err)

	_, ok := c.Match("/elsewhere")
	assert.False(t, ok)

	_, err = c.Certify(context.Background(), get("/elsewhere"))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestCertify_Full(t *testing.T) {
	c := newTestCertifier(t)
	item := get("/index.html?foo=1&qux=2")

	cert, err := c.Certify(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, httpcert.KindFull, cert.Kind())

	expr := cel.FullCertification().
		WithRequestHeaders("If-Match").
		WithRequestQueryParameters("foo", "bar", "baz").
		WithResponseCertification(cel.CertifiedResponseHeaders("ETag", "Cache-Control")).
		Build()
	want, err := httpcert.NewFull(expr, item.Request, item.Response, nil)
	require.NoError(t, err)
	assert.Equal(t, httpcert.TreePath(want), httpcert.TreePath(cert))
}

func TestCertify_ResponseOnlyAndSkip(t *testing.T) {
	c := newTestCertifier(t)

	ro, err := c.Certify(context.Background(), get("/api/public/x"))
	require.NoError(t, err)
	assert.Equal(t, httpcert.KindResponseOnly, ro.Kind())
	assert.Len(t, httpcert.TreePath(ro), 3)

	skip, err := c.Certify(context.Background(), get("/robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, httpcert.KindSkip, skip.Kind())
	assert.Equal(t, httpcert.TreePath(httpcert.NewSkip()), httpcert.TreePath(skip))
}

func TestCertify_BodyHashOverride(t *testing.T) {
	c := newTestCertifier(t)
	item := get("/api/public/big.bin")
	digest := rihash.Sum(item.Response.Body)

	a, err := c.Certify(context.Background(), item)
	require.NoError(t, err)

	item.Response = &httpcert.Response{StatusCode: 200}
	item.BodyHash = &digest
	b, err := c.Certify(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, httpcert.TreePath(a), httpcert.TreePath(b))
}

func TestCertify_FailureWithoutFallback(t *testing.T) {
	c := newTestCertifier(t)
	item := get("/index.html")
	item.Request.Method = ""

	cert, err := c.Certify(context.Background(), item)
	require.Error(t, err)
	assert.Nil(t, cert)
	assert.True(t, httpcert.IsRequestHashingFailed(err))
	assert.ErrorIs(t, err, httpcert.ErrInvalidMethod)
}

func TestCertify_FallbackToResponseOnly(t *testing.T) {
	c := newTestCertifier(t)
	item := get("/api/users")
	item.Request.Method = "BAD METHOD"

	cert, err := c.Certify(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, httpcert.KindResponseOnly, cert.Kind())

	fallback := cel.ResponseOnlyCertification().
		WithResponseCertification(cel.CertifiedResponseHeaders("Content-Type")).
		Build()
	want := httpcert.NewResponseOnly(fallback, item.Response, nil)
	assert.Equal(t, httpcert.TreePath(want), httpcert.TreePath(cert))
}

func TestCertify_IndexesIntoTree(t *testing.T) {
	tree := certtree.New()
	c := newTestCertifier(t, WithTree(tree))
	assert.Same(t, tree, c.Tree())

	cert, err := c.Certify(context.Background(), get("/index.html"))
	require.NoError(t, err)

	assert.True(t, tree.Has(certtree.Entry{Path: certtree.Exact("/index.html"), Certification: cert}))
	assert.Equal(t, 1, tree.Len())
}

func TestCertifyBatch(t *testing.T) {
	tree := certtree.New()
	c := newTestCertifier(t, WithTree(tree), WithWorkers(4))

	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, get(fmt.Sprintf("/api/public/%d", i)))
	}
	bad := get("/index.html")
	bad.Request.URL = "/index.html?%zz"
	bad.Request.Method = ""
	items = append(items, bad)

	outcomes := c.CertifyBatch(context.Background(), items)
	require.Len(t, outcomes, len(items))

	for i := 0; i < 20; i++ {
		require.NoError(t, outcomes[i].Err)
		assert.Equal(t, httpcert.KindResponseOnly, outcomes[i].Certification.Kind())
		assert.Equal(t, "/api/public*", outcomes[i].Route.Path.String())
	}
	assert.Error(t, outcomes[20].Err)
	assert.Nil(t, outcomes[20].Certification)

	// Identical responses under one wildcard route share a single tree entry.
	assert.Equal(t, 1, tree.Len())
}

func TestCertifyBatch_Cancelled(t *testing.T) {
	c := newTestCertifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := c.CertifyBatch(ctx, []Item{get("/"), get("/a")})
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestNew_WithWorkersIgnoresNonPositive(t *testing.T) {
	c := newTestCertifier(t, WithWorkers(0))
	assert.Positive(t, c.workers)
}
