package httpcert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/rihash"
)

func TestRequestHash_CertifiedHeadersAndQuery(t *testing.T) {
	req := &Request{
		Method: "GET",
		URL:    "/index.html?foo=1&skip=2&bar=3&Foo=4&baz",
		Headers: []HeaderField{
			{Name: "If-Match", Value: `"etag-1"`},
			{Name: "Accept", Value: "text/html"},
		},
		Body: []byte("payload"),
	}
	rc := cel.RequestCertification{
		Headers:         []string{"if-match"},
		QueryParameters: []string{"foo", "bar", "baz"},
	}

	queryHash := rihash.Sum([]byte("foo=1&bar=3&baz"))
	want := rihash.Concat(
		rihash.HashPairs([]rihash.Pair{
			{Key: "if-match", Value: rihash.String(`"etag-1"`)},
			{Key: ":ic-cert-method", Value: rihash.String("GET")},
			{Key: ":ic-cert-query", Value: rihash.Bytes(queryHash[:])},
		}),
		rihash.Sum([]byte("payload")),
	)

	got, err := RequestHash(req, rc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRequestHash_MissingCertifiedHeaderIsNotAnError(t *testing.T) {
	rc := cel.RequestCertification{Headers: []string{"If-Match"}}
	got, err := RequestHash(&Request{Method: "GET", URL: "/"}, rc)
	require.NoError(t, err)

	want := rihash.Concat(
		rihash.HashPairs([]rihash.Pair{{Key: ":ic-cert-method", Value: rihash.String("GET")}}),
		rihash.Sum(nil),
	)
	assert.Equal(t, want, got)
}

func TestRequestHash_QueryPresenceIsCertified(t *testing.T) {
	rc := cel.RequestCertification{QueryParameters: []string{"foo"}}

	noQuery, err := RequestHash(&Request{Method: "GET", URL: "/a"}, rc)
	require.NoError(t, err)
	uncertifiedQuery, err := RequestHash(&Request{Method: "GET", URL: "/a?other=1"}, rc)
	require.NoError(t, err)
	otherValue, err := RequestHash(&Request{Method: "GET", URL: "/a?other=2"}, rc)
	require.NoError(t, err)

	assert.NotEqual(t, noQuery, uncertifiedQuery)
	assert.Equal(t, uncertifiedQuery, otherValue)
}

func TestRequestHash_MethodAndBodyAlwaysCertified(t *testing.T) {
	var rc cel.RequestCertification
	get, err := RequestHash(&Request{Method: "GET", URL: "/"}, rc)
	require.NoError(t, err)
	post, err := RequestHash(&Request{Method: "POST", URL: "/"}, rc)
	require.NoError(t, err)
	withBody, err := RequestHash(&Request{Method: "GET", URL: "/", Body: []byte("x")}, rc)
	require.NoError(t, err)

	assert.NotEqual(t, get, post)
	assert.NotEqual(t, get, withBody)
}

func TestRequestHash_PathIsNotCertified(t *testing.T) {
	var rc cel.RequestCertification
	a, err := RequestHash(&Request{Method: "GET", URL: "/a"}, rc)
	require.NoError(t, err)
	b, err := RequestHash(&Request{Method: "GET", URL: "/b"}, rc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResponseHash_HeaderSelection(t *testing.T) {
	resp := &Response{
		StatusCode: 200,
		Headers: []HeaderField{
			{Name: "ETag", Value: "abc"},
			{Name: "Date", Value: "Mon, 19 Oct 2026 00:00:00 GMT"},
			{Name: "IC-Certificate", Value: "certificate=:x:"},
			{Name: "IC-CertificateExpression", Value: "default_certification(...)"},
		},
		Body: []byte("body"),
	}

	tests := []struct {
		name  string
		rc    cel.ResponseCertification
		pairs []rihash.Pair
	}{
		{
			name: "include list",
			rc:   cel.CertifiedResponseHeaders("etag"),
			pairs: []rihash.Pair{
				{Key: "etag", Value: rihash.String("abc")},
				{Key: "ic-certificateexpression", Value: rihash.String("default_certification(...)")},
			},
		},
		{
			name: "exclude list",
			rc:   cel.ResponseHeaderExclusions("ETag", "IC-CertificateExpression"),
			pairs: []rihash.Pair{
				{Key: "date", Value: rihash.String("Mon, 19 Oct 2026 00:00:00 GMT")},
				{Key: "ic-certificateexpression", Value: rihash.String("default_certification(...)")},
			},
		},
		{
			name: "exclude nothing",
			rc:   cel.ResponseHeaderExclusions(),
			pairs: []rihash.Pair{
				{Key: "etag", Value: rihash.String("abc")},
				{Key: "date", Value: rihash.String("Mon, 19 Oct 2026 00:00:00 GMT")},
				{Key: "ic-certificateexpression", Value: rihash.String("default_certification(...)")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := append(tt.pairs, rihash.Pair{Key: ":ic-cert-status", Value: rihash.Number(200)})
			want := rihash.Concat(rihash.HashPairs(pairs), rihash.Sum([]byte("body")))
			assert.Equal(t, want, ResponseHash(resp, tt.rc, nil))
		})
	}
}

func TestResponseHash_StatusIsCertified(t *testing.T) {
	rc := cel.ResponseHeaderExclusions()
	ok := ResponseHash(&Response{StatusCode: 200}, rc, nil)
	notFound := ResponseHash(&Response{StatusCode: 404}, rc, nil)
	assert.NotEqual(t, ok, notFound)
}

func TestResponseHash_UpgradeIsNotCertified(t *testing.T) {
	upgrade := true
	rc := cel.ResponseHeaderExclusions()
	assert.Equal(t,
		ResponseHash(&Response{StatusCode: 200}, rc, nil),
		ResponseHash(&Response{StatusCode: 200, Upgrade: &upgrade}, rc, nil))
}

func TestIsToken(t *testing.T) {
	for _, m := range []string{"GET", "POST", "M-SEARCH", "x~y"} {
		assert.True(t, isToken(m), m)
	}
	for _, m := range []string{"", "GE T", "GET\n", "G(E)T", "ÄÖ"} {
		assert.False(t, isToken(m), m)
	}
}
