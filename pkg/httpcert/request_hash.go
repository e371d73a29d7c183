package httpcert

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// RequestHash hashes the parts of req selected by rc: the certified headers,
// the method, the certified query parameters and the body.
//
// It fails with ErrMalformedURL when the URL cannot be parsed and with
// ErrInvalidMethod when the method is not an HTTP token. Certified headers or
// query parameters missing from the request are left out of the hash.
func RequestHash(req *Request, rc cel.RequestCertification) (rihash.Hash, error) {
	if !isToken(req.Method) {
		return rihash.Hash{}, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return rihash.Hash{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	pairs := filterRequestHeaders(req.Headers, rc.Headers)
	pairs = append(pairs, rihash.Pair{Key: RequestMethodPseudoHeader, Value: rihash.String(req.Method)})

	if u.RawQuery != "" || u.ForceQuery {
		query := filterQuery(u.RawQuery, rc.QueryParameters)
		queryHash := rihash.Sum([]byte(query))
		pairs = append(pairs, rihash.Pair{Key: RequestQueryPseudoHeader, Value: rihash.Bytes(queryHash[:])})
	}

	return rihash.Concat(rihash.HashPairs(pairs), rihash.Sum(req.Body)), nil
}

func filterRequestHeaders(headers []HeaderField, certified []string) []rihash.Pair {
	var pairs []rihash.Pair
	for _, h := range headers {
		if !containsFold(certified, h.Name) {
			continue
		}
		pairs = append(pairs, rihash.Pair{Key: strings.ToLower(h.Name), Value: rihash.String(h.Value)})
	}
	return pairs
}

// filterQuery keeps the raw query fragments whose name is certified, in their
// original order and encoding.
func filterQuery(rawQuery string, certified []string) string {
	var kept []string
	for _, fragment := range strings.Split(rawQuery, "&") {
		name, _, _ := strings.Cut(fragment, "=")
		for _, p := range certified {
			if name == p {
				kept = append(kept, fragment)
				break
			}
		}
	}
	return strings.Join(kept, "&")
}

func containsFold(list []string, name string) bool {
	for _, item := range list {
		if strings.EqualFold(item, name) {
			return true
		}
	}
	return false
}

// isToken reports whether s is a non-empty RFC 9110 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
