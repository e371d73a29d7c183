package httpcert

import (
	"strings"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// ResponseHash hashes the status code, the headers selected by rc and the
// body of resp. When bodyHash is non-nil it is used verbatim in place of the
// hash of resp.Body. The IC-Certificate header is never certified and the
// IC-CertificateExpression header always is.
func ResponseHash(resp *Response, rc cel.ResponseCertification, bodyHash *rihash.Hash) rihash.Hash {
	var body rihash.Hash
	if bodyHash != nil {
		body = *bodyHash
	} else {
		body = rihash.Sum(resp.Body)
	}
	return rihash.Concat(ResponseHeadersHash(resp, rc), body)
}

// ResponseHeadersHash hashes the certified headers and the status code of resp.
func ResponseHeadersHash(resp *Response, rc cel.ResponseCertification) rihash.Hash {
	pairs := filterResponseHeaders(resp.Headers, rc)
	pairs = append(pairs, rihash.Pair{Key: ResponseStatusPseudoHeader, Value: rihash.Number(resp.StatusCode)})
	return rihash.HashPairs(pairs)
}

func filterResponseHeaders(headers []HeaderField, rc cel.ResponseCertification) []rihash.Pair {
	var pairs []rihash.Pair
	for _, h := range headers {
		switch {
		case strings.EqualFold(h.Name, CertificateHeaderName):
			continue
		case strings.EqualFold(h.Name, CertificateExpressionHeaderName):
		case !rc.Certifies(h.Name):
			continue
		}
		pairs = append(pairs, rihash.Pair{Key: strings.ToLower(h.Name), Value: rihash.String(h.Value)})
	}
	return pairs
}
