// Package cel models the default certification policies written as CEL
// expressions, builds them, renders their canonical text and parses that text
// back.
//
// Three policy shapes exist and map one-to-one onto certification variants:
// skip (nothing is certified), response-only and full (request and response).
package cel

import (
	"strconv"
	"strings"
)

// Expression is a default certification policy. The set of implementations is
// closed: *SkipExpression, *ResponseOnlyExpression and *FullExpression.
type Expression interface {
	// String returns the canonical CEL text of the policy.
	String() string
	isExpression()
}

// SkipExpression excludes both the request and the response from certification.
type SkipExpression struct{}

// ResponseOnlyExpression certifies the response and excludes the request.
type ResponseOnlyExpression struct {
	Response ResponseCertification
}

// FullExpression certifies both the request and the response.
type FullExpression struct {
	Request  RequestCertification
	Response ResponseCertification
}

func (*SkipExpression) isExpression()         {}
func (*ResponseOnlyExpression) isExpression() {}
func (*FullExpression) isExpression()         {}

// RequestCertification lists the request headers and query parameters that are
// part of the request hash. The request method and body are always certified.
type RequestCertification struct {
	Headers         []string
	QueryParameters []string
}

// ResponseCertification selects response headers either by inclusion or by
// exclusion. The zero value certifies no headers.
type ResponseCertification struct {
	headers []string
	exclude bool
}

// CertifiedResponseHeaders certifies exactly the named headers.
func CertifiedResponseHeaders(headers ...string) ResponseCertification {
	return ResponseCertification{headers: cloneStrings(headers)}
}

// ResponseHeaderExclusions certifies every header except the named ones.
func ResponseHeaderExclusions(headers ...string) ResponseCertification {
	return ResponseCertification{headers: cloneStrings(headers), exclude: true}
}

// Headers returns the header names of the include or exclude list.
func (rc ResponseCertification) Headers() []string {
	return cloneStrings(rc.headers)
}

// IsExclusion reports whether Headers is an exclude list.
func (rc ResponseCertification) IsExclusion() bool {
	return rc.exclude
}

// Certifies reports whether a response header with the given name is selected
// for certification. Names compare case-insensitively.
func (rc ResponseCertification) Certifies(name string) bool {
	listed := false
	for _, h := range rc.headers {
		if strings.EqualFold(h, name) {
			listed = true
			break
		}
	}
	return listed != rc.exclude
}

// String renders the canonical text of the skip policy.
func (*SkipExpression) String() string {
	return "default_certification(ValidationArgs{no_certification:Empty{}})"
}

// String renders the canonical text of a response-only policy.
func (e *ResponseOnlyExpression) String() string {
	var b strings.Builder
	b.WriteString("default_certification(ValidationArgs{certification:Certification{no_request_certification:Empty{},")
	writeResponse(&b, e.Response)
	b.WriteString("}})")
	return b.String()
}

// String renders the canonical text of a full policy.
func (e *FullExpression) String() string {
	var b strings.Builder
	b.WriteString("default_certification(ValidationArgs{certification:Certification{")
	writeRequest(&b, e.Request)
	writeResponse(&b, e.Response)
	b.WriteString("}})")
	return b.String()
}

func writeRequest(b *strings.Builder, rc RequestCertification) {
	b.WriteString("request_certification:RequestCertification{certified_request_headers:")
	writeList(b, rc.Headers)
	b.WriteString(",certified_query_parameters:")
	writeList(b, rc.QueryParameters)
	b.WriteString("},")
}

func writeResponse(b *strings.Builder, rc ResponseCertification) {
	b.WriteString("response_certification:ResponseCertification{")
	if rc.exclude {
		b.WriteString("response_header_exclusions:")
	} else {
		b.WriteString("certified_response_headers:")
	}
	b.WriteString("ResponseHeaderList{headers:")
	writeList(b, rc.headers)
	b.WriteString("}}")
}

func writeList(b *strings.Builder, items []string) {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(item))
	}
	b.WriteByte(']')
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
