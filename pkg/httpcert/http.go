// Package httpcert builds certification descriptors for HTTP request and
// response pairs and encodes them into the byte paths used as certification
// tree keys.
package httpcert

// HeaderField is a single HTTP header. Order and duplicates are preserved.
type HeaderField struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Request is the subset of an HTTP request that can be certified.
type Request struct {
	Method  string        `json:"method" yaml:"method"`
	URL     string        `json:"url" yaml:"url"`
	Headers []HeaderField `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    []byte        `json:"body,omitempty" yaml:"body,omitempty"`
}

// Response is the subset of an HTTP response that can be certified.
type Response struct {
	StatusCode uint16        `json:"status_code" yaml:"status_code"`
	Headers    []HeaderField `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       []byte        `json:"body,omitempty" yaml:"body,omitempty"`
	// Upgrade is carried for gateways and never certified.
	Upgrade *bool `json:"upgrade,omitempty" yaml:"upgrade,omitempty"`
}

// Header names with fixed certification treatment.
const (
	CertificateHeaderName           = "IC-Certificate"
	CertificateExpressionHeaderName = "IC-CertificateExpression"
)

// Pseudo headers injected into the hashed header maps.
const (
	RequestMethodPseudoHeader  = ":ic-cert-method"
	RequestQueryPseudoHeader   = ":ic-cert-query"
	ResponseStatusPseudoHeader = ":ic-cert-status"
)
