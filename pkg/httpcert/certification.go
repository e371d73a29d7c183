package httpcert

import (
	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// Kind names a certification variant.
type Kind string

const (
	KindSkip         Kind = "skip"
	KindResponseOnly Kind = "response_only"
	KindFull         Kind = "full"
)

// Certification is a certified request/response descriptor. Its
// implementations are exactly Skip, ResponseOnly and Full; each is an
// immutable value whose pointer also satisfies the interface, so a
// certification can be handed over either by value or by reference.
type Certification interface {
	// Kind reports the variant.
	Kind() Kind
	// PolicyHash is the hash of the canonical text of the policy that
	// produced the certification.
	PolicyHash() rihash.Hash
	appendPath(path [][]byte) [][]byte
}

// Skip excludes both the request and the response from certification.
type Skip struct {
	policyHash rihash.Hash
}

// ResponseOnly certifies the response and excludes the request.
type ResponseOnly struct {
	policyHash   rihash.Hash
	responseHash rihash.Hash
}

// Full certifies both the request and the response.
type Full struct {
	policyHash   rihash.Hash
	requestHash  rihash.Hash
	responseHash rihash.Hash
}

var (
	_ Certification = Skip{}
	_ Certification = ResponseOnly{}
	_ Certification = Full{}
	_ Certification = (*Full)(nil)
)

// NewSkip builds the certification for routes that offer no guarantee.
func NewSkip() Skip {
	return Skip{policyHash: policyHash(cel.SkipCertification())}
}

// NewResponseOnly certifies resp under expr. A non-nil bodyHash replaces the
// hash of resp.Body, letting callers certify large bodies hashed elsewhere.
func NewResponseOnly(expr *cel.ResponseOnlyExpression, resp *Response, bodyHash *rihash.Hash) ResponseOnly {
	return ResponseOnly{
		policyHash:   policyHash(expr),
		responseHash: ResponseHash(resp, expr.Response, bodyHash),
	}
}

// NewFull certifies req and resp under expr. It fails with a
// *CertificationError coded ErrCodeRequestHashingFailed when req cannot be
// hashed under the request rules of expr; the returned Full is then the zero
// value and must not be used.
func NewFull(expr *cel.FullExpression, req *Request, resp *Response, bodyHash *rihash.Hash) (Full, error) {
	requestHash, err := RequestHash(req, expr.Request)
	if err != nil {
		return Full{}, &CertificationError{
			Code:    ErrCodeRequestHashingFailed,
			Message: "request cannot be hashed under the policy's request rules",
			Err:     err,
		}
	}

	return Full{
		policyHash:   policyHash(expr),
		requestHash:  requestHash,
		responseHash: ResponseHash(resp, expr.Response, bodyHash),
	}, nil
}

func policyHash(expr cel.Expression) rihash.Hash {
	return rihash.Sum([]byte(expr.String()))
}

// Kind implements Certification.
func (Skip) Kind() Kind { return KindSkip }

// PolicyHash implements Certification.
func (c Skip) PolicyHash() rihash.Hash { return c.policyHash }

// Kind implements Certification.
func (ResponseOnly) Kind() Kind { return KindResponseOnly }

// PolicyHash implements Certification.
func (c ResponseOnly) PolicyHash() rihash.Hash { return c.policyHash }

// ResponseHash returns the hash of the certified response fields.
func (c ResponseOnly) ResponseHash() rihash.Hash { return c.responseHash }

// Kind implements Certification.
func (Full) Kind() Kind { return KindFull }

// PolicyHash implements Certification.
func (c Full) PolicyHash() rihash.Hash { return c.policyHash }

// RequestHash returns the hash of the certified request fields.
func (c Full) RequestHash() rihash.Hash { return c.requestHash }

// ResponseHash returns the hash of the certified response fields.
func (c Full) ResponseHash() rihash.Hash { return c.responseHash }
