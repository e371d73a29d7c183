package httpcert

import (
	"errors"
	"fmt"
)

// Deterministic error codes for certification failures.
const (
	ErrCodeRequestHashingFailed = "ERR_REQUEST_HASHING_FAILED"
)

// Causes reported by RequestHash.
var (
	ErrMalformedURL  = errors.New("malformed request url")
	ErrInvalidMethod = errors.New("invalid request method")
)

// CertificationError is a typed certification failure. Err carries the cause
// and is reachable through errors.Is and errors.As.
type CertificationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *CertificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CertificationError) Unwrap() error {
	return e.Err
}

// IsRequestHashingFailed reports whether err is a request hashing failure
// raised while building a full certification.
func IsRequestHashingFailed(err error) bool {
	var cerr *CertificationError
	return errors.As(err, &cerr) && cerr.Code == ErrCodeRequestHashingFailed
}
