package cel

// SkipCertification returns the policy that certifies nothing.
func SkipCertification() *SkipExpression {
	return &SkipExpression{}
}

// ResponseOnlyBuilder assembles a ResponseOnlyExpression.
type ResponseOnlyBuilder struct {
	response ResponseCertification
}

// ResponseOnlyCertification starts a response-only policy. Unless overridden,
// every response header is certified.
func ResponseOnlyCertification() *ResponseOnlyBuilder {
	return &ResponseOnlyBuilder{response: ResponseHeaderExclusions()}
}

// WithResponseCertification sets the response header selection.
func (b *ResponseOnlyBuilder) WithResponseCertification(rc ResponseCertification) *ResponseOnlyBuilder {
	b.response = rc
	return b
}

// Build returns the policy.
func (b *ResponseOnlyBuilder) Build() *ResponseOnlyExpression {
	return &ResponseOnlyExpression{Response: b.response}
}

// FullBuilder assembles a FullExpression.
type FullBuilder struct {
	request  RequestCertification
	response ResponseCertification
}

// FullCertification starts a full policy. Unless overridden, no request
// headers or query parameters are certified and every response header is.
func FullCertification() *FullBuilder {
	return &FullBuilder{response: ResponseHeaderExclusions()}
}

// WithRequestHeaders sets the certified request headers.
func (b *FullBuilder) WithRequestHeaders(headers ...string) *FullBuilder {
	b.request.Headers = cloneStrings(headers)
	return b
}

// WithRequestQueryParameters sets the certified query parameters.
func (b *FullBuilder) WithRequestQueryParameters(params ...string) *FullBuilder {
	b.request.QueryParameters = cloneStrings(params)
	return b
}

// WithResponseCertification sets the response header selection.
func (b *FullBuilder) WithResponseCertification(rc ResponseCertification) *FullBuilder {
	b.response = rc
	return b
}

// Build returns the policy. The builder may be reused afterwards.
func (b *FullBuilder) Build() *FullExpression {
	return &FullExpression{
		Request: RequestCertification{
			Headers:         cloneStrings(b.request.Headers),
			QueryParameters: cloneStrings(b.request.QueryParameters),
		},
		Response: b.response,
	}
}
