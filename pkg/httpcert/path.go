package httpcert

// TreePath encodes c as the ordered byte segments used as its certification
// tree key:
//
//	Skip:         [policy_hash]
//	ResponseOnly: [policy_hash, "", response_hash]
//	Full:         [policy_hash, request_hash, response_hash]
//
// The empty segment keeps response-only paths as deep as full ones while
// remaining distinguishable from any 32-byte request hash. Every segment is
// freshly allocated.
func TreePath(c Certification) [][]byte {
	return c.appendPath(make([][]byte, 0, 3))
}

func (c Skip) appendPath(path [][]byte) [][]byte {
	return append(path, c.policyHash.Bytes())
}

func (c ResponseOnly) appendPath(path [][]byte) [][]byte {
	return append(path, c.policyHash.Bytes(), []byte{}, c.responseHash.Bytes())
}

func (c Full) appendPath(path [][]byte) [][]byte {
	return append(path, c.policyHash.Bytes(), c.requestHash.Bytes(), c.responseHash.Bytes())
}
