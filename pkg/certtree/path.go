package certtree

import "strings"

// Path terminators placed after the URL segments of a tree key.
const (
	ExactTerminator    = "<$>"
	WildcardTerminator = "<*>"
)

// URLPath is the URL part of a tree key: either a single exact path or every
// path below a prefix.
type URLPath struct {
	path     string
	wildcard bool
}

// Exact matches only path itself.
func Exact(path string) URLPath {
	return URLPath{path: normalize(path)}
}

// Wildcard matches prefix and every path below it.
func Wildcard(prefix string) URLPath {
	return URLPath{path: normalize(prefix), wildcard: true}
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// IsWildcard reports whether p matches a whole subtree.
func (p URLPath) IsWildcard() bool { return p.wildcard }

// String returns the path, with a trailing "*" for wildcards.
func (p URLPath) String() string {
	if p.wildcard {
		return p.path + "*"
	}
	return p.path
}

// Segments returns the URL segments of p followed by its terminator. The
// leading "/" yields no segment of its own, so "/" maps to ["", "<$>"] and
// "/a/b" to ["a", "b", "<$>"].
func (p URLPath) Segments() [][]byte {
	parts := strings.Split(p.path, "/")[1:]
	out := make([][]byte, 0, len(parts)+1)
	for _, part := range parts {
		out = append(out, []byte(part))
	}
	if p.wildcard {
		return append(out, []byte(WildcardTerminator))
	}
	return append(out, []byte(ExactTerminator))
}

// Matches reports whether a request path is covered by p. Wildcards match on
// whole segments: "/assets" covers "/assets" and "/assets/app.js" but not
// "/assets2".
func (p URLPath) Matches(requestPath string) bool {
	requestPath = normalize(requestPath)
	if !p.wildcard {
		return requestPath == p.path
	}
	if requestPath == p.path {
		return true
	}
	if strings.HasSuffix(p.path, "/") {
		return strings.HasPrefix(requestPath, p.path)
	}
	return strings.HasPrefix(requestPath, p.path+"/")
}
