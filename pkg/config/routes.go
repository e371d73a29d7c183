package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/certtree"
)

// Certification levels accepted in route files.
const (
	LevelSkip         = "skip"
	LevelResponseOnly = "response_only"
	LevelFull         = "full"
)

// RoutesFile is the YAML document listing route policies.
type RoutesFile struct {
	Routes []RouteSpec `yaml:"routes" json:"routes"`
}

// RouteSpec declares the certification policy of one URL path or prefix.
// A policy is given either by Certification plus header/parameter lists or as
// raw CEL text in Expression.
type RouteSpec struct {
	Path                     string   `yaml:"path" json:"path"`
	Wildcard                 bool     `yaml:"wildcard,omitempty" json:"wildcard,omitempty"`
	Certification            string   `yaml:"certification,omitempty" json:"certification,omitempty"`
	Expression               string   `yaml:"expression,omitempty" json:"expression,omitempty"`
	RequestHeaders           []string `yaml:"request_headers,omitempty" json:"request_headers,omitempty"`
	QueryParameters          []string `yaml:"query_parameters,omitempty" json:"query_parameters,omitempty"`
	ResponseHeaders          []string `yaml:"response_headers,omitempty" json:"response_headers,omitempty"`
	ResponseHeaderExclusions []string `yaml:"response_header_exclusions,omitempty" json:"response_header_exclusions,omitempty"`
	// Fallback lets a full route degrade to response-only certification when
	// the request cannot be hashed.
	Fallback bool `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// Route is a compiled route policy.
type Route struct {
	Path       certtree.URLPath
	Expression cel.Expression
	Fallback   bool
}

// RouteError reports an invalid route entry.
type RouteError struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route %d (%s): %s", e.Index, e.Path, e.Message)
}

// LoadRoutes reads and compiles a YAML routes file.
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load routes %q: %w", path, err)
	}
	return ParseRoutes(data)
}

// ParseRoutes compiles a YAML routes document.
func ParseRoutes(data []byte) ([]Route, error) {
	var file RoutesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}

	routes := make([]Route, 0, len(file.Routes))
	seen := make(map[string]int, len(file.Routes))
	for i, spec := range file.Routes {
		route, err := spec.Compile()
		if err != nil {
			return nil, &RouteError{Index: i, Path: spec.Path, Message: err.Error()}
		}
		if prev, dup := seen[route.Path.String()]; dup {
			return nil, &RouteError{Index: i, Path: spec.Path, Message: fmt.Sprintf("duplicates route %d", prev)}
		}
		seen[route.Path.String()] = i
		routes = append(routes, route)
	}
	return routes, nil
}

// Compile validates the route and builds its policy expression.
func (s RouteSpec) Compile() (Route, error) {
	if s.Path == "" {
		return Route{}, fmt.Errorf("path is required")
	}

	path := certtree.Exact(s.Path)
	if s.Wildcard {
		path = certtree.Wildcard(s.Path)
	}

	expr, err := s.expression()
	if err != nil {
		return Route{}, err
	}

	if s.Fallback {
		if _, ok := expr.(*cel.FullExpression); !ok {
			return Route{}, fmt.Errorf("fallback is only meaningful for full certification")
		}
	}

	return Route{Path: path, Expression: expr, Fallback: s.Fallback}, nil
}

func (s RouteSpec) expression() (cel.Expression, error) {
	if s.Expression != "" {
		if s.Certification != "" || s.hasLists() {
			return nil, fmt.Errorf("expression cannot be combined with certification fields")
		}
		return cel.Parse(s.Expression)
	}

	if s.ResponseHeaders != nil && s.ResponseHeaderExclusions != nil {
		return nil, fmt.Errorf("response_headers and response_header_exclusions are mutually exclusive")
	}
	response := cel.ResponseHeaderExclusions(s.ResponseHeaderExclusions...)
	if s.ResponseHeaders != nil {
		response = cel.CertifiedResponseHeaders(s.ResponseHeaders...)
	}

	switch s.Certification {
	case LevelSkip:
		if s.hasLists() {
			return nil, fmt.Errorf("skip certification takes no header or parameter lists")
		}
		return cel.SkipCertification(), nil
	case LevelResponseOnly:
		if s.RequestHeaders != nil || s.QueryParameters != nil {
			return nil, fmt.Errorf("response_only certification takes no request lists")
		}
		return cel.ResponseOnlyCertification().WithResponseCertification(response).Build(), nil
	case LevelFull:
		return cel.FullCertification().
			WithRequestHeaders(s.RequestHeaders...).
			WithRequestQueryParameters(s.QueryParameters...).
			WithResponseCertification(response).
			Build(), nil
	case "":
		return nil, fmt.Errorf("certification or expression is required")
	default:
		return nil, fmt.Errorf("unknown certification %q", s.Certification)
	}
}

func (s RouteSpec) hasLists() bool {
	return s.RequestHeaders != nil || s.QueryParameters != nil ||
		s.ResponseHeaders != nil || s.ResponseHeaderExclusions != nil
}
