package cel

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Deterministic error codes for policy parsing.
const (
	ErrCodeSyntax = "ERR_CEL_SYNTAX"
	ErrCodeShape  = "ERR_CEL_SHAPE"
)

// ParseError is returned when text is not a default certification policy.
type ParseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func shapeError(field, format string, args ...any) error {
	return &ParseError{Code: ErrCodeShape, Message: fmt.Sprintf(format, args...), Field: field}
}

var parseEnv = sync.OnceValues(func() (*celgo.Env, error) {
	return celgo.NewEnv()
})

// Parse reads the CEL text of a default certification policy. Whitespace and
// field order are not significant, so Parse(e.String()) reproduces e.
func Parse(text string) (Expression, error) {
	env, err := parseEnv()
	if err != nil {
		return nil, fmt.Errorf("cel: environment: %w", err)
	}

	ast, issues := env.Parse(text)
	if issues != nil && issues.Err() != nil {
		return nil, &ParseError{Code: ErrCodeSyntax, Message: issues.Err().Error()}
	}

	parsed, err := celgo.AstToParsedExpr(ast)
	if err != nil {
		return nil, &ParseError{Code: ErrCodeSyntax, Message: err.Error()}
	}

	return parseDefaultCertification(parsed.GetExpr())
}

func parseDefaultCertification(e *exprpb.Expr) (Expression, error) {
	call := e.GetCallExpr()
	if call == nil || call.GetTarget() != nil || call.GetFunction() != "default_certification" {
		return nil, shapeError("", "expected a default_certification(...) call")
	}
	if len(call.GetArgs()) != 1 {
		return nil, shapeError("", "default_certification takes one argument, got %d", len(call.GetArgs()))
	}

	args, err := structFields(call.GetArgs()[0], "ValidationArgs")
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, shapeError("ValidationArgs", "expected exactly one of no_certification or certification")
	}

	if v, ok := args["no_certification"]; ok {
		if err := emptyStruct(v, "no_certification"); err != nil {
			return nil, err
		}
		return SkipCertification(), nil
	}

	v, ok := args["certification"]
	if !ok {
		return nil, shapeError("ValidationArgs", "expected no_certification or certification")
	}
	return parseCertification(v)
}

func parseCertification(e *exprpb.Expr) (Expression, error) {
	fields, err := structFields(e, "Certification")
	if err != nil {
		return nil, err
	}
	if len(fields) != 2 {
		return nil, shapeError("Certification", "expected a request and a response field, got %d fields", len(fields))
	}

	respExpr, ok := fields["response_certification"]
	if !ok {
		return nil, shapeError("Certification", "missing response_certification")
	}
	response, err := parseResponseCertification(respExpr)
	if err != nil {
		return nil, err
	}

	if v, ok := fields["no_request_certification"]; ok {
		if err := emptyStruct(v, "no_request_certification"); err != nil {
			return nil, err
		}
		return &ResponseOnlyExpression{Response: response}, nil
	}

	reqExpr, ok := fields["request_certification"]
	if !ok {
		return nil, shapeError("Certification", "expected no_request_certification or request_certification")
	}
	request, err := parseRequestCertification(reqExpr)
	if err != nil {
		return nil, err
	}
	return &FullExpression{Request: request, Response: response}, nil
}

func parseRequestCertification(e *exprpb.Expr) (RequestCertification, error) {
	var rc RequestCertification
	fields, err := structFields(e, "RequestCertification")
	if err != nil {
		return rc, err
	}
	for name, v := range fields {
		switch name {
		case "certified_request_headers":
			rc.Headers, err = stringList(v, name)
		case "certified_query_parameters":
			rc.QueryParameters, err = stringList(v, name)
		default:
			err = shapeError(name, "unknown RequestCertification field")
		}
		if err != nil {
			return rc, err
		}
	}
	return rc, nil
}

func parseResponseCertification(e *exprpb.Expr) (ResponseCertification, error) {
	fields, err := structFields(e, "ResponseCertification")
	if err != nil {
		return ResponseCertification{}, err
	}
	if len(fields) != 1 {
		return ResponseCertification{}, shapeError("ResponseCertification",
			"expected exactly one of certified_response_headers or response_header_exclusions")
	}

	for name, v := range fields {
		var exclude bool
		switch name {
		case "certified_response_headers":
		case "response_header_exclusions":
			exclude = true
		default:
			return ResponseCertification{}, shapeError(name, "unknown ResponseCertification field")
		}

		list, err := structFields(v, "ResponseHeaderList")
		if err != nil {
			return ResponseCertification{}, err
		}
		headersExpr, ok := list["headers"]
		if !ok || len(list) != 1 {
			return ResponseCertification{}, shapeError(name, "ResponseHeaderList must have only a headers field")
		}
		headers, err := stringList(headersExpr, "headers")
		if err != nil {
			return ResponseCertification{}, err
		}
		return ResponseCertification{headers: headers, exclude: exclude}, nil
	}
	return ResponseCertification{}, nil
}

// structFields returns the field initializers of a message construction
// expression of the given type, rejecting map literals and repeated fields.
func structFields(e *exprpb.Expr, message string) (map[string]*exprpb.Expr, error) {
	s := e.GetStructExpr()
	if s == nil || s.GetMessageName() != message {
		return nil, shapeError(message, "expected %s{...}", message)
	}

	fields := make(map[string]*exprpb.Expr, len(s.GetEntries()))
	for _, entry := range s.GetEntries() {
		key := entry.GetFieldKey()
		if key == "" {
			return nil, shapeError(message, "map entries are not allowed")
		}
		if _, dup := fields[key]; dup {
			return nil, shapeError(key, "duplicate field")
		}
		fields[key] = entry.GetValue()
	}
	return fields, nil
}

func emptyStruct(e *exprpb.Expr, field string) error {
	fields, err := structFields(e, "Empty")
	if err != nil {
		return shapeError(field, "expected Empty{}")
	}
	if len(fields) != 0 {
		return shapeError(field, "Empty{} takes no fields")
	}
	return nil
}

func stringList(e *exprpb.Expr, field string) ([]string, error) {
	list := e.GetListExpr()
	if list == nil {
		return nil, shapeError(field, "expected a list of strings")
	}

	var out []string
	for _, el := range list.GetElements() {
		c := el.GetConstExpr()
		if c == nil {
			return nil, shapeError(field, "list elements must be string literals")
		}
		s, ok := c.GetConstantKind().(*exprpb.Constant_StringValue)
		if !ok {
			return nil, shapeError(field, "list elements must be string literals")
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}
