package headerbinder

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a header binding failed to resolve
type ErrorKind int

const (
	// MissingHeader indicates a required header was absent from the request
	MissingHeader ErrorKind = iota
	// InvalidHeaderValue indicates a header value carried non-printable bytes
	InvalidHeaderValue
	// HeaderParseError indicates a header value was rejected by its parser
	HeaderParseError
)

// String returns the stable code for the kind, as used in rejection bodies
func (k ErrorKind) String() string {
	switch k {
	case MissingHeader:
		return "missing_header"
	case InvalidHeaderValue:
		return "invalid_header_value"
	case HeaderParseError:
		return "header_parse_error"
	}
	return "unknown"
}

// HeaderError describes a single failed header resolution. It always names
// the header it refers to.
type HeaderError struct {
	// Kind is the failure class
	Kind ErrorKind
	// Header is the name of the binding that failed
	Header string

	cause error
}

func newMissing(name string) *HeaderError {
	return &HeaderError{Kind: MissingHeader, Header: name}
}

func newInvalidValue(name string) *HeaderError {
	return &HeaderError{Kind: InvalidHeaderValue, Header: name}
}

func newParseError(name string, cause error) *HeaderError {
	return &HeaderError{Kind: HeaderParseError, Header: name, cause: cause}
}

// Error returns a message carrying the literal header name
func (e *HeaderError) Error() string {
	switch e.Kind {
	case MissingHeader:
		return fmt.Sprintf("missing required header %q", e.Header)
	case InvalidHeaderValue:
		return fmt.Sprintf("header %q contains non-printable characters", e.Header)
	case HeaderParseError:
		if e.cause != nil {
			return fmt.Sprintf("cannot parse header %q: %v", e.Header, e.cause)
		}
		return fmt.Sprintf("cannot parse header %q", e.Header)
	}
	return fmt.Sprintf("header %q: unknown error", e.Header)
}

// Unwrap returns the parser error for HeaderParseError, nil otherwise
func (e *HeaderError) Unwrap() error {
	return e.cause
}

// AsHeaderError unwraps err into a *HeaderError when possible
func AsHeaderError(err error) (*HeaderError, bool) {
	var he *HeaderError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// ErrorBody is the JSON document written for rejected requests
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes err to w as a JSON rejection. Header resolution failures
// produce 400 with the kind code; any other error produces 500.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: "internal_error", Message: err.Error()}
	code := http.StatusInternalServerError

	if he, ok := AsHeaderError(err); ok {
		body.Error = he.Kind.String()
		code = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
