package headerbinder

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ParseFunc converts a raw header value into its typed form
type ParseFunc func(raw string) (any, error)

// OptionalPolicy selects how optional bindings treat malformed values
type OptionalPolicy int

const (
	// OptionalStrict resolves absence to no value but surfaces decode and
	// parse failures as errors
	OptionalStrict OptionalPolicy = iota
	// OptionalLenient resolves absence and every failure to no value
	OptionalLenient
)

// String returns the policy name as used in configuration files
func (p OptionalPolicy) String() string {
	switch p {
	case OptionalStrict:
		return "strict"
	case OptionalLenient:
		return "lenient"
	}
	return "unknown"
}

// HeaderBinding defines how a single header is looked up and typed
type HeaderBinding struct {
	// Name is the header name (lookup is case-insensitive)
	Name string `json:"header" yaml:"header"`
	// Required indicates the header must be present
	Required bool `json:"required" yaml:"required"`
	// Type names a registered parser; used when Parse is nil
	Type string `json:"type" yaml:"type"`
	// Parse converts the raw value; takes precedence over Type
	Parse ParseFunc `json:"-" yaml:"-"`
}

// Required declares a required binding with a typed parser
func Required[T any](name string, parse func(string) (T, error)) HeaderBinding {
	return HeaderBinding{Name: name, Required: true, Parse: erase(parse)}
}

// Optional declares an optional binding with a typed parser
func Optional[T any](name string, parse func(string) (T, error)) HeaderBinding {
	return HeaderBinding{Name: name, Parse: erase(parse)}
}

// erase adapts a typed parser to the untyped ParseFunc shape
func erase[T any](parse func(string) (T, error)) ParseFunc {
	return func(raw string) (any, error) {
		v, err := parse(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Source is a read-only, case-insensitive view of a header map
type Source interface {
	// Lookup returns the first value for name and whether the header is present
	Lookup(name string) (string, bool)
}

type mapSource map[string]string

// MapSource adapts a plain map to a Source. Keys are matched case-insensitively.
func MapSource(m map[string]string) Source {
	lowered := make(mapSource, len(m))
	for k, v := range m {
		lowered[strings.ToLower(k)] = v
	}
	return lowered
}

func (m mapSource) Lookup(name string) (string, bool) {
	v, ok := m[strings.ToLower(name)]
	return v, ok
}

// printable reports whether raw contains only visible ASCII, space and tab
func printable(raw string) bool {
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b != '\t' && (b < 0x20 || b > 0x7e) {
			return false
		}
	}
	return true
}

// resolveRequired resolves a single required binding against src
func resolveRequired(src Source, binding HeaderBinding) (any, error) {
	raw, ok := src.Lookup(binding.Name)
	if !ok {
		return nil, newMissing(binding.Name)
	}
	if !printable(raw) {
		return nil, newInvalidValue(binding.Name)
	}
	v, err := binding.Parse(raw)
	if err != nil {
		return nil, newParseError(binding.Name, err)
	}
	return v, nil
}

// resolveOptional resolves a single optional binding against src under policy
func resolveOptional(src Source, binding HeaderBinding, policy OptionalPolicy) (any, bool, error) {
	raw, ok := src.Lookup(binding.Name)
	if !ok {
		return nil, false, nil
	}
	if !printable(raw) {
		if policy == OptionalLenient {
			return nil, false, nil
		}
		return nil, false, newInvalidValue(binding.Name)
	}
	v, err := binding.Parse(raw)
	if err != nil {
		if policy == OptionalLenient {
			return nil, false, nil
		}
		return nil, false, newParseError(binding.Name, err)
	}
	return v, true, nil
}

// ResolveRequired resolves a single required header against src
func ResolveRequired[T any](src Source, name string, parse func(string) (T, error)) (T, error) {
	var zero T
	v, err := resolveRequired(src, HeaderBinding{Name: name, Required: true, Parse: erase(parse)})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ResolveOptional resolves a single optional header against src. The policy
// must be chosen explicitly at the call site.
func ResolveOptional[T any](src Source, name string, parse func(string) (T, error), policy OptionalPolicy) (*T, error) {
	v, ok, err := resolveOptional(src, HeaderBinding{Name: name, Parse: erase(parse)}, policy)
	if err != nil || !ok {
		return nil, err
	}
	t := v.(T)
	return &t, nil
}

// Schema is an immutable, ordered collection of header bindings
type Schema struct {
	bindings []HeaderBinding
	policy   OptionalPolicy
}

// NewSchema builds a Schema from bindings in declaration order. Bindings
// without a Parse function have their Type resolved through the parser
// registry; an empty name, a nil parser or an unknown type fails construction.
func NewSchema(policy OptionalPolicy, bindings ...HeaderBinding) (*Schema, error) {
	resolved := make([]HeaderBinding, 0, len(bindings))
	for i, binding := range bindings {
		if binding.Name == "" {
			return nil, fmt.Errorf("binding %d: header name cannot be empty", i)
		}
		if binding.Parse == nil {
			if binding.Type == "" {
				return nil, fmt.Errorf("binding %d (%s): no parser configured", i, binding.Name)
			}
			parse, ok := LookupParser(binding.Type)
			if !ok {
				return nil, fmt.Errorf("binding %d (%s): unknown parser type %q", i, binding.Name, binding.Type)
			}
			binding.Parse = parse
		}
		resolved = append(resolved, binding)
	}
	return &Schema{bindings: resolved, policy: policy}, nil
}

// MustSchema is like NewSchema but panics on construction failure
func MustSchema(policy OptionalPolicy, bindings ...HeaderBinding) *Schema {
	s, err := NewSchema(policy, bindings...)
	if err != nil {
		panic(err)
	}
	return s
}

// Policy returns the schema's optional policy
func (s *Schema) Policy() OptionalPolicy {
	return s.policy
}

// Bindings returns a copy of the schema's bindings in declaration order
func (s *Schema) Bindings() []HeaderBinding {
	out := make([]HeaderBinding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Len returns the number of bindings in the schema
func (s *Schema) Len() int {
	return len(s.bindings)
}

// Resolve evaluates every binding against src in declaration order. The first
// failing binding aborts resolution and its error is returned; a schema with
// no bindings resolves to empty Values. Resolution never mutates src.
func (s *Schema) Resolve(src Source) (*Values, error) {
	vals := &Values{
		bindings: s.bindings,
		values:   make([]any, len(s.bindings)),
		set:      make([]bool, len(s.bindings)),
	}

	for i, binding := range s.bindings {
		if binding.Required {
			v, err := resolveRequired(src, binding)
			if err != nil {
				return nil, err
			}
			vals.values[i] = v
			vals.set[i] = true
			continue
		}

		v, ok, err := resolveOptional(src, binding, s.policy)
		if err != nil {
			return nil, err
		}
		if ok {
			vals.values[i] = v
			vals.set[i] = true
		}
	}

	return vals, nil
}

// Values holds the typed results of a schema resolution, ordered by binding.
// Duplicate binding names are kept as independent entries.
type Values struct {
	bindings []HeaderBinding
	values   []any
	set      []bool
}

// Len returns the number of bindings the resolution covered
func (v *Values) Len() int {
	return len(v.bindings)
}

// Has reports whether the named binding resolved to a value
func (v *Values) Has(name string) bool {
	_, ok := v.Raw(name)
	return ok
}

// Raw returns the untyped value of the first set binding matching name
func (v *Values) Raw(name string) (any, bool) {
	for i, binding := range v.bindings {
		if v.set[i] && strings.EqualFold(binding.Name, name) {
			return v.values[i], true
		}
	}
	return nil, false
}

// names returns the names of all set bindings, for debug logging
func (v *Values) names() []string {
	out := make([]string, 0, len(v.bindings))
	for i, binding := range v.bindings {
		if v.set[i] {
			out = append(out, binding.Name)
		}
	}
	return out
}

// Value returns the typed value of the first set binding matching name and
// type T. Name matching is case-insensitive; bindings sharing a name are
// scanned in declaration order until the type matches.
func Value[T any](vals *Values, name string) (T, bool) {
	var zero T
	if vals == nil {
		return zero, false
	}
	for i, binding := range vals.bindings {
		if !vals.set[i] || !strings.EqualFold(binding.Name, name) {
			continue
		}
		if v, ok := vals.values[i].(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustValue is like Value but panics when no matching value is set
func MustValue[T any](vals *Values, name string) T {
	v, ok := Value[T](vals, name)
	if !ok {
		panic(fmt.Sprintf("headerbinder: no resolved value for header %q", name))
	}
	return v
}

// Logger interface for logging (can be implemented by any logger)
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// NoOpLogger is a no-operation logger
type NoOpLogger struct{}

func (n NoOpLogger) Debug(args ...any) {}
func (n NoOpLogger) Info(args ...any)  {}
func (n NoOpLogger) Warn(args ...any)  {}
func (n NoOpLogger) Error(args ...any) {}

// Binder applies a Schema at an integration boundary, adding skip paths,
// logging and counters to the pure resolution
type Binder struct {
	schema    *Schema
	skipPaths map[string]bool
	logger    Logger
	debug     bool

	resolved      atomic.Int64
	rejected      atomic.Int64
	missing       atomic.Int64
	invalid       atomic.Int64
	parseFailures atomic.Int64
	lastUpdated   atomic.Int64
}

// NewBinder creates a Binder for the given schema. A nil schema behaves as an
// empty one.
func NewBinder(schema *Schema) *Binder {
	if schema == nil {
		schema = &Schema{}
	}
	return &Binder{
		schema:    schema,
		skipPaths: make(map[string]bool),
		logger:    NoOpLogger{},
	}
}

// SetLogger sets a custom logger
func (b *Binder) SetLogger(logger Logger) {
	b.logger = logger
}

// Schema returns the schema the binder enforces
func (b *Binder) Schema() *Schema {
	return b.schema
}

// Resolve evaluates the schema against src, recording counters and logging
// failures
func (b *Binder) Resolve(src Source) (*Values, error) {
	vals, err := b.schema.Resolve(src)
	b.lastUpdated.Store(time.Now().UnixNano())

	if err != nil {
		b.rejected.Add(1)
		if he, ok := AsHeaderError(err); ok {
			switch he.Kind {
			case MissingHeader:
				b.missing.Add(1)
			case InvalidHeaderValue:
				b.invalid.Add(1)
			case HeaderParseError:
				b.parseFailures.Add(1)
			}
		}
		b.logger.Warn("header resolution failed:", err)
		return nil, err
	}

	b.resolved.Add(1)
	if b.debug {
		b.logger.Debug("resolved headers:", vals.names())
	}
	return vals, nil
}

// Stats provides counters for binder activity
type Stats struct {
	Resolved      int64
	Rejected      int64
	Missing       int64
	InvalidValues int64
	ParseFailures int64
	LastUpdated   time.Time
}

// GetStats returns a snapshot of the binder's counters
func (b *Binder) GetStats() *Stats {
	var last time.Time
	if ns := b.lastUpdated.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return &Stats{
		Resolved:      b.resolved.Load(),
		Rejected:      b.rejected.Load(),
		Missing:       b.missing.Load(),
		InvalidValues: b.invalid.Load(),
		ParseFailures: b.parseFailures.Load(),
		LastUpdated:   last,
	}
}

// Builder provides a fluent API for assembling a Binder
type Builder struct {
	bindings  []HeaderBinding
	policy    OptionalPolicy
	skipPaths []string
	debug     bool
}

// NewBuilder creates a new builder with the strict optional policy
func NewBuilder() *Builder {
	return &Builder{
		bindings: make([]HeaderBinding, 0),
	}
}

// Add appends a prepared binding
func (b *Builder) Add(binding HeaderBinding) *Builder {
	b.bindings = append(b.bindings, binding)
	return b
}

// AddHeader appends an optional string-typed binding for name
func (b *Builder) AddHeader(name string) *Builder {
	return b.Add(HeaderBinding{Name: name, Type: "string"})
}

// AddRequired appends a required string-typed binding for name
func (b *Builder) AddRequired(name string) *Builder {
	return b.Add(HeaderBinding{Name: name, Required: true, Type: "string"})
}

// WithRequired marks the last added binding as required
func (b *Builder) WithRequired(required bool) *Builder {
	if len(b.bindings) > 0 {
		b.bindings[len(b.bindings)-1].Required = required
	}
	return b
}

// WithType sets the parser type name for the last added binding
func (b *Builder) WithType(typeName string) *Builder {
	if len(b.bindings) > 0 {
		b.bindings[len(b.bindings)-1].Type = typeName
		b.bindings[len(b.bindings)-1].Parse = nil
	}
	return b
}

// WithParser sets the parse function for the last added binding
func (b *Builder) WithParser(parse ParseFunc) *Builder {
	if len(b.bindings) > 0 {
		b.bindings[len(b.bindings)-1].Parse = parse
	}
	return b
}

// Policy sets the optional policy for the schema
func (b *Builder) Policy(policy OptionalPolicy) *Builder {
	b.policy = policy
	return b
}

// SkipPaths sets paths exempt from resolution
func (b *Builder) SkipPaths(paths ...string) *Builder {
	b.skipPaths = paths
	return b
}

// Debug enables debug logging
func (b *Builder) Debug(debug bool) *Builder {
	b.debug = debug
	return b
}

// Build creates the Binder, validating every binding
func (b *Builder) Build() (*Binder, error) {
	schema, err := NewSchema(b.policy, b.bindings...)
	if err != nil {
		return nil, err
	}

	binder := NewBinder(schema)
	for _, path := range b.skipPaths {
		binder.skipPaths[path] = true
	}
	binder.debug = b.debug
	return binder, nil
}

// MustBuild is like Build but panics on construction failure
func (b *Builder) MustBuild() *Binder {
	binder, err := b.Build()
	if err != nil {
		panic(err)
	}
	return binder
}

// Predefined binding sets

// CommonBindings returns bindings for commonly inspected request headers
func CommonBindings() []HeaderBinding {
	return []HeaderBinding{
		Optional("User-Agent", String),
		Optional("Accept", String),
		Optional("Content-Type", String),
		Optional("X-Request-ID", String),
	}
}

// AuthBindings returns bindings for authentication headers
func AuthBindings() []HeaderBinding {
	return []HeaderBinding{
		Required("Authorization", BearerToken),
		Optional("X-API-Key", String),
		Optional("X-User-ID", String),
	}
}

// TracingBindings returns bindings for distributed tracing headers
func TracingBindings() []HeaderBinding {
	return []HeaderBinding{
		Optional("X-Trace-ID", String),
		Optional("X-Span-ID", String),
		Optional("X-Request-ID", String),
		Optional("X-Correlation-ID", String),
	}
}
