// Package headerbinder resolves typed values from HTTP headers and gRPC
// metadata against a declared schema.
//
// A schema is an ordered, immutable list of header bindings built at runtime.
// Each binding names a header, marks it required or optional, and carries a
// parser that converts the raw value into a typed one. Resolution walks the
// bindings in declaration order and stops at the first failure, so rejected
// requests always report the earliest offending header.
//
// # Basic Usage
//
//	binder, err := headerbinder.NewBuilder().
//		Add(headerbinder.Required("X-Organization-ID", headerbinder.String)).
//		Add(headerbinder.Optional("X-Retry-Count", headerbinder.Int)).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	vals, err := binder.Extract(req)
//	if err != nil {
//		// missing_header, invalid_header_value or header_parse_error
//	}
//	org := headerbinder.MustValue[string](vals, "X-Organization-ID")
//
// # Features
//
//   - Runtime-built, ordered header schemas
//   - Typed parsing with a stock parser library and custom parsers
//   - Explicit optional policies (strict and lenient)
//   - HTTP middleware and direct extraction
//   - gRPC interceptors and grpc-gateway integration
//   - Declarative configuration via JSON/YAML
//   - Debug logging support
//
// # Optional Policies
//
// Optional bindings follow one of two policies, chosen explicitly when the
// schema is built. Under OptionalStrict (the default) only absence resolves
// to no value; a present header that fails decoding or parsing is an error,
// exactly as for required bindings. Under OptionalLenient every failure
// resolves to no value and resolution continues. The two policies are never
// mixed within a schema.
//
// # Errors
//
// Resolution fails with a *HeaderError of one of three kinds, each carrying
// the offending header's name: missing_header, invalid_header_value (the
// value contains bytes outside printable ASCII) and header_parse_error. Over
// HTTP every kind is rejected with status 400 and a JSON body:
//
//	{"error": "missing_header", "message": "missing required header \"x-api-key\""}
//
// # Configuration
//
// Schemas can be configured programmatically via the builder pattern or
// declaratively from JSON/YAML files, with parser type names resolved
// through a registry:
//
//	headers:
//	  - header: x-organization-id
//	    required: true
//	  - header: x-request-id
//	    type: uuid
//	optional_policy: strict
//
// # gRPC Integration
//
// The library provides gRPC interceptors for server-side enforcement and
// grpc-gateway hooks for forwarding and rejection rendering:
//
//	grpcServer := grpc.NewServer(
//		grpc.UnaryInterceptor(binder.UnaryServerInterceptor()),
//		grpc.StreamInterceptor(binder.StreamServerInterceptor()),
//	)
//
//	mux := headerbinder.CreateGatewayMux(binder)
package headerbinder
