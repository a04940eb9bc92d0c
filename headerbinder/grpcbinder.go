package headerbinder

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// errorInfoDomain marks rejection details emitted by this package
const errorInfoDomain = "headerbinder"

type metadataSource metadata.MD

// MetadataSource adapts incoming gRPC metadata to the Source interface
func MetadataSource(md metadata.MD) Source {
	return metadataSource(md)
}

// Lookup returns the first metadata value for name
func (m metadataSource) Lookup(name string) (string, bool) {
	vs := metadata.MD(m).Get(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// StatusError converts a header resolution failure into a gRPC status error
// carrying an ErrorInfo detail with the kind code and header name. Other
// errors pass through unchanged.
func StatusError(err error) error {
	he, ok := AsHeaderError(err)
	if !ok {
		return err
	}

	st := status.New(codes.InvalidArgument, he.Error())
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   he.Kind.String(),
		Domain:   errorInfoDomain,
		Metadata: map[string]string{"header": he.Header},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FromStatus recovers a HeaderError from a status error produced by StatusError
func FromStatus(err error) (*HeaderError, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}

	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.Domain != errorInfoDomain {
			continue
		}

		he := &HeaderError{Header: info.Metadata["header"]}
		switch info.Reason {
		case MissingHeader.String():
			he.Kind = MissingHeader
		case InvalidHeaderValue.String():
			he.Kind = InvalidHeaderValue
		case HeaderParseError.String():
			he.Kind = HeaderParseError
		default:
			continue
		}
		return he, true
	}

	return nil, false
}

// UnaryServerInterceptor creates a gRPC unary server interceptor enforcing
// the schema against incoming metadata
func (b *Binder) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if b.skipPaths[info.FullMethod] {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		vals, err := b.Resolve(MetadataSource(md))
		if err != nil {
			return nil, StatusError(err)
		}

		return handler(WithValues(ctx, vals), req)
	}
}

// StreamServerInterceptor creates a gRPC stream server interceptor enforcing
// the schema against incoming metadata
func (b *Binder) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if b.skipPaths[info.FullMethod] {
			return handler(srv, ss)
		}

		md, _ := metadata.FromIncomingContext(ss.Context())
		vals, err := b.Resolve(MetadataSource(md))
		if err != nil {
			return StatusError(err)
		}

		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          WithValues(ss.Context(), vals),
		}
		return handler(srv, wrapped)
	}
}

// wrappedServerStream wraps a grpc.ServerStream to provide custom context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// Matcher creates an incoming header matcher for grpc-gateway. Schema headers
// pass through under their lowercase names; everything else falls back to the
// default matcher.
func (b *Binder) Matcher() func(string) (string, bool) {
	headerMap := make(map[string]string)
	for _, binding := range b.schema.bindings {
		headerMap[strings.ToLower(binding.Name)] = strings.ToLower(binding.Name)
	}

	return func(key string) (string, bool) {
		if mdKey, exists := headerMap[strings.ToLower(key)]; exists {
			return mdKey, true
		}

		// Fallback to default behavior
		defaultKey, defaultExists := runtime.DefaultHeaderMatcher(key)
		if !defaultExists || defaultKey == "" {
			defaultKey = "grpc-metadata-" + strings.ToLower(strings.ReplaceAll(key, "_", "-"))
		}
		return defaultKey, true
	}
}

// Annotator creates a metadata annotator for incoming gateway requests.
// Schema headers are forwarded raw; enforcement happens in the interceptors.
func (b *Binder) Annotator() func(context.Context, *http.Request) metadata.MD {
	return func(ctx context.Context, req *http.Request) metadata.MD {
		md := metadata.New(map[string]string{})
		if b.skipPaths[req.URL.Path] {
			return md
		}

		src := HeaderSource(req.Header)
		for _, binding := range b.schema.bindings {
			if raw, ok := src.Lookup(binding.Name); ok {
				md.Set(binding.Name, raw)
			}
		}

		if b.debug {
			b.logger.Debug("annotated gateway metadata:", md)
		}
		return md
	}
}

// GatewayErrorHandler creates a runtime error handler rendering schema
// rejections as JSON. Other errors delegate to the default handler.
func (b *Binder) GatewayErrorHandler() runtime.ErrorHandlerFunc {
	return func(ctx context.Context, mux *runtime.ServeMux, marshaler runtime.Marshaler, w http.ResponseWriter, req *http.Request, err error) {
		he, ok := FromStatus(err)
		if !ok {
			runtime.DefaultHTTPErrorHandler(ctx, mux, marshaler, w, req, err)
			return
		}
		WriteError(w, he)
	}
}

// CreateGatewayMux creates a grpc-gateway ServeMux wired to the binder
func CreateGatewayMux(binder *Binder, opts ...runtime.ServeMuxOption) *runtime.ServeMux {
	// Prepend our options
	allOpts := []runtime.ServeMuxOption{
		runtime.WithIncomingHeaderMatcher(binder.Matcher()),
		runtime.WithMetadata(binder.Annotator()),
		runtime.WithErrorHandler(binder.GatewayErrorHandler()),
	}

	allOpts = append(allOpts, opts...)

	return runtime.NewServeMux(allOpts...)
}
