package headerbinder

import (
	"context"
	"net/http"
	"strings"
)

type headerSource http.Header

// HeaderSource adapts an http.Header to the Source interface
func HeaderSource(h http.Header) Source {
	return headerSource(h)
}

// Lookup returns the first value for name. Matching stays case-insensitive
// even for maps populated with non-canonical keys.
func (h headerSource) Lookup(name string) (string, bool) {
	if vs := http.Header(h).Values(name); len(vs) > 0 {
		return vs[0], true
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

type valuesCtxKey struct{}

// WithValues returns a context carrying resolved header values
func WithValues(ctx context.Context, vals *Values) context.Context {
	return context.WithValue(ctx, valuesCtxKey{}, vals)
}

// FromContext returns the resolved header values stored in ctx
func FromContext(ctx context.Context) (*Values, bool) {
	vals, ok := ctx.Value(valuesCtxKey{}).(*Values)
	return vals, ok
}

// Extract resolves the binder's schema against a request's headers
func (b *Binder) Extract(req *http.Request) (*Values, error) {
	return b.Resolve(HeaderSource(req.Header))
}

// Middleware returns an HTTP middleware enforcing the schema. Rejected
// requests receive a 400 JSON body and never reach the next handler; resolved
// values are stored in the request context.
func (b *Binder) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if b.skipPaths[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}

			vals, err := b.Extract(req)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, req.WithContext(WithValues(req.Context(), vals)))
		})
	}
}
