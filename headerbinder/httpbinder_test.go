package headerbinder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHeaderSource(t *testing.T) {
	h := http.Header{}
	h.Set("X-User-ID", "u-1")
	h.Set("X-Empty", "")
	h.Add("X-Multi", "first")
	h.Add("X-Multi", "second")

	src := HeaderSource(h)

	if v, ok := src.Lookup("x-user-id"); !ok || v != "u-1" {
		t.Errorf("Lookup(x-user-id) = %q, %v, want u-1", v, ok)
	}
	if v, ok := src.Lookup("X-EMPTY"); !ok || v != "" {
		t.Errorf("Lookup(X-EMPTY) = %q, %v, want empty present", v, ok)
	}
	if v, ok := src.Lookup("X-Multi"); !ok || v != "first" {
		t.Errorf("Lookup(X-Multi) = %q, %v, want first value only", v, ok)
	}
	if _, ok := src.Lookup("X-Absent"); ok {
		t.Error("Lookup(X-Absent) = present, want absent")
	}

	// Maps assembled without canonicalization still match
	raw := HeaderSource(http.Header{"x-odd-key": {"v"}})
	if v, ok := raw.Lookup("X-Odd-Key"); !ok || v != "v" {
		t.Errorf("Lookup on non-canonical map = %q, %v, want v", v, ok)
	}
}

func TestBinder_Middleware(t *testing.T) {
	binder := NewBuilder().
		Add(Required("X-Organization-ID", String)).
		Add(Optional("X-Retry-Count", Int)).
		SkipPaths("/health").
		MustBuild()

	var seen *Values
	router := chi.NewRouter()
	router.Use(binder.Middleware())
	router.Get("/api/test", func(w http.ResponseWriter, req *http.Request) {
		seen, _ = FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid request",
			path:       "/api/test",
			headers:    map[string]string{"X-Organization-ID": "org-1", "X-Retry-Count": "2"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing required header",
			path:       "/api/test",
			headers:    map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_header",
		},
		{
			name:       "non-printable value",
			path:       "/api/test",
			headers:    map[string]string{"X-Organization-ID": "org-日本語-123"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_header_value",
		},
		{
			name:       "unparseable optional",
			path:       "/api/test",
			headers:    map[string]string{"X-Organization-ID": "org-1", "X-Retry-Count": "two"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "header_parse_error",
		},
		{
			name:       "skip path without headers",
			path:       "/health",
			headers:    map[string]string{},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				var body ErrorBody
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("rejection body is not JSON: %v", err)
				}
				if body.Error != tt.wantCode {
					t.Errorf("body.Error = %q, want %q", body.Error, tt.wantCode)
				}
				if !strings.Contains(body.Message, "X-") {
					t.Errorf("body.Message = %q, want header name", body.Message)
				}
				return
			}

			if tt.path != "/api/test" {
				return
			}
			if seen == nil {
				t.Fatal("handler did not receive values from context")
			}
			if got, ok := Value[string](seen, "X-Organization-ID"); !ok || got != "org-1" {
				t.Errorf("Value[string]() = %q, %v, want org-1", got, ok)
			}
		})
	}
}

func TestBinder_Middleware_PlainHandler(t *testing.T) {
	binder := NewBuilder().
		Add(Required("X-API-Key", String)).
		MustBuild()

	handler := binder.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		vals, ok := FromContext(req.Context())
		if !ok {
			http.Error(w, "no values", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(MustValue[string](vals, "X-API-Key")))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "k-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "k-123" {
		t.Errorf("response = %d %q, want 200 k-123", w.Code, w.Body.String())
	}
}

func TestBinder_Extract(t *testing.T) {
	binder := NewBuilder().
		Add(Required("X-Count", Int)).
		MustBuild()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Count", "5")

	vals, err := binder.Extract(req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got, _ := Value[int](vals, "X-Count"); got != 5 {
		t.Errorf("Value[int]() = %d, want 5", got)
	}

	req.Header.Set("X-Count", "five")
	if _, err := binder.Extract(req); err == nil {
		t.Error("Extract() with bad value error = nil, want error")
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(httptest.NewRequest("GET", "/", nil).Context()); ok {
		t.Error("FromContext() on bare context = present, want absent")
	}

	vals := &Values{}
	ctx := WithValues(httptest.NewRequest("GET", "/", nil).Context(), vals)
	got, ok := FromContext(ctx)
	if !ok || got != vals {
		t.Errorf("FromContext() = %v, %v, want stored values", got, ok)
	}
}
