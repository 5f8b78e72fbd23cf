package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ghuser/stockledger/pkg/httpx"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func newTestRouter(cfg httpx.ServerConfig) *chi.Mux {
	r := httpx.NewRouter(cfg, httpx.Middleware{})
	r.Get("/api/inventory", okHandler)
	r.Get("/swagger/index.html", okHandler)
	r.Post("/api/inventory", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			httpx.JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{CORSAllowedOrigins: "*"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", http.NoBody))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for header, v := range want {
		if got := rr.Header().Get(header); got != v {
			t.Errorf("%s: got %q, want %q", header, got, v)
		}
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/index.html", http.NoBody))
	if got := rr.Header().Get("Content-Security-Policy"); got != "" {
		t.Errorf("swagger route CSP: got %q, want none", got)
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{CORSAllowedOrigins: "*", RequestsPerMinute: 2})

	send := func(addr string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/inventory", http.NoBody)
		req.RemoteAddr = addr
		h.ServeHTTP(rr, req)
		return rr
	}

	codes := []int{send("10.0.0.1:1234").Code, send("10.0.0.1:1234").Code}
	limited := send("10.0.0.1:1234")
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || limited.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200, 200, 429, got %v, %d", codes, limited.Code)
	}
	if got := strings.TrimSpace(limited.Body.String()); got != `{"error":"Too many requests"}` {
		t.Errorf("unexpected 429 body: %s", got)
	}
	if got := send("10.0.0.2:1234").Code; got != http.StatusOK {
		t.Errorf("second client should have its own budget, got %d", got)
	}
}

func TestNewRouter_BodyLimit(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{CORSAllowedOrigins: "*", MaxBodyBytes: 16})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"under limit", `{"productId":1}`, http.StatusCreated},
		{"over limit", strings.Repeat("x", 17), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(tt.body)))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(httpx.ServerConfig{CORSAllowedOrigins: "https://shop.example.com, https://admin.example.com"})

	tests := []struct {
		origin string
		want   string
	}{
		{"https://admin.example.com", "https://admin.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/inventory", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRouter_SetsRequestID(t *testing.T) {
	var seen string
	r := httpx.NewRouter(httpx.ServerConfig{}, httpx.Middleware{})
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/id", http.NoBody))
	if seen == "" {
		t.Fatal("expected a request id in the handler context")
	}
}

func TestNewRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	r := httpx.NewRouter(httpx.ServerConfig{}, httpx.Middleware{
		Recovery: tag("recovery"),
		Sentry:   tag("sentry"),
		Tracing:  tag("tracing"),
		Logging:  tag("logging"),
	})
	r.Get("/", okHandler)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	want := []string{"recovery", "sentry", "tracing", "logging"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestNewServer(t *testing.T) {
	srv := httpx.NewServer(httpx.ServerConfig{Addr: ":9090", HandlerTimeout: 2 * time.Second}, http.NotFoundHandler())
	if srv.Addr != ":9090" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.WriteTimeout != 7*time.Second {
		t.Errorf("WriteTimeout = %v, want 7s", srv.WriteTimeout)
	}

	srv = httpx.NewServer(httpx.ServerConfig{}, http.NotFoundHandler())
	if srv.WriteTimeout != httpx.DefaultHandlerTimeout+5*time.Second {
		t.Errorf("default WriteTimeout = %v", srv.WriteTimeout)
	}
}
