package httpengine

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aura-studio/lambda-runtime/dynamic"
	"github.com/tidwall/gjson"
)

type mockTunnel struct {
	invokeFunc func(route, req string) string
}

func (m *mockTunnel) Init() {}

func (m *mockTunnel) Invoke(route string, req string) string {
	if m.invokeFunc != nil {
		return m.invokeFunc(route, req)
	}
	return "mock-response"
}

func (m *mockTunnel) Meta() string { return `{"tunnel":"mock"}` }

func (m *mockTunnel) Close() {}

func serve(e *Engine, req *http.Request) (int, http.Header, string) {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, string(body)
}

func newEngine(pkg string, tunnel *mockTunnel, opts ...Option) *Engine {
	return NewEngine(dynamic.NewDynamic(dynamic.WithStaticPackage(pkg, "v1", tunnel)), opts...)
}

// =============================================================================
// Health Check Route Tests
// =============================================================================

func TestEngine_HealthCheck(t *testing.T) {
	e := NewEngine(dynamic.NewDynamic())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		status, _, body := serve(e, httptest.NewRequest(method, "/health-check", nil))
		if status != http.StatusOK || body != "OK" {
			t.Errorf("%s /health-check = %d %q", method, status, body)
		}
	}
}

// =============================================================================
// API Route Tests
// =============================================================================

func TestEngine_API_GET(t *testing.T) {
	var invokedRoute, invokedReq string
	e := newEngine("engine-get-pkg", &mockTunnel{
		invokeFunc: func(route, req string) string {
			invokedRoute, invokedReq = route, req
			return `{"ok":true}`
		},
	})

	status, header, body := serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-get-pkg/v1/users?id=123", nil))
	if status != http.StatusOK || body != `{"ok":true}` {
		t.Errorf("response = %d %q", status, body)
	}
	if header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", header.Get("Content-Type"))
	}
	if invokedRoute != "/users" {
		t.Errorf("invokedRoute = %q, want '/users'", invokedRoute)
	}
	if gjson.Get(invokedReq, "id").String() != "123" {
		t.Errorf("invokedReq = %q", invokedReq)
	}
	if !gjson.Get(invokedReq, "__meta__").Exists() {
		t.Errorf("invokedReq = %q, want __meta__", invokedReq)
	}
}

func TestEngine_API_POST(t *testing.T) {
	var invokedReq string
	e := newEngine("engine-post-pkg", &mockTunnel{
		invokeFunc: func(route, req string) string {
			invokedReq = req
			return "post-response"
		},
	})

	status, _, body := serve(e, httptest.NewRequest(http.MethodPost, "/api/engine-post-pkg/v1/create", strings.NewReader(`{"action":"create"}`)))
	if status != http.StatusOK || body != "post-response" {
		t.Errorf("response = %d %q", status, body)
	}
	if gjson.Get(invokedReq, "action").String() != "create" {
		t.Errorf("invokedReq = %q", invokedReq)
	}
}

func TestEngine_API_ResponseMeta(t *testing.T) {
	e := newEngine("engine-meta-pkg", &mockTunnel{
		invokeFunc: func(route, req string) string {
			return `{"x":1,"__meta__":{"content_type":"text/html","etag":"abc","content":"<b>hi</b>"}}`
		},
	})

	status, header, body := serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-meta-pkg/v1/page", nil))
	if status != http.StatusOK || body != "<b>hi</b>" {
		t.Errorf("response = %d %q", status, body)
	}
	if header.Get("Content-Type") != "text/html" || header.Get("ETag") != "abc" {
		t.Errorf("header = %v", header)
	}
}

func TestEngine_API_Redirects(t *testing.T) {
	e := newEngine("engine-redirect-pkg", &mockTunnel{
		invokeFunc: func(route, req string) string {
			switch route {
			case "/out":
				return "https://example.com/"
			case "/fail":
				return "error://nope"
			default:
				return "path://health-check"
			}
		},
	})

	status, header, _ := serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-redirect-pkg/v1/out", nil))
	if status != http.StatusTemporaryRedirect || header.Get("Location") != "https://example.com/" {
		t.Errorf("redirect = %d %v", status, header)
	}
	status, _, body := serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-redirect-pkg/v1/fail", nil))
	if status != http.StatusInternalServerError || body != "nope" {
		t.Errorf("error = %d %q", status, body)
	}
	status, _, body = serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-redirect-pkg/v1/inner", nil))
	if status != http.StatusOK || body != "OK" {
		t.Errorf("path redirect = %d %q", status, body)
	}
}

func TestEngine_API_Panic(t *testing.T) {
	e := newEngine("engine-panic-pkg", &mockTunnel{
		invokeFunc: func(route, req string) string { panic("tunnel down") },
	})

	status, _, body := serve(e, httptest.NewRequest(http.MethodGet, "/api/engine-panic-pkg/v1/x", nil))
	if status != http.StatusInternalServerError || body != "panic: tunnel down" {
		t.Errorf("response = %d %q", status, body)
	}
}

func TestEngine_API_UnknownPackage(t *testing.T) {
	e := NewEngine(dynamic.NewDynamic())

	status, _, _ := serve(e, httptest.NewRequest(http.MethodGet, "/api/only-one-segment", nil))
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}

func TestEngine_DebugRoute(t *testing.T) {
	e := newEngine("engine-debug-pkg", &mockTunnel{})

	status, _, body := serve(e, httptest.NewRequest(http.MethodGet, "/_/api/engine-debug-pkg/v1/x", nil))
	if status != http.StatusOK || !strings.Contains(body, "Response: mock-response") {
		t.Errorf("debug = %d %q", status, body)
	}
}

// =============================================================================
// Meta / Fallback Route Tests
// =============================================================================

func TestEngine_Meta(t *testing.T) {
	e := newEngine("engine-meta-route-pkg", &mockTunnel{})

	status, _, body := serve(e, httptest.NewRequest(http.MethodGet, "/meta/engine-meta-route-pkg/v1", nil))
	if status != http.StatusOK || gjson.Get(body, "tunnel").String() != "mock" {
		t.Errorf("meta = %d %q", status, body)
	}
}

func TestEngine_NotFound(t *testing.T) {
	e := NewEngine(dynamic.NewDynamic())

	status, _, body := serve(e, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if status != http.StatusNotFound || body != "404 page not found" {
		t.Errorf("404 = %d %q", status, body)
	}

	e = NewEngine(dynamic.NewDynamic(), WithPageNotFoundPath("/health-check"))
	status, _, body = serve(e, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if status != http.StatusOK || body != "OK" {
		t.Errorf("page-not-found path = %d %q", status, body)
	}
}

func TestEngine_Cors(t *testing.T) {
	e := NewEngine(dynamic.NewDynamic(), WithCors())

	status, header, _ := serve(e, httptest.NewRequest(http.MethodOptions, "/health-check", nil))
	if status != http.StatusNoContent || header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", status, header)
	}
}
