package runtimeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Next(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != PathNext {
			t.Errorf("request = %s %s, want GET %s", r.Method, r.URL.Path, PathNext)
		}
		w.Header().Set(HeaderRequestID, "req-1")
		w.Header().Set(HeaderDeadlineMs, "1700000005000")
		w.Header().Set(HeaderTraceID, "Root=1-5759e988-bd862e3fe1be46a994272793")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	inv, err := c.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if inv.RequestID() != "req-1" {
		t.Errorf("RequestID = %q, want 'req-1'", inv.RequestID())
	}
	if inv.DeadlineMs() != "1700000005000" {
		t.Errorf("DeadlineMs = %q", inv.DeadlineMs())
	}
	if inv.ClientContext() != "" {
		t.Errorf("ClientContext = %q, want empty", inv.ClientContext())
	}
	if string(inv.Body) != `{"hello":"world"}` {
		t.Errorf("Body = %q", inv.Body)
	}
}

func TestClient_NextNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Next(context.Background())
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if pe.StatusCode != http.StatusInternalServerError || pe.Body != "boom" {
		t.Errorf("ProtocolError = %+v", pe)
	}
}

func TestClient_PostResponse(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient(WithBaseURL(srv.URL)).PostResponse(context.Background(), "req-1", []byte(`"ok"`))
	if err != nil {
		t.Fatalf("PostResponse error = %v", err)
	}
	if gotPath != "/2018-06-01/runtime/invocation/req-1/response" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `"ok"` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestClient_PostError(t *testing.T) {
	var gotPath, gotType string
	var body ErrorBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get(HeaderFunctionErrorType)
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient(WithBaseURL(srv.URL)).PostError(context.Background(), "req-2", &ErrorBody{
		ErrorMessage: "bad",
		ErrorType:    "HandlerError",
		Trace:        []string{"main.go:1"},
	})
	if err != nil {
		t.Fatalf("PostError error = %v", err)
	}
	if gotPath != "/2018-06-01/runtime/invocation/req-2/error" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "Unhandled" {
		t.Errorf("error type header = %q, want 'Unhandled'", gotType)
	}
	if body.ErrorMessage != "bad" || body.ErrorType != "HandlerError" || len(body.Trace) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestClient_PostInitError(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(WithBaseURL(srv.URL)).PostInitError(context.Background(), &ErrorBody{ErrorMessage: "x"})
	if gotPath != PathInitError {
		t.Errorf("path = %q, want %q", gotPath, PathInitError)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusForbidden {
		t.Errorf("err = %v, want ProtocolError 403", err)
	}
}

func TestClient_WithRuntimeAPI(t *testing.T) {
	c := NewClient(WithRuntimeAPI("127.0.0.1:9001"), WithUserAgent("test-agent"))
	if c.BaseURL != "http://127.0.0.1:9001" {
		t.Errorf("BaseURL = %q", c.BaseURL)
	}
	if c.Headers["User-Agent"] != "test-agent" {
		t.Errorf("User-Agent = %q", c.Headers["User-Agent"])
	}
	if !strings.HasPrefix(defaultOptions.Headers["User-Agent"], "aura") {
		t.Errorf("defaults were mutated: %v", defaultOptions.Headers)
	}
}
