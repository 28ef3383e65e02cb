package emulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T, opts ...Option) (*Emulator, *runtimeapi.Client) {
	t.Helper()
	e := New(opts...)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return e, runtimeapi.NewClient(runtimeapi.WithBaseURL(srv.URL))
}

func waitResult(t *testing.T, p *Pending) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	return r
}

func TestEmulator_ResponseRoundTrip(t *testing.T) {
	e, client := newTestServer(t)
	deadline := time.UnixMilli(1700000005000)
	p := e.Enqueue([]byte(`{"n":1}`),
		WithDeadline(deadline),
		WithTraceID("Root=1-5759e988-bd862e3fe1be46a994272793"),
		WithFunctionArn("arn:fn"),
		WithClientContext(`{"custom":{"k":"v"}}`),
		WithIdentity(`{"cognitoIdentityId":"id"}`),
	)

	inv, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if inv.RequestID() != p.RequestID() {
		t.Errorf("RequestID = %q, want %q", inv.RequestID(), p.RequestID())
	}
	if _, err := uuid.Parse(inv.RequestID()); err != nil {
		t.Errorf("request id %q is not a uuid", inv.RequestID())
	}
	if inv.DeadlineMs() != strconv.FormatInt(deadline.UnixMilli(), 10) {
		t.Errorf("DeadlineMs = %q", inv.DeadlineMs())
	}
	if inv.InvokedFunctionArn() != "arn:fn" || inv.TraceID() == "" || inv.ClientContext() == "" || inv.CognitoIdentity() == "" {
		t.Errorf("headers = %v", inv.Header)
	}
	if string(inv.Body) != `{"n":1}` {
		t.Errorf("Body = %s", inv.Body)
	}

	if err := client.PostResponse(context.Background(), inv.RequestID(), []byte(`"ok"`)); err != nil {
		t.Fatalf("PostResponse error = %v", err)
	}
	r := waitResult(t, p)
	if string(r.Response) != `"ok"` || r.Error != nil {
		t.Errorf("result = %+v", r)
	}
}

func TestEmulator_DefaultDeadline(t *testing.T) {
	e, client := newTestServer(t, WithTimeout(time.Second))
	e.now = func() time.Time { return time.UnixMilli(1000) }
	e.Enqueue([]byte(`{}`))

	inv, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if inv.DeadlineMs() != "2000" {
		t.Errorf("DeadlineMs = %q, want 2000", inv.DeadlineMs())
	}
	if inv.InvokedFunctionArn() != defaultOptions.FunctionArn {
		t.Errorf("InvokedFunctionArn = %q", inv.InvokedFunctionArn())
	}
}

func TestEmulator_ErrorRoundTrip(t *testing.T) {
	e, client := newTestServer(t)
	p := e.Enqueue([]byte(`{}`))

	inv, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	body := &runtimeapi.ErrorBody{ErrorMessage: "boom", ErrorType: "HandlerError", Trace: []string{"a"}}
	if err := client.PostError(context.Background(), inv.RequestID(), body); err != nil {
		t.Fatalf("PostError error = %v", err)
	}

	r := waitResult(t, p)
	if r.Error == nil || r.Error.ErrorMessage != "boom" || r.Error.ErrorType != "HandlerError" {
		t.Errorf("result error = %+v", r.Error)
	}
	if r.ErrorType != runtimeapi.ErrorTypeUnhandled {
		t.Errorf("ErrorType = %q, want %q", r.ErrorType, runtimeapi.ErrorTypeUnhandled)
	}
}

func TestEmulator_UnknownRequestID(t *testing.T) {
	_, client := newTestServer(t)

	err := client.PostResponse(context.Background(), "missing", []byte(`{}`))
	var perr *runtimeapi.ProtocolError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusBadRequest {
		t.Errorf("err = %v, want 400 ProtocolError", err)
	}
}

func TestEmulator_ResponseOnlyOnce(t *testing.T) {
	e, client := newTestServer(t)
	e.Enqueue([]byte(`{}`))
	inv, _ := client.Next(context.Background())

	if err := client.PostResponse(context.Background(), inv.RequestID(), []byte(`1`)); err != nil {
		t.Fatalf("first PostResponse error = %v", err)
	}
	if err := client.PostResponse(context.Background(), inv.RequestID(), []byte(`2`)); err == nil {
		t.Error("second PostResponse: err = nil")
	}
}

func TestEmulator_InitErrors(t *testing.T) {
	e, client := newTestServer(t)
	if err := client.PostInitError(context.Background(), &runtimeapi.ErrorBody{ErrorMessage: "no handler", ErrorType: "ProtocolError"}); err != nil {
		t.Fatalf("PostInitError error = %v", err)
	}
	errs := e.InitErrors()
	if len(errs) != 1 || errs[0].ErrorMessage != "no handler" {
		t.Errorf("InitErrors = %+v", errs)
	}
}

func TestEmulator_NextHonoursCancellation(t *testing.T) {
	_, client := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Next(ctx); err == nil {
		t.Error("Next on an empty queue: err = nil")
	}
}

func TestEmulator_InvokeEndpoint(t *testing.T) {
	e := New()
	srv := httptest.NewServer(e)
	defer srv.Close()
	client := runtimeapi.NewClient(runtimeapi.WithBaseURL(srv.URL))

	go func() {
		inv, err := client.Next(context.Background())
		if err != nil {
			return
		}
		var in map[string]any
		json.Unmarshal(inv.Body, &in)
		out, _ := json.Marshal(map[string]any{"echo": in["msg"]})
		client.PostResponse(context.Background(), inv.RequestID(), out)
	}()

	rsp, err := http.Post(srv.URL+PathInvoke, "application/json", bytes.NewBufferString(`{"msg":"hi"}`))
	if err != nil {
		t.Fatalf("Post error = %v", err)
	}
	defer rsp.Body.Close()
	b, _ := io.ReadAll(rsp.Body)
	if rsp.StatusCode != http.StatusOK || string(b) != `{"echo":"hi"}` {
		t.Errorf("invoke = %d %s", rsp.StatusCode, b)
	}
	if rsp.Header.Get("X-Amzn-RequestId") == "" {
		t.Error("missing X-Amzn-RequestId")
	}
}

func TestEmulator_InvokeEndpointError(t *testing.T) {
	e := New()
	srv := httptest.NewServer(e)
	defer srv.Close()
	client := runtimeapi.NewClient(runtimeapi.WithBaseURL(srv.URL))

	go func() {
		inv, err := client.Next(context.Background())
		if err != nil {
			return
		}
		client.PostError(context.Background(), inv.RequestID(), &runtimeapi.ErrorBody{ErrorMessage: "bad", ErrorType: "DecodeError"})
	}()

	rsp, err := http.Post(srv.URL+PathInvoke, "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("Post error = %v", err)
	}
	defer rsp.Body.Close()
	var body runtimeapi.ErrorBody
	json.NewDecoder(rsp.Body).Decode(&body)
	if rsp.Header.Get("X-Amz-Function-Error") != runtimeapi.ErrorTypeUnhandled || body.ErrorType != "DecodeError" {
		t.Errorf("invoke error = %q %+v", rsp.Header.Get("X-Amz-Function-Error"), body)
	}
}

type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func (w *brokenWriter) WriteHeader(int) {}

func TestEmulator_UndeliveredInvocationIsRequeued(t *testing.T) {
	e, client := newTestServer(t)
	p := e.Enqueue([]byte(`{"n":2}`))

	e.ServeHTTP(&brokenWriter{}, httptest.NewRequest(http.MethodGet, runtimeapi.PathNext, nil))

	inv, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if inv.RequestID() != p.RequestID() || string(inv.Body) != `{"n":2}` {
		t.Fatalf("redelivered = %q %s, want %q", inv.RequestID(), inv.Body, p.RequestID())
	}
	if err := client.PostResponse(context.Background(), inv.RequestID(), []byte(`"done"`)); err != nil {
		t.Fatalf("PostResponse error = %v", err)
	}
	if r := waitResult(t, p); string(r.Response) != `"done"` {
		t.Errorf("Response = %s", r.Response)
	}
}

func TestEmulator_PollerGoneBeforeDelivery(t *testing.T) {
	e, client := newTestServer(t)
	p := e.Enqueue([]byte(`{"n":3}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, runtimeapi.PathNext, nil).WithContext(ctx)
	e.ServeHTTP(httptest.NewRecorder(), req)

	inv, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if inv.RequestID() != p.RequestID() {
		t.Errorf("RequestID = %q, want %q", inv.RequestID(), p.RequestID())
	}
}
