// Package emulator serves the runtime control-plane API locally, so the
// runtime can be driven without a function host.
package emulator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const PathInvoke = "/2015-03-31/functions/function/invocations"

// Result is the outcome the runtime reported for one invocation.
type Result struct {
	RequestID string
	Response  []byte
	// Error is set when the runtime posted to the error endpoint.
	Error     *runtimeapi.ErrorBody
	ErrorType string
}

type Pending struct {
	id   string
	done chan *Result
}

func (p *Pending) RequestID() string { return p.id }

// Wait blocks until the runtime reports the outcome or ctx ends.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case r := <-p.done:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type invocation struct {
	id       string
	payload  []byte
	header   http.Header
	deadline time.Time
	pending  *Pending
}

type Emulator struct {
	*Options
	*gin.Engine

	queue chan *invocation
	now   func() time.Time

	mu         sync.Mutex
	inflight   map[string]*invocation
	initErrors []runtimeapi.ErrorBody
}

func New(opts ...Option) *Emulator {
	e := &Emulator{
		Options:  NewOptions(opts...),
		now:      time.Now,
		inflight: make(map[string]*invocation),
	}
	e.queue = make(chan *invocation, e.QueueSize)

	if !e.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	e.Engine = gin.New()
	e.Use(gin.Recovery())
	e.InstallHandlers()

	return e
}

func (e *Emulator) InstallHandlers() {
	e.GET(runtimeapi.PathNext, e.HandleNext)
	e.POST("/"+runtimeapi.Version+"/runtime/invocation/:id/response", e.HandleResponse)
	e.POST("/"+runtimeapi.Version+"/runtime/invocation/:id/error", e.HandleError)
	e.POST(runtimeapi.PathInitError, e.HandleInitError)
	e.POST(PathInvoke, e.HandleInvoke)
}

// Enqueue schedules payload for delivery to the next poll. It blocks while
// the queue is full.
func (e *Emulator) Enqueue(payload []byte, opts ...InvokeOption) *Pending {
	inv := &invocation{
		id:      uuid.NewString(),
		payload: payload,
		header:  http.Header{},
		pending: &Pending{done: make(chan *Result, 1)},
	}
	inv.pending.id = inv.id
	inv.header.Set(runtimeapi.HeaderInvokedFunctionArn, e.FunctionArn)
	for _, opt := range opts {
		opt(inv)
	}
	e.queue <- inv
	return inv.pending
}

// InitErrors returns every init error reported so far.
func (e *Emulator) InitErrors() []runtimeapi.ErrorBody {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]runtimeapi.ErrorBody(nil), e.initErrors...)
}

func (e *Emulator) HandleNext(c *gin.Context) {
	var inv *invocation
	select {
	case inv = <-e.queue:
	case <-c.Request.Context().Done():
		return
	}

	deadline := inv.deadline
	if deadline.IsZero() {
		deadline = e.now().Add(e.Timeout)
	}

	e.mu.Lock()
	e.inflight[inv.id] = inv
	e.mu.Unlock()

	for k, v := range inv.header {
		c.Writer.Header()[k] = v
	}
	c.Header(runtimeapi.HeaderRequestID, inv.id)
	c.Header(runtimeapi.HeaderDeadlineMs, strconv.FormatInt(deadline.UnixMilli(), 10))
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	_, err := c.Writer.Write(inv.payload)
	if err == nil {
		c.Writer.Flush()
		err = c.Request.Context().Err()
	}
	if err != nil {
		e.Logger.Debug("invocation not delivered, requeued", "id", inv.id, "err", err)
		e.requeue(inv)
		return
	}
	e.Logger.Debug("invocation delivered", "id", inv.id)
}

// requeue puts an invocation whose poller went away back on the queue.
func (e *Emulator) requeue(inv *invocation) {
	e.mu.Lock()
	delete(e.inflight, inv.id)
	e.mu.Unlock()

	select {
	case e.queue <- inv:
	default:
		go func() { e.queue <- inv }()
	}
}

func (e *Emulator) HandleResponse(c *gin.Context) {
	inv, ok := e.take(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	inv.pending.done <- &Result{RequestID: inv.id, Response: body}
	c.JSON(http.StatusAccepted, gin.H{"status": "OK"})
}

func (e *Emulator) HandleError(c *gin.Context) {
	inv, ok := e.take(c)
	if !ok {
		return
	}
	inv.pending.done <- &Result{
		RequestID: inv.id,
		Error:     readErrorBody(c),
		ErrorType: c.GetHeader(runtimeapi.HeaderFunctionErrorType),
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "OK"})
}

func (e *Emulator) HandleInitError(c *gin.Context) {
	body := readErrorBody(c)
	e.mu.Lock()
	e.initErrors = append(e.initErrors, *body)
	e.mu.Unlock()
	e.Logger.Error("init error", "type", body.ErrorType, "message", body.ErrorMessage)
	c.JSON(http.StatusAccepted, gin.H{"status": "OK"})
}

// HandleInvoke enqueues the request body and replies with the outcome, the way
// the function host's invoke endpoint does.
func (e *Emulator) HandleInvoke(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var opts []InvokeOption
	if v := c.GetHeader("X-Amzn-Trace-Id"); v != "" {
		opts = append(opts, WithTraceID(v))
	}
	p := e.Enqueue(payload, opts...)

	r, err := p.Wait(c.Request.Context())
	if err != nil {
		return
	}
	c.Header("X-Amzn-RequestId", r.RequestID)
	if r.Error != nil {
		c.Header("X-Amz-Function-Error", r.ErrorType)
		c.JSON(http.StatusOK, r.Error)
		return
	}
	c.Data(http.StatusOK, "application/json", r.Response)
}

func (e *Emulator) take(c *gin.Context) (*invocation, bool) {
	id := c.Param("id")
	e.mu.Lock()
	inv, ok := e.inflight[id]
	delete(e.inflight, id)
	e.mu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, runtimeapi.ErrorBody{
			ErrorMessage: "unknown request id " + id,
			ErrorType:    "InvalidRequestID",
		})
		return nil, false
	}
	return inv, true
}

func readErrorBody(c *gin.Context) *runtimeapi.ErrorBody {
	b, err := io.ReadAll(c.Request.Body)
	body := &runtimeapi.ErrorBody{}
	if err == nil {
		err = json.Unmarshal(b, body)
	}
	if err != nil {
		body.ErrorMessage = string(b)
		body.ErrorType = "InvalidErrorBody"
	}
	return body
}

// Serve listens on addr until ctx ends.
func (e *Emulator) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: e}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
