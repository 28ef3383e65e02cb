// Package execution holds the per-invocation Execution Context and the
// factory that builds it from a next-invocation response.
package execution

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/charmbracelet/log"
)

// Environment is the static per-deployment metadata surfaced through every
// Context.
type Environment struct {
	FunctionName    string
	FunctionVersion string
	MemoryLimitMB   int
	LogGroupName    string
	LogStreamName   string
}

// Context is read-only metadata about one invocation. It is valid only until
// the invocation's response or error has been posted.
type Context struct {
	env                Environment
	awsRequestID       string
	deadline           time.Time
	invokedFunctionArn string
	traceID            string
	identity           lambdacontext.CognitoIdentity
	clientContext      lambdacontext.ClientContext
	logger             *log.Logger
	now                func() time.Time
}

func (c *Context) AwsRequestID() string { return c.awsRequestID }

func (c *Context) Deadline() time.Time { return c.deadline }

func (c *Context) DeadlineEpochMillis() int64 { return c.deadline.UnixMilli() }

// RemainingTime is recomputed on every call.
func (c *Context) RemainingTime() time.Duration {
	return c.deadline.Sub(c.now())
}

func (c *Context) RemainingTimeInMillis() int64 {
	return c.RemainingTime().Milliseconds()
}

func (c *Context) FunctionName() string    { return c.env.FunctionName }
func (c *Context) FunctionVersion() string { return c.env.FunctionVersion }
func (c *Context) MemoryLimitMB() int      { return c.env.MemoryLimitMB }
func (c *Context) LogGroupName() string    { return c.env.LogGroupName }
func (c *Context) LogStreamName() string   { return c.env.LogStreamName }

func (c *Context) InvokedFunctionArn() string { return c.invokedFunctionArn }

func (c *Context) Identity() lambdacontext.CognitoIdentity { return c.identity }

func (c *Context) ClientContext() lambdacontext.ClientContext { return c.clientContext }

// TraceID is the X-Ray trace header of the invocation, or "".
func (c *Context) TraceID() string { return c.traceID }

// Logger is shared with the runtime; the context never reconfigures it.
func (c *Context) Logger() *log.Logger { return c.logger }

// LambdaContext converts to the aws-lambda-go representation.
func (c *Context) LambdaContext() *lambdacontext.LambdaContext {
	return &lambdacontext.LambdaContext{
		AwsRequestID:       c.awsRequestID,
		InvokedFunctionArn: c.invokedFunctionArn,
		Identity:           c.identity,
		ClientContext:      c.clientContext,
	}
}

type contextJSON struct {
	AwsRequestID        string                        `json:"awsRequestId"`
	DeadlineEpochMillis int64                         `json:"deadlineMs"`
	RemainingTimeMillis int64                         `json:"remainingTimeInMillis"`
	FunctionName        string                        `json:"functionName"`
	FunctionVersion     string                        `json:"functionVersion"`
	MemoryLimitMB       int                           `json:"memoryLimitInMB"`
	LogGroupName        string                        `json:"logGroupName"`
	LogStreamName       string                        `json:"logStreamName"`
	InvokedFunctionArn  string                        `json:"invokedFunctionArn,omitempty"`
	TraceID             string                        `json:"traceId,omitempty"`
	Identity            lambdacontext.CognitoIdentity `json:"identity"`
	ClientContext       lambdacontext.ClientContext   `json:"clientContext"`
}

func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(contextJSON{
		AwsRequestID:        c.awsRequestID,
		DeadlineEpochMillis: c.DeadlineEpochMillis(),
		RemainingTimeMillis: c.RemainingTimeInMillis(),
		FunctionName:        c.env.FunctionName,
		FunctionVersion:     c.env.FunctionVersion,
		MemoryLimitMB:       c.env.MemoryLimitMB,
		LogGroupName:        c.env.LogGroupName,
		LogStreamName:       c.env.LogStreamName,
		InvokedFunctionArn:  c.invokedFunctionArn,
		TraceID:             c.traceID,
		Identity:            c.identity,
		ClientContext:       c.clientContext,
	})
}

type contextKey struct{}

// NewContext returns ctx carrying ec. The aws-lambda-go lambdacontext is
// attached as well, so handlers written against it keep working.
func NewContext(ctx context.Context, ec *Context) context.Context {
	ctx = lambdacontext.NewContext(ctx, ec.LambdaContext())
	return context.WithValue(ctx, contextKey{}, ec)
}

func FromContext(ctx context.Context) (*Context, bool) {
	ec, ok := ctx.Value(contextKey{}).(*Context)
	return ec, ok
}
