package runtimeapi

import "net/http"

const Version = "2018-06-01"

const (
	HeaderRequestID          = "Lambda-Runtime-Aws-Request-Id"
	HeaderDeadlineMs         = "Lambda-Runtime-Deadline-Ms"
	HeaderInvokedFunctionArn = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderTraceID            = "Lambda-Runtime-Trace-Id"
	HeaderCognitoIdentity    = "Lambda-Runtime-Cognito-Identity"
	HeaderClientContext      = "Lambda-Runtime-Client-Context"
	HeaderFunctionErrorType  = "Lambda-Runtime-Function-Error-Type"
)

const ErrorTypeUnhandled = "Unhandled"

const (
	PathNext      = "/" + Version + "/runtime/invocation/next"
	PathInitError = "/" + Version + "/runtime/init/error"
)

func ResponsePath(requestID string) string {
	return "/" + Version + "/runtime/invocation/" + requestID + "/response"
}

func ErrorPath(requestID string) string {
	return "/" + Version + "/runtime/invocation/" + requestID + "/error"
}

// ErrorBody is the document posted to the error endpoints.
type ErrorBody struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType"`
	Trace        []string `json:"trace"`
}

// Invocation is one unit of work returned by the next-invocation long poll.
// Header accessors return "" for absent headers.
type Invocation struct {
	Header http.Header
	Body   []byte
}

func (i *Invocation) RequestID() string          { return i.Header.Get(HeaderRequestID) }
func (i *Invocation) DeadlineMs() string         { return i.Header.Get(HeaderDeadlineMs) }
func (i *Invocation) InvokedFunctionArn() string { return i.Header.Get(HeaderInvokedFunctionArn) }
func (i *Invocation) TraceID() string            { return i.Header.Get(HeaderTraceID) }
func (i *Invocation) CognitoIdentity() string    { return i.Header.Get(HeaderCognitoIdentity) }
func (i *Invocation) ClientContext() string      { return i.Header.Get(HeaderClientContext) }
