package httpadapter

import (
	"bytes"
	"context"
	"net/http"
)

// Handler runs h as the terminal request handler and captures what it writes.
func Handler(h http.Handler) RequestHandler {
	return RequestHandlerFunc(func(ctx context.Context, req *http.Request) (*Response, error) {
		w := newResponseWriter()
		h.ServeHTTP(w, req.WithContext(ctx))
		return w.response(), nil
	})
}

// StaticResponse always answers with the same status and body.
func StaticResponse(status int, contentType string, body []byte) RequestHandler {
	return RequestHandlerFunc(func(ctx context.Context, req *http.Request) (*Response, error) {
		header := http.Header{}
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		return &Response{StatusCode: status, Header: header, Body: body}, nil
	})
}

type responseWriter struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}, status: http.StatusOK}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

func (w *responseWriter) Flush() {}

func (w *responseWriter) response() *Response {
	return &Response{
		StatusCode: w.status,
		Header:     w.header.Clone(),
		Body:       w.body.Bytes(),
	}
}
