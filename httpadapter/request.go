package httpadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aws/aws-lambda-go/events"
	"github.com/tidwall/gjson"
)

const arraySuffix = "[]"

type sourceEventKey struct{}

// EventFromContext returns the API Gateway event a request was built from.
func EventFromContext(ctx context.Context) (events.APIGatewayProxyRequest, bool) {
	ev, ok := ctx.Value(sourceEventKey{}).(events.APIGatewayProxyRequest)
	return ev, ok
}

// NewRequest builds an HTTP request from an API Gateway proxy event.
func NewRequest(ctx context.Context, ev *event.Event) (*http.Request, error) {
	p := ev.Payload
	if !p.IsObject() {
		return nil, &AdaptationError{Reason: "event is not a JSON object"}
	}
	for _, field := range []string{"httpMethod", "path"} {
		if v := p.Get(field); v.Type != gjson.String || v.String() == "" {
			return nil, &AdaptationError{Field: field, Reason: "missing or not a string"}
		}
	}

	var in events.APIGatewayProxyRequest
	if err := json.Unmarshal(p, &in); err != nil {
		return nil, &AdaptationError{Reason: "malformed event", Err: err}
	}

	var body io.Reader = http.NoBody
	if v := p.Get("body"); v.Exists() && v.Type != gjson.Null {
		data := []byte(in.Body)
		if in.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(in.Body)
			if err != nil {
				return nil, &AdaptationError{Field: "body", Reason: "invalid base64", Err: err}
			}
			data = decoded
		}
		body = bytes.NewReader(data)
	}

	ctx = context.WithValue(ctx, sourceEventKey{}, in)
	req, err := http.NewRequestWithContext(ctx, in.HTTPMethod, "/", body)
	if err != nil {
		return nil, &AdaptationError{Field: "httpMethod", Reason: "invalid method", Err: err}
	}
	req.URL = &url.URL{
		Path:     in.Path,
		RawQuery: queryValues(in).Encode(),
	}
	req.RequestURI = req.URL.RequestURI()
	req.RemoteAddr = in.RequestContext.Identity.SourceIP

	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}
	for k, values := range in.MultiValueHeaders {
		for i, v := range values {
			if i == 0 {
				req.Header.Set(k, v)
			} else {
				req.Header.Add(k, v)
			}
		}
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}

	return req, nil
}

// queryValues uses the single-valued parameters, except for keys ending in
// "[]" whose values come from the multi-valued map with the suffix stripped.
func queryValues(in events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, v := range in.QueryStringParameters {
		if !strings.HasSuffix(k, arraySuffix) {
			q.Set(k, v)
		}
	}
	for k, v := range in.QueryStringParameters {
		name, ok := strings.CutSuffix(k, arraySuffix)
		if !ok {
			continue
		}
		if values, ok := in.MultiValueQueryStringParameters[k]; ok {
			q[name] = append([]string(nil), values...)
		} else {
			q.Set(name, v)
		}
	}
	for k, values := range in.MultiValueQueryStringParameters {
		name, ok := strings.CutSuffix(k, arraySuffix)
		if !ok {
			continue
		}
		if _, ok := in.QueryStringParameters[k]; !ok {
			q[name] = append([]string(nil), values...)
		}
	}
	return q
}
