package httpengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	PathContext         = "path"
	RequestContext      = "request"
	ResponseContext     = "response"
	RequestMetaContext  = "request_meta"
	ResponseMetaContext = "response_meta"
	ErrorContext        = "error"
	PanicContext        = "panic"
	DebugContext        = "debug"
)

const (
	ReqMetaRemoteAddr          = "remote_addr"
	ReqMetaXForwardedFor       = "x_forwarded_for"
	ReqMetaXForwardedPort      = "x_forwarded_port"
	ReqMetaXForwardedProto     = "x_forwarded_proto"
	ReqMetaCloudFrontPolicy    = "cloudfront_policy"
	ReqMetaCloudFrontSignature = "cloudfront_signature"
	ReqMetaCloudFrontKeyPairId = "cloudfront_key_pair_id"
	ReqMetaHost                = "host"
	ReqMetaRequestID           = "request_id"
	ReqMetaTraceID             = "trace_id"
)

const (
	RspMetaETag        = "etag"
	RspMetaContentType = "content_type"
	RspMetaContent     = "content"
)

const metaKey = "__meta__"

var methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions}

func (e *Engine) InstallHandlers() {
	e.HandleAllMethods("/", e.OK)
	e.HandleAllMethods("/health-check", e.OK)
	e.HandleAllMethods("/api/*path", e.API)
	e.HandleAllMethods("/_/api/*path", e.Debug, e.API)
	e.HandleAllMethods("/meta/*path", e.Meta)
	e.NoRoute(e.PageNotFound)
	e.NoMethod(e.MethodNotAllowed)
}

func (e *Engine) HandleAllMethods(relativePath string, handlers ...gin.HandlerFunc) {
	for _, method := range methods {
		e.Handle(method, relativePath, handlers...)
	}
}

func (e *Engine) OK(c *gin.Context) {
	c.String(http.StatusOK, "OK")
	c.Abort()
}

func (e *Engine) Debug(c *gin.Context) {
	c.Set(DebugContext, true)
}

func (e *Engine) API(c *gin.Context) {
	c.Set(PathContext, c.Param("path"))
	c.Set(RequestMetaContext, e.genReqMeta(c))

	switch c.Request.Method {
	case http.MethodGet, "":
		c.Set(RequestContext, e.genGetReq(c))
	case http.MethodPost:
		req, err := e.genPostReq(c)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Abort()
			return
		}
		c.Set(RequestContext, req)
	default:
		c.Set(RequestContext, "")
	}

	c.Set(PanicContext, e.doSafe(func() { e.doProcessor(c) }))

	rsp := c.GetString(ResponseContext)
	switch {
	case strings.HasPrefix(rsp, "http://") || strings.HasPrefix(rsp, "https://"):
		c.Redirect(http.StatusTemporaryRedirect, rsp)
		c.Abort()
		return
	case strings.HasPrefix(rsp, "path://"):
		c.Request.URL.Path = "/" + strings.TrimPrefix(rsp, "path://")
		e.HandleContext(c)
		c.Abort()
		return
	case strings.HasPrefix(rsp, "error://"):
		c.String(http.StatusInternalServerError, strings.TrimPrefix(rsp, "error://"))
		c.Abort()
		return
	}

	if c.GetBool(DebugContext) {
		c.String(http.StatusOK, e.formatDebug(c))
		c.Abort()
		return
	}
	if err := contextError(c, PanicContext); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		c.Abort()
		return
	}
	if err := contextError(c, ErrorContext); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		c.Abort()
		return
	}

	contentType, rspBody := e.parseRspMeta(c)
	c.Data(http.StatusOK, contentType, []byte(rspBody))
	c.Abort()
}

func (e *Engine) Meta(c *gin.Context) {
	c.String(http.StatusOK, e.dynamic.Meta(c.Param("path")))
	c.Abort()
}

func (e *Engine) PageNotFound(c *gin.Context) {
	if e.PageNotFoundPath != "" && c.Request.URL.Path != e.PageNotFoundPath {
		c.Request.URL.Path = e.PageNotFoundPath
		e.HandleContext(c)
		c.Abort()
		return
	}
	c.String(http.StatusNotFound, "404 page not found")
	c.Abort()
}

func (e *Engine) MethodNotAllowed(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "405 method not allowed")
	c.Abort()
}

func contextError(c *gin.Context, key string) error {
	if v, ok := c.Get(key); ok && v != nil {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

func (e *Engine) genReqMeta(c *gin.Context) map[string]any {
	meta := map[string]any{}

	meta[ReqMetaXForwardedFor] = c.Request.Header.Get("X-Forwarded-For")
	meta[ReqMetaXForwardedPort] = c.Request.Header.Get("X-Forwarded-Port")
	meta[ReqMetaXForwardedProto] = c.Request.Header.Get("X-Forwarded-Proto")
	meta[ReqMetaRemoteAddr] = c.Request.RemoteAddr
	meta[ReqMetaCloudFrontPolicy] = c.Request.Header.Get("CloudFront-Policy")
	meta[ReqMetaCloudFrontSignature] = c.Request.Header.Get("CloudFront-Signature")
	meta[ReqMetaCloudFrontKeyPairId] = c.Request.Header.Get("CloudFront-Key-Pair-Id")
	meta[ReqMetaHost] = c.Request.Host

	if ec, ok := execution.FromContext(c.Request.Context()); ok {
		meta[ReqMetaRequestID] = ec.AwsRequestID()
		meta[ReqMetaTraceID] = ec.TraceID()
	}

	return meta
}

func (e *Engine) genGetReq(c *gin.Context) string {
	dataMap := map[string]any{}
	for k, v := range c.Request.URL.Query() {
		dataMap[k] = v[0]
	}
	data, err := json.Marshal(dataMap)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (e *Engine) genPostReq(c *gin.Context) (string, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", fmt.Errorf("read request body: %w", err)
	}
	c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewBuffer(data))
	return string(data), nil
}

func (e *Engine) doProcessor(c *gin.Context) {
	path := c.GetString(PathContext)
	req := c.GetString(RequestContext)
	reqMeta := c.GetStringMap(RequestMetaContext)
	if gjson.Valid(req) && gjson.Parse(req).IsObject() && !gjson.Get(req, metaKey).Exists() {
		req, _ = sjson.Set(req, metaKey, reqMeta)
	}
	c.Set(RequestContext, req)

	rsp, err := e.dynamic.Invoke(path, req)
	if gjson.Valid(rsp) && gjson.Get(rsp, metaKey).Exists() {
		rspMeta := make(map[string]any)
		gjson.Get(rsp, metaKey).ForEach(func(key, value gjson.Result) bool {
			rspMeta[key.String()] = value.Value()
			return true
		})
		c.Set(ResponseMetaContext, rspMeta)
		rsp, _ = sjson.Delete(rsp, metaKey)
	}
	c.Set(ResponseContext, rsp)
	c.Set(ErrorContext, err)
}

func (e *Engine) doSafe(f func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()

	f()

	return nil
}

func (e *Engine) formatDebug(c *gin.Context) string {
	var buf bytes.Buffer
	line := func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\n")
	}
	jsonOf := func(v any) string {
		b, _ := json.Marshal(v)
		return string(b)
	}
	errOf := func(key string) string {
		if err := contextError(c, key); err != nil {
			return err.Error()
		}
		return ""
	}

	line("Method", c.Request.Method)
	line("Host", c.Request.Host)
	line("Path", c.GetString(PathContext))
	line("Header", jsonOf(c.Request.Header))
	line("Request Meta", jsonOf(c.GetStringMap(RequestMetaContext)))
	line("Response Meta", jsonOf(c.GetStringMap(ResponseMetaContext)))
	line("Error", errOf(ErrorContext))
	line("Panic", errOf(PanicContext))
	line("Request", c.GetString(RequestContext))
	line("Response", c.GetString(ResponseContext))
	return buf.String()
}

// parseRspMeta picks the content type and body from the tunnel's response
// meta: content_type defaults to application/json, content replaces the
// body, etag becomes the ETag header.
func (e *Engine) parseRspMeta(c *gin.Context) (string, string) {
	respMeta := c.GetStringMap(ResponseMetaContext)
	rspBody := c.GetString(ResponseContext)

	contentType := "application/json"

	if respMeta != nil {
		if etag, ok := respMeta[RspMetaETag]; ok && etag != nil && etag != "" {
			c.Header("ETag", fmt.Sprintf("%v", etag))
		}
		if ct, ok := respMeta[RspMetaContentType]; ok && ct != nil && ct != "" {
			contentType = fmt.Sprintf("%v", ct)
		}
		if content, ok := respMeta[RspMetaContent]; ok && content != nil && content != "" {
			rspBody = fmt.Sprintf("%v", content)
		}
	}

	return contentType, rspBody
}
