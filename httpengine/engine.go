// Package httpengine is the default terminal request handler: a gin engine
// that forwards /api requests to dynamic tunnels.
package httpengine

import (
	"net/http"
	"time"

	"github.com/aura-studio/lambda-runtime/dynamic"
	"github.com/gin-gonic/gin"
)

type Engine struct {
	*Options
	*gin.Engine
	dynamic *dynamic.Dynamic
}

func NewEngine(d *dynamic.Dynamic, opts ...Option) *Engine {
	e := &Engine{
		Options: NewOptions(opts...),
		dynamic: d,
	}

	if !e.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	e.Engine = gin.New()
	e.Use(gin.Recovery(), e.AccessLog)

	if e.CorsMode {
		e.Use(Cors())
	}

	e.InstallHandlers()

	return e
}

// AccessLog logs each request at debug level.
func (e *Engine) AccessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	e.Logger.Debug("http", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "took", time.Since(start))
}

// Cors allows any origin.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
