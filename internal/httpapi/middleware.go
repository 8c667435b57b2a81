package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	logx "alertrelay/pkg/logx"
)

// RecoveryLogger turns handler panics into a logged 500.
func RecoveryLogger(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("http handler panic",
					logx.Any("panic", r),
					logx.String("method", c.Request.Method),
					logx.String("path", c.Request.URL.Path),
					logx.String("client_ip", c.ClientIP()),
					logx.String("stack", string(debug.Stack())),
				)
				c.Abort()
				c.String(http.StatusInternalServerError, genericFailure)
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one line per request, at a level picked by status.
func RequestLogger(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logx.Field{
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", status),
			logx.Duration("latency", time.Since(start)),
			logx.Int("response_size", c.Writer.Size()),
			logx.String("remote_addr", c.Request.RemoteAddr),
		}
		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
