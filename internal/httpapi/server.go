package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	logx "alertrelay/pkg/logx"
)

type Config struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// RequestLog enables the per-request log middleware.
	RequestLog bool
}

// Controller contributes routes to the engine.
type Controller interface {
	RegisterRoutes(router *gin.Engine)
}

const shutdownTimeout = 5 * time.Second

var ginModeOnce sync.Once

type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(cfg Config, log logx.Logger, controllers ...Controller) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })

	router := gin.New()
	router.Use(RecoveryLogger(log))
	if cfg.RequestLog {
		router.Use(RequestLogger(log))
	}
	for _, c := range controllers {
		c.RegisterRoutes(router)
	}

	return &Server{
		log: log,
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. A listener failure is returned as an error.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			s.log.Warn("http shutdown error", logx.Err(err))
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
