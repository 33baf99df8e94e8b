package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/config"
	"github.com/backupqa/qa-agent/internal/server/middlewares"
)

const (
	apiPrefix       = "/api/v1"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	srv    *http.Server
	engine *gin.Engine
	cfg    config.Server
}

func NewServer(cfg *config.Configuration, registerHandlerFn func(router *gin.RouterGroup)) (*Server, error) {
	if cfg.Server.ServerMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middlewares.RequestID(), middlewares.Logger(), middlewares.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router := engine.Group(apiPrefix)
	registerHandlerFn(router)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		cfg:    cfg.Server,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called or ctx is done. It serves TLS when cert files are configured.
func (s *Server) Start(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		zap.S().Named("server").Infow("server started", "addr", s.srv.Addr, "mode", s.cfg.ServerMode, "tls", s.cfg.TLSCertFile != "")
		var err error
		if s.cfg.TLSCertFile != "" {
			err = s.srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop waits for in-flight requests to complete.
func (s *Server) Stop(ctx context.Context) error {
	zap.S().Named("server").Info("shutting down server")
	return s.srv.Shutdown(ctx)
}
