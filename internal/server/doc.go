// Package server provides the HTTP server of the qa-agent.
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│  dev: HTTP, gin debug mode       prod: gin release mode       │
//	│  TLS when cert and key files are configured                   │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Middleware Stack                        │
//	│  RequestID (X-Request-Id header, generated when absent)       │
//	│  Logger    (gin-contrib/zap, "http" logger, /health skipped)  │
//	│  Recovery  (ginzap.RecoveryWithZap, stack traces)             │
//	├───────────────────────────────────────────────────────────────┤
//	│  GET /health                                                  │
//	│  /api/v1 handlers registered through a callback               │
//	└───────────────────────────────────────────────────────────────┘
//
// Creation:
//
//	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
//	    v1.RegisterHandlers(router, handler)
//	})
//
// Start blocks until the listener fails or ctx is canceled, in which case the
// server is shut down gracefully. Stop can also be called directly.
package server
