// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Gist of what's happening:
//
// We're using Gin's Engine (gin.New()) which provides:
// - A router with middleware support
// - HTTP handler implementation (ServeHTTP)
// - Recovery middleware for handling panics
// And then we add custom middlewares for logging, request IDs, etc.
//
// When assigned to http.Server.Handler, we're using Gin's ServeHTTP method
// since gin.Engine implements http.Handler interface
//
// This gives us several benefits:
// - Graceful Shutdown: Using http.Server gives us control over graceful shutdown through the Shutdown() method
// - Context Integration: We can properly integrate with the application's context for lifecycle management
// - Timeouts: We can set various timeouts (read, write, idle) on the server
// - Error Handling: Better control over startup errors and shutdown process
// - Middleware: Still have access to all of Gin's middleware and routing features
//
// The main tradeoff is slightly more complex(strange?) code compared to gin.Run(), but the benefits of proper lifecycle management and graceful shutdown make it worthwhile for a production service.
// This setup integrates well with our lifecycle package for signal handling and graceful shutdown.

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/warren/config"
	"github.com/stratastor/warren/pkg/audit"
	"github.com/stratastor/warren/pkg/directory"
)

var srv *http.Server

func Start(ctx context.Context, port int) error {
	l, err := logger.NewTag(config.NewLoggerConfig(config.GetConfig()), "server")
	if err != nil {
		return err
	}
	cfg := config.GetConfig()

	// Switch to debug mode for non-production environments
	switch cfg.Environment {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	// Create engine without middleware
	engine := gin.New()

	engine.Use(gin.Recovery())

	// Logging middleware
	engine.Use(LoggerMiddleware(l))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sandbox": cfg.Sandbox.Root})
	})

	// Principal resolution is shared between the ACL engine and the audit
	// job; the LDAP connection (if any) is held for the server's lifetime.
	resolver, err := directory.NewResolver(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize principal resolver: %w", err)
	}
	defer closeResolver(resolver)

	aclEngine, err := registerACLRoutes(engine, cfg, resolver)
	if err != nil {
		return fmt.Errorf("failed to register ACL routes: %w", err)
	}

	// File browsing rides on the ACL engine's sandbox; a failure here is not
	// fatal since the core ACL surface is already up.
	if err := registerFilesRoutes(engine, cfg, aclEngine.Sandbox()); err != nil {
		l.Error(
			"Failed to register file browsing routes, continuing without browsing functionality",
			"error",
			err,
		)
	}

	var auditor *audit.Auditor
	if cfg.Audit.Enabled {
		auditor, err = startAuditJob(cfg, aclEngine, resolver)
		if err != nil {
			l.Error("Failed to start ACL audit job, continuing without audits", "error", err)
		} else {
			l.Info("ACL drift audit scheduled", "cron", cfg.Audit.Cron)
			defer func() {
				if err := auditor.Stop(); err != nil {
					l.Warn("Failed to stop audit scheduler", "error", err)
				}
			}()
		}
	}

	srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	// Channel to catch server startup errors
	errChan := make(chan error, 1)

	// While gin.Run() would be simpler, it:
	// - Doesn't support graceful shutdown
	// - Blocks until the server exits
	// - Doesn't integrate with our context-based lifecycle management from lifecycle package
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				errChan <- err
			}
		}
	}()

	l.Info("Warren listening", "addr", srv.Addr, "sandbox", cfg.Sandbox.Root)

	// Wait for either server error or context cancellation
	select {
	case err := <-errChan:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
		return Shutdown(ctx)
	}
}

func Shutdown(ctx context.Context) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func closeResolver(r directory.Resolver) {
	if c, ok := r.(*directory.LDAPResolver); ok {
		c.Close()
	}
}
