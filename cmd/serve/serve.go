// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/logger"

	"github.com/stratastor/warren/config"
	"github.com/stratastor/warren/internal/common"
	"github.com/stratastor/warren/internal/constants"
	"github.com/stratastor/warren/pkg/lifecycle"
	"github.com/stratastor/warren/pkg/server"
)

var detached bool

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Warren server",
		Run:   runServe,
	}

	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) {
	lcfg := config.NewLoggerConfig(config.GetConfig())
	log, err := logger.NewTag(lcfg, "serve")
	if err != nil {
		panic(err)
	}

	wc := config.GetConfig()
	pidFile := constants.WarrenPIDFilePath
	// Check for existing instance before proceeding
	if err := lifecycle.EnsureSingleInstance(pidFile); err != nil {
		log.Error("Failed to start: %v", err)
		os.Exit(1)
	}

	if detached {
		if err := common.EnsureDir(filepath.Dir(wc.Logs.Path), 0750); err != nil {
			log.Error("Failed to create log directory: %v", err)
			os.Exit(1)
		}

		ctx := &daemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0644,
			LogFileName: wc.Logs.Path,
			LogFilePerm: 0640,
			WorkDir:     "/",
			Umask:       027,
			Args:        []string{"warren", "serve"},
		}

		d, err := ctx.Reborn()
		if err != nil {
			log.Error("Failed to start daemon: %v", err)
			os.Exit(1)
		}

		if d != nil {
			log.Info("Warren is running as a daemon")
			return
		}
		defer ctx.Release()
	}

	startServer()
}

func startServer() {
	lcfg := config.NewLoggerConfig(config.GetConfig())
	log, err := logger.NewTag(lcfg, "serve")
	if err != nil {
		panic(err)
	}
	cfg := config.GetConfig()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register the context canceller
	lifecycle.RegisterContextCanceller(cancel)

	// Register shutdown hook for server cleanup
	lifecycle.RegisterShutdownHook(func() {
		log.Info("Shutting down server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Error during server shutdown: %v", err)
		}
	})

	// Start handling lifecycle signals (e.g., SIGTERM, SIGHUP)
	go lifecycle.HandleSignals(ctx)

	// Start the server
	log.Info("Starting Warren server on port %d...", cfg.Server.Port)
	if err := server.Start(ctx, cfg.Server.Port); err != nil {
		log.Error("Failed to start server: %v", err)
	}
}
