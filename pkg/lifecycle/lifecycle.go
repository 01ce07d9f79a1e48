// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/stratastor/warren/pkg/errors"
)

var (
	shutdownHooks []func()
	reloadHooks   []func()
	cancel        context.CancelFunc
)

func RegisterShutdownHook(hook func()) {
	shutdownHooks = append(shutdownHooks, hook)
}

// RegisterReloadHook adds a hook invoked on SIGHUP, e.g. to reopen log
// files or reparse configuration.
func RegisterReloadHook(hook func()) {
	reloadHooks = append(reloadHooks, hook)
}

func RegisterContextCanceller(c context.CancelFunc) {
	cancel = c
}

func HandleSignals(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		select {
		case sig := <-stop:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				shutdown()
				return
			case syscall.SIGHUP:
				reload()
			}
		case <-ctx.Done():
			return
		}
	}
}

func shutdown() {
	// Cancel context first
	if cancel != nil {
		cancel()
	}
	// Hooks run in reverse registration order so dependents stop before
	// the things they depend on.
	for i := len(shutdownHooks) - 1; i >= 0; i-- {
		shutdownHooks[i]()
	}
	os.Exit(0)
}

func reload() {
	for _, hook := range reloadHooks {
		hook()
	}
}

func EnsureSingleInstance(pidPath string) error {
	if pidPath == "" {
		return errors.New(errors.LifecyclePID, "Invalid PID file path")
	}

	// Check if PID file exists
	if _, err := os.Stat(pidPath); err == nil {
		// Read PID file
		pidBytes, err := os.ReadFile(pidPath)
		if err != nil {
			return errors.Wrap(err, errors.LifecyclePID).
				WithMetadata("path", pidPath)
		}

		content := strings.TrimSpace(string(pidBytes))
		if content == "" {
			// Remove stale empty PID file
			os.Remove(pidPath)
		} else {
			pid, err := strconv.Atoi(content)
			if err != nil {
				return errors.Wrap(err, errors.LifecyclePID).
					WithMetadata("path", pidPath).
					WithMetadata("content", content)
			}

			// Check if process exists
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return errors.New(errors.LifecyclePID,
						fmt.Sprintf("Another instance is already running (PID: %d)", pid))
				}
			}
			// Process not running, remove stale PID file
			os.Remove(pidPath)
		}
	}

	// Write current PID to file
	currentPid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(currentPid)), 0644); err != nil {
		return errors.Wrap(err, errors.LifecyclePID).
			WithMetadata("path", pidPath)
	}

	// Register cleanup on shutdown
	RegisterShutdownHook(func() {
		os.Remove(pidPath)
	})

	return nil
}
