// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stratastor/logger"
	wrerrors "github.com/stratastor/warren/pkg/errors"
)

// Dangerous characters that could enable command injection
var dangerousChars = "&|><$`\\[];{}"

// Command execution timeout
const defaultCommandTimeout = 30 * time.Second

// Result carries the separated streams and exit status of a finished command.
// stdout and stderr are kept apart because ACL tool diagnostics arrive on
// stderr and must be preserved verbatim in errors.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecCommand executes a system command with proper security checks and
// returns stdout. Retained for callers that only care about success.
func ExecCommand(
	ctx context.Context,
	log logger.Logger,
	name string,
	args ...string,
) ([]byte, error) {
	res, err := ExecCommandSplit(ctx, log, name, args...)
	if err != nil {
		return append(res.Stdout, res.Stderr...), err
	}
	return res.Stdout, nil
}

// ExecCommandSplit executes a system command capturing stdout and stderr
// separately.
func ExecCommandSplit(
	ctx context.Context,
	log logger.Logger,
	name string,
	args ...string,
) (Result, error) {
	if err := validateCommand(name, args); err != nil {
		return Result{ExitCode: -1}, err
	}

	// Apply timeout if not already set
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, defaultCommandTimeout)
		defer cancel()
	}

	cmdString := shellquote.Join(append([]string{name}, args...)...)
	log.Debug("Executing command", "cmd", cmdString)

	cmd := exec.CommandContext(ctx, name, args...)

	// Prevent shell expansion
	cmd.Env = []string{}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: 0}
	if err == nil {
		return res, nil
	}

	// A missing binary surfaces as ErrNotFound for $PATH lookups and as an
	// ENOENT path error when the caller configured an absolute path.
	if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
		log.Error("Command binary not found", "cmd", cmdString)
		res.ExitCode = -1
		return res, wrerrors.Wrap(err, wrerrors.CommandNotFound).
			WithMetadata("command", cmdString)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		log.Error("Command execution failed with exit code",
			"cmd", cmdString,
			"exit_code", res.ExitCode,
			"stderr", stderr.String())

		if ctx.Err() != nil {
			return res, wrerrors.Wrap(ctx.Err(), wrerrors.CommandTimeout).
				WithMetadata("command", cmdString)
		}

		return res, wrerrors.NewCommandError(cmdString, res.ExitCode, stderr.String())
	}

	log.Error("Command execution failed",
		"cmd", cmdString,
		"err", err,
		"stderr", stderr.String())

	res.ExitCode = -1
	return res, fmt.Errorf("command execution failed: %w: %s", err, stderr.String())
}

// validateCommand performs security checks on the command and arguments
func validateCommand(name string, args []string) error {
	if name == "" {
		return wrerrors.New(wrerrors.CommandInvalidInput, "empty command")
	}

	// Check for absolute path or valid command name
	if !strings.HasPrefix(name, "/") && strings.ContainsAny(name, "/\\") {
		return wrerrors.New(
			wrerrors.CommandInvalidInput,
			"relative paths are not allowed for commands",
		)
	}

	if strings.ContainsAny(name, dangerousChars) {
		return wrerrors.New(wrerrors.CommandInvalidInput, "command contains invalid characters")
	}

	// Validate args don't contain dangerous characters
	for _, arg := range args {
		if strings.ContainsAny(arg, dangerousChars) {
			return wrerrors.New(
				wrerrors.CommandInvalidInput,
				"argument contains invalid characters",
			)
		}
	}

	// Limit arguments count
	if len(args) > 64 {
		return wrerrors.New(wrerrors.CommandInvalidInput, "too many arguments")
	}

	return nil
}
