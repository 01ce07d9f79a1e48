// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratastor/logger"
	"github.com/stratastor/warren/internal/command"
	"github.com/stratastor/warren/pkg/errors"
)

// BinGetfacl is the default path to the getfacl binary
const BinGetfacl = "/usr/bin/getfacl"

// BinSetfacl is the default path to the setfacl binary
const BinSetfacl = "/usr/bin/setfacl"

// Reader reads ACL state from the filesystem via getfacl. Nothing is
// cached: every call re-reads the filesystem, which is the sole source of
// truth.
type Reader struct {
	logger  logger.Logger
	getfacl string
}

// NewReader creates a reader. getfaclPath overrides the binary location;
// empty means the default.
func NewReader(l logger.Logger, getfaclPath string) *Reader {
	if getfaclPath == "" {
		getfaclPath = BinGetfacl
	}
	return &Reader{logger: l, getfacl: getfaclPath}
}

// Read fetches and parses the ACL entry set for one resolved path.
func (r *Reader) Read(ctx context.Context, path string) (PathACL, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return PathACL{}, errors.New(errors.ACLPathNotFound,
				"Path does not exist").WithMetadata("path", path)
		}
		return PathACL{}, errors.Wrap(err, errors.ACLReadError).
			WithMetadata("path", path)
	}

	// -p keeps paths absolute so the header block names the path verbatim
	res, err := command.ExecCommandSplit(ctx, r.logger, r.getfacl, "-p", path)
	if err != nil {
		return PathACL{}, mapCommandError(err, res, path, errors.ACLReadError)
	}

	result, err := parseGetfaclOutput(string(res.Stdout))
	if err != nil {
		return PathACL{}, errors.Wrap(err, errors.ACLParseError).
			WithMetadata("path", path)
	}
	result.Path = path

	return result, nil
}

// ReadTree reads the path and, when it is a directory, every descendant.
// Symlinked children are skipped, never followed.
func (r *Reader) ReadTree(ctx context.Context, path string) (PathACL, error) {
	result, err := r.Read(ctx, path)
	if err != nil {
		return PathACL{}, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return PathACL{}, errors.Wrap(err, errors.ACLReadError).
			WithMetadata("path", path)
	}
	if !info.IsDir() {
		return result, nil
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return PathACL{}, errors.Wrap(err, errors.ACLReadError).
			WithMetadata("path", path)
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return PathACL{}, errors.Wrap(err, errors.ACLOperationTimedOut).
				WithMetadata("path", path)
		}
		if child.Type()&os.ModeSymlink != 0 {
			continue
		}

		childResult, err := r.ReadTree(ctx, filepath.Join(path, child.Name()))
		if err != nil {
			return PathACL{}, err
		}
		result.Children = append(result.Children, childResult)
	}

	return result, nil
}

// mapCommandError converts an execution failure into the engine's error
// taxonomy, inspecting exit status and stderr diagnostics.
func mapCommandError(err error, res command.Result, path string, fallback errors.ErrorCode) error {
	if code, ok := errors.GetCode(err); ok && code == errors.CommandNotFound {
		return errors.Wrap(err, errors.ACLCommandUnavailable).
			WithMetadata("path", path)
	}
	if code, ok := errors.GetCode(err); ok && code == errors.CommandTimeout {
		return errors.Wrap(err, errors.ACLOperationTimedOut).
			WithMetadata("path", path)
	}

	stderr := string(res.Stderr)
	switch {
	case strings.Contains(stderr, "No such file or directory"):
		return errors.New(errors.ACLPathNotFound, "Path does not exist").
			WithMetadata("path", path)
	case strings.Contains(stderr, "Permission denied"):
		return errors.New(errors.ACLPermissionDenied,
			"Operation not permitted on path").
			WithMetadata("path", path).
			WithMetadata("stderr", strings.TrimSpace(stderr))
	}

	return errors.Wrap(err, fallback).
		WithMetadata("path", path).
		WithMetadata("stderr", strings.TrimSpace(stderr))
}
