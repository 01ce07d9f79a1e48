// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/stratastor/warren/pkg/errors"
)

// Sandbox confines path resolution to one directory tree. Every
// user-supplied path is resolved against the root and the result is
// checked after symlink resolution, so neither ".." segments nor a symlink
// planted inside the tree can reach outside it.
type Sandbox struct {
	root string // absolute, symlink-resolved
}

// NewSandbox validates the root directory and resolves it to its real path.
func NewSandbox(root string) (*Sandbox, error) {
	if root == "" || !filepath.IsAbs(root) {
		return nil, errors.New(errors.SandboxRootInvalid,
			"Sandbox root must be an absolute path").
			WithMetadata("root", root)
	}

	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.SandboxRootInvalid).
			WithMetadata("root", root)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.SandboxRootInvalid).
			WithMetadata("root", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.SandboxRootInvalid,
			"Sandbox root is not a directory").
			WithMetadata("root", root)
	}

	return &Sandbox{root: resolved}, nil
}

// Root returns the resolved sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// prefilter rejects paths that are obviously outside the sandbox before
// touching the filesystem.
func (s *Sandbox) prefilter(userPath string) error {
	if filepath.IsAbs(userPath) {
		return errors.New(errors.SandboxPathViolation,
			"Absolute paths are not permitted").
			WithMetadata("path", userPath)
	}
	for _, seg := range strings.Split(filepath.ToSlash(userPath), "/") {
		if seg == ".." {
			return errors.New(errors.SandboxPathViolation,
				"Path traversal is not permitted").
				WithMetadata("path", userPath)
		}
	}
	return nil
}

// contains reports whether resolved lies within the sandbox root.
func (s *Sandbox) contains(resolved string) bool {
	return resolved == s.root || strings.HasPrefix(resolved, s.root+string(os.PathSeparator))
}

// Resolve resolves a user-supplied relative path for a read operation. The
// target must exist, and its real path (after following every symlink on
// the way) must remain within the root.
func (s *Sandbox) Resolve(userPath string) (string, error) {
	if err := s.prefilter(userPath); err != nil {
		return "", err
	}

	candidate := filepath.Join(s.root, filepath.Clean("/"+userPath))

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New(errors.SandboxPathNotFound,
				"Path does not exist").WithMetadata("path", userPath)
		}
		return "", errors.Wrap(err, errors.SandboxPathViolation).
			WithMetadata("path", userPath)
	}

	if !s.contains(resolved) {
		return "", errors.New(errors.SandboxPathViolation,
			"Path escapes the sandbox root").
			WithMetadata("path", userPath)
	}

	return resolved, nil
}

// ResolveForWrite resolves a path whose leaf may not exist yet. The parent
// directory must exist and resolve inside the root; the returned path is
// the resolved parent joined with the leaf name.
func (s *Sandbox) ResolveForWrite(userPath string) (string, error) {
	if err := s.prefilter(userPath); err != nil {
		return "", err
	}

	candidate := filepath.Join(s.root, filepath.Clean("/"+userPath))
	parent, leaf := filepath.Split(candidate)

	resolvedParent, err := filepath.EvalSymlinks(filepath.Clean(parent))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New(errors.SandboxParentNotFound,
				"Parent directory does not exist").
				WithMetadata("path", userPath)
		}
		return "", errors.Wrap(err, errors.SandboxPathViolation).
			WithMetadata("path", userPath)
	}

	if !s.contains(resolvedParent) {
		return "", errors.New(errors.SandboxPathViolation,
			"Path escapes the sandbox root").
			WithMetadata("path", userPath)
	}

	return filepath.Join(resolvedParent, leaf), nil
}

// Rel converts a resolved absolute path back to the sandbox-relative form
// used at the API surface.
func (s *Sandbox) Rel(resolved string) string {
	rel, err := filepath.Rel(s.root, resolved)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}
