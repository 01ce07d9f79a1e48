// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stratastor/warren/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSandbox(t *testing.T) (*Sandbox, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj1", "sub"), 0755))
	require.NoError(t,
		os.WriteFile(filepath.Join(root, "proj1", "a.txt"), []byte("x"), 0644))

	s, err := NewSandbox(root)
	require.NoError(t, err)
	return s, root
}

func TestSandboxResolve(t *testing.T) {
	s, root := setupSandbox(t)
	// TempDir may itself sit behind a symlink (macOS /tmp); compare
	// against the sandbox's resolved view.
	resolvedRoot := s.Root()

	t.Run("ValidPaths", func(t *testing.T) {
		got, err := s.Resolve("proj1/a.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(resolvedRoot, "proj1", "a.txt"), got)

		got, err = s.Resolve(".")
		require.NoError(t, err)
		assert.Equal(t, resolvedRoot, got)

		got, err = s.Resolve("proj1/sub")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(resolvedRoot, "proj1", "sub"), got)
	})

	t.Run("TraversalRejected", func(t *testing.T) {
		for _, p := range []string{
			"../etc/passwd",
			"../../etc/passwd",
			"proj1/../../etc/passwd",
			"proj1/sub/../../../etc/passwd",
		} {
			_, err := s.Resolve(p)
			require.Error(t, err, "path %q must not resolve", p)
			code, ok := errors.GetCode(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorCode(errors.SandboxPathViolation), code, "path %q", p)
		}
	})

	t.Run("AbsolutePathRejected", func(t *testing.T) {
		_, err := s.Resolve("/etc/passwd")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.SandboxPathViolation), code)
	})

	t.Run("SymlinkEscapeRejected", func(t *testing.T) {
		outside := t.TempDir()
		require.NoError(t,
			os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0644))
		require.NoError(t,
			os.Symlink(outside, filepath.Join(root, "proj1", "escape")))

		for _, p := range []string{"proj1/escape", "proj1/escape/secret"} {
			_, err := s.Resolve(p)
			require.Error(t, err, "path %q must not resolve", p)
			code, _ := errors.GetCode(err)
			assert.Equal(t, errors.ErrorCode(errors.SandboxPathViolation), code, "path %q", p)
		}
	})

	t.Run("InternalSymlinkAllowed", func(t *testing.T) {
		require.NoError(t,
			os.Symlink(filepath.Join(root, "proj1", "sub"),
				filepath.Join(root, "proj1", "alias")))

		got, err := s.Resolve("proj1/alias")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(s.Root(), "proj1", "sub"), got)
	})

	t.Run("MissingPath", func(t *testing.T) {
		_, err := s.Resolve("proj1/nope")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.SandboxPathNotFound), code)
	})
}

func TestSandboxResolveForWrite(t *testing.T) {
	s, _ := setupSandbox(t)

	t.Run("NewLeafUnderExistingParent", func(t *testing.T) {
		got, err := s.ResolveForWrite("proj1/new.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(s.Root(), "proj1", "new.txt"), got)
	})

	t.Run("MissingParent", func(t *testing.T) {
		_, err := s.ResolveForWrite("nope/new.txt")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.SandboxParentNotFound), code)
	})

	t.Run("TraversalRejected", func(t *testing.T) {
		_, err := s.ResolveForWrite("../new.txt")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.SandboxPathViolation), code)
	})
}

func TestSandboxRel(t *testing.T) {
	s, _ := setupSandbox(t)

	assert.Equal(t, "/", s.Rel(s.Root()))
	assert.Equal(t, "/proj1/a.txt", s.Rel(filepath.Join(s.Root(), "proj1", "a.txt")))
}

func TestNewSandboxValidation(t *testing.T) {
	t.Run("RelativeRootRejected", func(t *testing.T) {
		_, err := NewSandbox("relative/root")
		require.Error(t, err)
	})

	t.Run("MissingRootRejected", func(t *testing.T) {
		_, err := NewSandbox(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})

	t.Run("FileRootRejected", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
		_, err := NewSandbox(f)
		require.Error(t, err)
	})
}
