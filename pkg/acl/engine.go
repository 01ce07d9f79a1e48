// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"context"
	"os"

	"github.com/stratastor/logger"
	"github.com/stratastor/warren/pkg/errors"
)

// PrincipalResolver verifies that a named user or group exists before it is
// written into an ACL. Implementations resolve against the local passwd
// and group databases or a directory service.
type PrincipalResolver interface {
	LookupUser(ctx context.Context, name string) error
	LookupGroup(ctx context.Context, name string) error
}

// Config carries the engine's construction-time settings. The engine never
// reads ambient process state, so multiple engines with different roots can
// coexist in one process.
type Config struct {
	// Root is the sandbox root directory; no operation leaves it.
	Root string
	// AllowDefaultEntries permits managing default-scope (inheritance)
	// entries. Deployments that disable it reject any request carrying
	// default entries.
	AllowDefaultEntries bool
	// GetfaclPath and SetfaclPath override the tool locations; empty
	// means the standard install paths.
	GetfaclPath string
	SetfaclPath string
	// VerifyPrincipals resolves named users and groups before writing.
	VerifyPrincipals bool
}

// Engine reads, validates, diffs and applies POSIX ACL state for paths
// under one sandbox root, serializing concurrent modifications per path.
type Engine struct {
	logger   logger.Logger
	cfg      Config
	sandbox  *Sandbox
	locks    *LockManager
	reader   *Reader
	writer   *Writer
	resolver PrincipalResolver
}

// NewEngine constructs an engine for the configured sandbox root. resolver
// may be nil when Config.VerifyPrincipals is false.
func NewEngine(l logger.Logger, cfg Config, resolver PrincipalResolver) (*Engine, error) {
	sandbox, err := NewSandbox(cfg.Root)
	if err != nil {
		return nil, err
	}
	if cfg.VerifyPrincipals && resolver == nil {
		return nil, errors.New(errors.ACLInvalidInput,
			"Principal verification enabled without a resolver")
	}

	reader := NewReader(l, cfg.GetfaclPath)
	return &Engine{
		logger:   l,
		cfg:      cfg,
		sandbox:  sandbox,
		locks:    NewLockManager(),
		reader:   reader,
		writer:   NewWriter(l, cfg.SetfaclPath, reader),
		resolver: resolver,
	}, nil
}

// Sandbox exposes the engine's path sandbox for sibling collaborators that
// browse the same tree.
func (e *Engine) Sandbox() *Sandbox {
	return e.sandbox
}

// SetRequest is one ACL change request.
type SetRequest struct {
	// Path is relative to the sandbox root.
	Path string
	// Entries is the complete desired entry set for the path.
	Entries EntrySet
	// Recursive applies access entries to every descendant and default
	// entries to every descendant directory.
	Recursive bool
	// HonorMask keeps a caller-supplied mask entry even when it is
	// narrower than the union of named permissions. Without it the mask
	// is always recomputed.
	HonorMask bool
}

// GetACL reads the current ACL state of a path. With recursive set on a
// directory, the whole subtree is read under a subtree lock so a racing
// writer cannot interleave.
func (e *Engine) GetACL(ctx context.Context, relPath string, recursive bool) (PathACL, error) {
	resolved, err := e.sandbox.Resolve(relPath)
	if err != nil {
		return PathACL{}, err
	}

	release, err := e.locks.Acquire(ctx, resolved, recursive)
	if err != nil {
		return PathACL{}, err
	}
	defer release()

	var result PathACL
	if recursive {
		result, err = e.reader.ReadTree(ctx, resolved)
	} else {
		result, err = e.reader.Read(ctx, resolved)
	}
	if err != nil {
		return PathACL{}, err
	}

	e.relativize(&result)
	return result, nil
}

// SetACL drives one full read-modify-write cycle: resolve, validate, lock,
// read, diff, apply, re-read. The returned state is read back from the
// filesystem after the apply.
func (e *Engine) SetACL(ctx context.Context, req SetRequest) (PathACL, error) {
	resolved, err := e.sandbox.Resolve(req.Path)
	if err != nil {
		return PathACL{}, err
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		return PathACL{}, errors.Wrap(err, errors.ACLReadError).
			WithMetadata("path", req.Path)
	}

	desired, err := e.prepareDesired(ctx, req.Entries, info.IsDir(), req.HonorMask)
	if err != nil {
		return PathACL{}, err
	}

	release, err := e.locks.Acquire(ctx, resolved, req.Recursive)
	if err != nil {
		return PathACL{}, err
	}
	defer release()

	current, err := e.reader.Read(ctx, resolved)
	if err != nil {
		return PathACL{}, err
	}

	diff, err := ComputeDiff(current.Entries, desired)
	if err != nil {
		return PathACL{}, err
	}

	e.logger.Debug("Applying ACL diff",
		"path", req.Path,
		"add", len(diff.Add),
		"modify", len(diff.Modify),
		"remove", len(diff.Remove),
		"recursive", req.Recursive)

	result, err := e.writer.Apply(ctx, resolved, diff, req.Recursive)
	if err != nil {
		e.logger.Error("ACL change failed",
			"path", req.Path,
			"recursive", req.Recursive,
			"before", len(current.Entries),
			"err", err)
		return PathACL{}, err
	}

	e.logger.Info("ACL changed",
		"path", req.Path,
		"recursive", req.Recursive,
		"before", len(current.Entries),
		"after", len(result.Entries),
		"added", len(diff.Add),
		"modified", len(diff.Modify),
		"removed", len(diff.Remove))

	e.relativize(&result)
	return result, nil
}

// ValidateACL normalizes and validates a desired entry set without
// touching the filesystem.
func (e *Engine) ValidateACL(ctx context.Context, entries EntrySet, isDir bool) (EntrySet, error) {
	return e.prepareDesired(ctx, entries, isDir, false)
}

// prepareDesired runs the pre-flight pipeline shared by SetACL and
// ValidateACL: deployment policy, normalization, invariant validation and
// optional principal verification.
func (e *Engine) prepareDesired(ctx context.Context, entries EntrySet, isDir, honorMask bool) (EntrySet, error) {
	if !e.cfg.AllowDefaultEntries && entries.HasScope(ScopeDefault) {
		return nil, errors.New(errors.ACLDefaultsDisabled,
			"Default-scope entries are disabled by configuration")
	}

	desired := Normalize(entries, honorMask)
	if err := Validate(desired, isDir); err != nil {
		return nil, err
	}

	if e.cfg.VerifyPrincipals {
		if err := e.verifyPrincipals(ctx, desired); err != nil {
			return nil, err
		}
	}

	return desired, nil
}

func (e *Engine) verifyPrincipals(ctx context.Context, entries EntrySet) error {
	checked := make(map[Key]bool)
	for _, entry := range entries {
		if !entry.IsNamed() {
			continue
		}
		k := Key{Kind: entry.Kind, Qualifier: entry.Qualifier}
		if checked[k] {
			continue
		}
		checked[k] = true

		var err error
		if entry.Kind == TagNamedUser {
			err = e.resolver.LookupUser(ctx, entry.Qualifier)
		} else {
			err = e.resolver.LookupGroup(ctx, entry.Qualifier)
		}
		if err != nil {
			return errors.Wrap(err, errors.ACLInvalidPrincipal).
				WithMetadata("principal", entry.Qualifier).
				WithMetadata("kind", string(entry.Kind))
		}
	}
	return nil
}

// relativize rewrites resolved paths in a result back to sandbox-relative
// form, recursively.
func (e *Engine) relativize(result *PathACL) {
	result.Path = e.sandbox.Rel(result.Path)
	for i := range result.Children {
		e.relativize(&result.Children[i])
	}
}
