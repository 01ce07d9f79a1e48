// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stratastor/logger"
	"github.com/stratastor/warren/internal/command"
	"github.com/stratastor/warren/pkg/errors"
)

// PartialApplyError reports a recursive apply that succeeded on some paths
// and failed on others. Nothing is rolled back; the caller retries the
// failed remainder after a fresh read.
type PartialApplyError struct {
	Succeeded []string
	Failed    map[string]string // path -> failure description
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("ACL apply partially failed: %d path(s) succeeded, %d failed",
		len(e.Succeeded), len(e.Failed))
}

// FailedPaths returns the failed paths in stable order.
func (e *PartialApplyError) FailedPaths() []string {
	paths := make([]string, 0, len(e.Failed))
	for p := range e.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Writer applies ACL diffs via setfacl. All filesystem ACL mutation goes
// through here, under a lock held by the caller; that exclusivity is what
// makes the engine's read-modify-write cycle linearizable.
type Writer struct {
	logger  logger.Logger
	setfacl string
	reader  *Reader
}

// NewWriter creates a writer. setfaclPath overrides the binary location;
// empty means the default.
func NewWriter(l logger.Logger, setfaclPath string, reader *Reader) *Writer {
	if setfaclPath == "" {
		setfaclPath = BinSetfacl
	}
	return &Writer{logger: l, setfacl: setfaclPath, reader: reader}
}

// Apply applies the diff to path, recursing over the subtree when
// recursive is set, then re-reads the path and returns the resulting state.
// The exit code of setfacl alone is never trusted as confirmation.
func (w *Writer) Apply(ctx context.Context, path string, diff Diff, recursive bool) (PathACL, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PathACL{}, errors.New(errors.ACLPathNotFound,
				"Path does not exist").WithMetadata("path", path)
		}
		return PathACL{}, errors.Wrap(err, errors.ACLWriteError).
			WithMetadata("path", path)
	}

	if !recursive || !info.IsDir() {
		effective := diff
		if !info.IsDir() {
			effective = diff.AccessOnly()
		}
		if err := w.applyOne(ctx, path, effective); err != nil {
			return PathACL{}, err
		}
		return w.reader.Read(ctx, path)
	}

	partial := &PartialApplyError{Failed: make(map[string]string)}
	w.applyTree(ctx, path, diff, partial)

	if len(partial.Failed) > 0 {
		w.logger.Error("Recursive ACL apply partially failed",
			"path", path,
			"succeeded", len(partial.Succeeded),
			"failed", len(partial.Failed))
		return PathACL{}, partial
	}

	return w.reader.Read(ctx, path)
}

// applyTree walks the subtree depth-first, applying both scopes to
// directories and the access scope to files. Cancellation is honored
// between, never within, individual command invocations: on ctx expiry the
// remaining subtree is recorded as failed and the walk stops.
func (w *Writer) applyTree(ctx context.Context, path string, diff Diff, partial *PartialApplyError) {
	if err := ctx.Err(); err != nil {
		partial.Failed[path] = "cancelled before apply: " + err.Error()
		return
	}

	if err := w.applyOne(ctx, path, diff); err != nil {
		partial.Failed[path] = err.Error()
		// The subtree below a failed directory is left untouched; it is
		// not enumerated as failed because it was never attempted.
		return
	}
	partial.Succeeded = append(partial.Succeeded, path)

	children, err := os.ReadDir(path)
	if err != nil {
		partial.Failed[path+string(os.PathSeparator)] = "readdir: " + err.Error()
		return
	}

	accessDiff := diff.AccessOnly()
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			partial.Failed[filepath.Join(path, child.Name())] =
				"cancelled before apply: " + err.Error()
			return
		}
		// Never follow symlinks during descent
		if child.Type()&os.ModeSymlink != 0 {
			continue
		}

		childPath := filepath.Join(path, child.Name())
		if child.IsDir() {
			w.applyTree(ctx, childPath, diff, partial)
			continue
		}

		if accessDiff.Empty() {
			continue
		}
		if err := w.applyOne(ctx, childPath, accessDiff); err != nil {
			partial.Failed[childPath] = err.Error()
			continue
		}
		partial.Succeeded = append(partial.Succeeded, childPath)
	}
}

// applyOne runs a single batched setfacl invocation for one path. Adds,
// modifications and removals are applied together so the path is never
// observed in an intermediate state where a required mask is missing.
func (w *Writer) applyOne(ctx context.Context, path string, diff Diff) error {
	if diff.Empty() {
		return nil
	}

	args := []string{}

	if diff.RemoveAllDefaults {
		args = append(args, "-k")
	}

	if len(diff.Remove) > 0 {
		remFile, err := writeEntryFile(diff.Remove, Entry.RemoveString)
		if err != nil {
			return errors.Wrap(err, errors.ACLWriteError).
				WithMetadata("path", path)
		}
		defer os.Remove(remFile)
		args = append(args, "-X", remFile)
	}

	modEntries := append(append(EntrySet{}, diff.Add...), diff.Modify...)
	if len(modEntries) > 0 {
		modFile, err := writeEntryFile(modEntries, Entry.SpecString)
		if err != nil {
			return errors.Wrap(err, errors.ACLWriteError).
				WithMetadata("path", path)
		}
		defer os.Remove(modFile)
		// -n: the diff carries its own mask; setfacl must not recalculate
		// it, or an administratively narrowed mask would be widened back.
		args = append(args, "-n", "-M", modFile)
	}

	args = append(args, path)

	res, err := command.ExecCommandSplit(ctx, w.logger, w.setfacl, args...)
	if err != nil {
		return mapCommandError(err, res, path, errors.ACLCommandFailed)
	}

	return nil
}

// writeEntryFile writes one entry per line to a temp file and returns its
// name. The caller removes the file.
func writeEntryFile(entries EntrySet, format func(Entry) string) (string, error) {
	tempFile, err := os.CreateTemp("", "warren-acl-*.txt")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, e := range entries {
		line := format(e)
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if _, err := tempFile.WriteString(sb.String()); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", err
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return "", err
	}

	return tempFile.Name(), nil
}
