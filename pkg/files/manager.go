// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package files exposes read-only browsing of the sandboxed tree: listings
// with ownership metadata for the permission UI, and size-capped previews
// gated by the configured extension allowlist.
package files

import (
	"context"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/warren/pkg/acl"
	"github.com/stratastor/warren/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// maxPreviewBytes caps how much of a file a preview returns.
const maxPreviewBytes = 256 * 1024

// Item is one entry in a directory listing.
type Item struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	IsDir          bool      `json:"is_dir"`
	IsSymlink      bool      `json:"is_symlink"`
	Size           int64     `json:"size"`
	Mode           string    `json:"mode"`
	Owner          string    `json:"owner"`
	Group          string    `json:"group"`
	ModTime        time.Time `json:"mod_time"`
	PreviewAllowed bool      `json:"preview_allowed"`
}

// Manager browses the same sandboxed tree the ACL engine manages.
type Manager struct {
	logger      logger.Logger
	sandbox     *acl.Sandbox
	allowedExts map[string]bool
	collator    *collate.Collator
}

// NewManager creates a file manager confined to the given sandbox.
// allowedExtensions lists the file extensions (without dot) eligible for
// preview.
func NewManager(l logger.Logger, sandbox *acl.Sandbox, allowedExtensions []string) *Manager {
	exts := make(map[string]bool, len(allowedExtensions))
	for _, e := range allowedExtensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Manager{
		logger:      l,
		sandbox:     sandbox,
		allowedExts: exts,
		// Numeric collation sorts proj2 before proj10
		collator: collate.New(language.Und, collate.Numeric, collate.IgnoreCase),
	}
}

// Browse lists a directory, directories first, each group in natural
// name order.
func (m *Manager) Browse(ctx context.Context, relPath string) ([]Item, error) {
	resolved, err := m.sandbox.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", relPath)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.FilesNotADirectory,
			"Browse target is not a directory").WithMetadata("path", relPath)
	}

	dirEntries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", relPath)
	}

	items := make([]Item, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.FilesReadError).
				WithMetadata("path", relPath)
		}
		item, err := m.describe(filepath.Join(resolved, de.Name()))
		if err != nil {
			m.logger.Warn("Skipping unreadable entry",
				"path", de.Name(), "error", err)
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return m.collator.CompareString(items[i].Name, items[j].Name) < 0
	})

	return items, nil
}

// Info returns the metadata for a single path.
func (m *Manager) Info(ctx context.Context, relPath string) (Item, error) {
	resolved, err := m.sandbox.Resolve(relPath)
	if err != nil {
		return Item{}, err
	}
	return m.describe(resolved)
}

// Preview returns up to maxPreviewBytes of a file's content. Files whose
// extension is outside the allowlist are refused.
func (m *Manager) Preview(ctx context.Context, relPath string) ([]byte, error) {
	resolved, err := m.sandbox.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", relPath)
	}
	if info.IsDir() {
		return nil, errors.New(errors.FilesNotFound,
			"Preview target is a directory").WithMetadata("path", relPath)
	}

	if !m.previewAllowed(resolved) {
		return nil, errors.New(errors.FilesExtensionDenied,
			"File extension not allowed for preview").
			WithMetadata("path", relPath)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", relPath)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPreviewBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", relPath)
	}
	return data, nil
}

func (m *Manager) previewAllowed(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return ext != "" && m.allowedExts[ext]
}

// describe builds an Item for one resolved path, resolving numeric uid/gid
// to names where possible.
func (m *Manager) describe(resolved string) (Item, error) {
	info, err := os.Lstat(resolved)
	if err != nil {
		return Item{}, errors.Wrap(err, errors.FilesReadError).
			WithMetadata("path", resolved)
	}

	item := Item{
		Name:      info.Name(),
		Path:      m.sandbox.Rel(resolved),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		Size:      info.Size(),
		Mode:      info.Mode().Perm().String(),
		ModTime:   info.ModTime().UTC(),
	}
	if !item.IsDir && !item.IsSymlink {
		item.PreviewAllowed = m.previewAllowed(resolved)
	}

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		item.Owner = lookupUID(st.Uid)
		item.Group = lookupGID(st.Gid)
	}

	return item, nil
}

func lookupUID(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(id); err == nil {
		return u.Username
	}
	return id
}

func lookupGID(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(id); err == nil {
		return g.Name
	}
	return id
}
