// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"context"
	"strings"
	"sync"

	"github.com/stratastor/warren/pkg/errors"
)

// LockManager serializes read-modify-write cycles per resolved path.
//
// A non-recursive lock conflicts only with another lock on the same path. A
// recursive lock additionally conflicts with any lock on an ancestor or
// descendant path, so two operations on overlapping subtrees never run
// concurrently while disjoint subtrees proceed in parallel.
type LockManager struct {
	mu   sync.Mutex
	cond *sync.Cond
	held map[string]bool // resolved path -> recursive
}

// NewLockManager creates a lock manager.
func NewLockManager() *LockManager {
	lm := &LockManager{held: make(map[string]bool)}
	lm.cond = sync.NewCond(&lm.mu)
	return lm
}

// isAncestor reports whether a is an ancestor directory of b.
func isAncestor(a, b string) bool {
	return strings.HasPrefix(b, a+"/")
}

// conflicts reports whether a lock (path, recursive) may not coexist with
// an already-held lock (heldPath, heldRecursive).
func conflicts(path string, recursive bool, heldPath string, heldRecursive bool) bool {
	if path == heldPath {
		return true
	}
	if recursive && (isAncestor(path, heldPath) || isAncestor(heldPath, path)) {
		return true
	}
	if heldRecursive && (isAncestor(heldPath, path) || isAncestor(path, heldPath)) {
		return true
	}
	return false
}

// Acquire blocks until the lock for path is available, then returns a
// release function. Acquisition itself never times out; cancelling ctx
// abandons the wait and returns ACLOperationTimedOut. The release function
// must be called on every exit path, typically via defer.
func (lm *LockManager) Acquire(ctx context.Context, path string, recursive bool) (func(), error) {
	// Wake waiters when the caller's deadline expires so the Wait loop can
	// observe ctx.Err.
	stop := context.AfterFunc(ctx, func() {
		lm.mu.Lock()
		lm.cond.Broadcast()
		lm.mu.Unlock()
	})
	defer stop()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ACLOperationTimedOut).
				WithMetadata("path", path)
		}
		if !lm.blocked(path, recursive) {
			break
		}
		lm.cond.Wait()
	}

	lm.held[path] = recursive

	var once sync.Once
	release := func() {
		once.Do(func() {
			lm.mu.Lock()
			delete(lm.held, path)
			lm.cond.Broadcast()
			lm.mu.Unlock()
		})
	}
	return release, nil
}

// blocked reports whether any held lock conflicts with the requested one.
// Caller must hold lm.mu.
func (lm *LockManager) blocked(path string, recursive bool) bool {
	for heldPath, heldRecursive := range lm.held {
		if conflicts(path, recursive, heldPath, heldRecursive) {
			return true
		}
	}
	return false
}
