// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stratastor/warren/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockConflicts(t *testing.T) {
	cases := []struct {
		name          string
		path          string
		recursive     bool
		heldPath      string
		heldRecursive bool
		want          bool
	}{
		{"SamePath", "/data/a", false, "/data/a", false, true},
		{"SamePathRecursive", "/data/a", true, "/data/a", true, true},
		{"SiblingsNonRecursive", "/data/a", false, "/data/b", false, false},
		{"ParentChildNonRecursive", "/data/a", false, "/data/a/b", false, false},
		{"RecursiveBlocksDescendant", "/data/a/b", false, "/data/a", true, true},
		{"RecursiveBlocksAncestor", "/data/a", false, "/data/a/b", true, true},
		{"RecursiveRequestBlocksHeldDescendant", "/data/a", true, "/data/a/b", false, true},
		{"RecursiveRequestBlocksHeldAncestor", "/data/a/b", true, "/data/a", false, true},
		{"DisjointRecursiveSubtrees", "/data/a", true, "/data/b", true, false},
		{"PrefixIsNotAncestor", "/data/ab", true, "/data/a", true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := conflicts(tc.path, tc.recursive, tc.heldPath, tc.heldRecursive)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLockManagerMutualExclusion(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lm.Acquire(ctx, "/data/proj1", false)
			if err != nil {
				t.Error(err)
				return
			}
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical, "critical sections overlapped")
}

func TestLockManagerDisjointPathsRunConcurrently(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	releaseA, err := lm.Acquire(ctx, "/data/a", true)
	require.NoError(t, err)
	defer releaseA()

	// A disjoint subtree must not block even while /data/a is held.
	done := make(chan struct{})
	go func() {
		releaseB, err := lm.Acquire(ctx, "/data/b", true)
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquisition of a disjoint subtree blocked")
	}
}

func TestLockManagerRecursiveBlocksSubtree(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	release, err := lm.Acquire(ctx, "/data/a", true)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := lm.Acquire(ctx, "/data/a/child", false)
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("descendant lock acquired while recursive ancestor lock held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("descendant lock never acquired after release")
	}
}

func TestLockManagerAcquireHonorsContext(t *testing.T) {
	lm := NewLockManager()

	release, err := lm.Acquire(context.Background(), "/data/a", false)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = lm.Acquire(ctx, "/data/a", false)
	require.Error(t, err)

	code, ok := errors.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCode(errors.ACLOperationTimedOut), code)
}

func TestLockManagerReleaseIsIdempotent(t *testing.T) {
	lm := NewLockManager()

	release, err := lm.Acquire(context.Background(), "/data/a", false)
	require.NoError(t, err)

	release()
	release() // second call must be a no-op

	again, err := lm.Acquire(context.Background(), "/data/a", false)
	require.NoError(t, err)
	again()
}
