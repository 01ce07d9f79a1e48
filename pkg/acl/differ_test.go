// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"testing"

	"github.com/stratastor/warren/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiff(t *testing.T) {
	t.Run("GrantNamedUser", func(t *testing.T) {
		// Current {owner rwx, group r-x, other ---}; desired adds alice rwx.
		// The diff must carry alice plus the mask the new entry requires.
		current := EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead | PermExec},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
		}
		desired := Normalize(append(EntrySet{}, append(current,
			Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice", Perms: PermAll})...), false)

		diff, err := ComputeDiff(current, desired)
		require.NoError(t, err)

		require.Len(t, diff.Add, 2)
		assert.Empty(t, diff.Modify)
		assert.Empty(t, diff.Remove)

		keys := map[Key]PermSet{}
		for _, e := range diff.Add {
			keys[e.Key()] = e.Perms
		}
		assert.Equal(t, PermAll,
			keys[Key{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice"}])
		assert.Equal(t, PermAll, keys[Key{Scope: ScopeAccess, Kind: TagMask}])
	})

	t.Run("IdempotentOnEqualSets", func(t *testing.T) {
		current := Normalize(EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
			{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice", Perms: PermRead},
		}, false)

		diff, err := ComputeDiff(current, current)
		require.NoError(t, err)
		assert.True(t, diff.Empty())
	})

	t.Run("ModifyChangedPermissions", func(t *testing.T) {
		current := Normalize(EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
			{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice", Perms: PermRead},
		}, false)

		desired := make(EntrySet, len(current))
		copy(desired, current)
		alice := desired.Find(Key{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice"})
		alice.Perms = PermAll
		desired = Normalize(desired, false)

		diff, err := ComputeDiff(current, desired)
		require.NoError(t, err)

		assert.Empty(t, diff.Add)
		assert.Empty(t, diff.Remove)
		require.Len(t, diff.Modify, 2, "alice and the recomputed mask")
	})

	t.Run("RemoveNamedEntryAndMask", func(t *testing.T) {
		current := Normalize(EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
			{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice", Perms: PermRead},
		}, false)
		desired := EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
		}

		diff, err := ComputeDiff(current, desired)
		require.NoError(t, err)

		assert.Empty(t, diff.Add)
		assert.Empty(t, diff.Modify)
		require.Len(t, diff.Remove, 2, "alice and the now-unneeded mask")
	})

	t.Run("BaseEntryRemovalRejected", func(t *testing.T) {
		current := EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
		}
		desired := EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
		}

		_, err := ComputeDiff(current, desired)
		require.Error(t, err)
		code, ok := errors.GetCode(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCode(errors.ACLBaseEntryRemoval), code)
	})

	t.Run("DroppingDefaultScopeUsesSingleRemoval", func(t *testing.T) {
		current := EntrySet{
			{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone},
			{Scope: ScopeDefault, Kind: TagOwner, Perms: PermAll},
			{Scope: ScopeDefault, Kind: TagGroupClass, Perms: PermRead},
			{Scope: ScopeDefault, Kind: TagOther, Perms: PermNone},
		}
		desired := current.Scoped(ScopeAccess)

		diff, err := ComputeDiff(current, desired)
		require.NoError(t, err)

		assert.True(t, diff.RemoveAllDefaults)
		assert.Empty(t, diff.Remove, "default entries are dropped wholesale, not one by one")
	})
}

func TestDiffAccessOnly(t *testing.T) {
	diff := Diff{
		Add: EntrySet{
			{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "alice", Perms: PermRead},
			{Scope: ScopeDefault, Kind: TagNamedUser, Qualifier: "alice", Perms: PermRead},
		},
		Modify: EntrySet{
			{Scope: ScopeDefault, Kind: TagMask, Perms: PermRead},
		},
	}

	access := diff.AccessOnly()
	require.Len(t, access.Add, 1)
	assert.Equal(t, ScopeAccess, access.Add[0].Scope)
	assert.Empty(t, access.Modify)
	assert.False(t, diff.Empty())
}
