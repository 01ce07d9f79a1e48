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

func TestParseGetfaclOutput(t *testing.T) {
	t.Run("FullOutput", func(t *testing.T) {
		output := `# file: /data/proj1
# owner: alice
# group: research
user::rwx
user:bob:rw-
group::r-x
group:analysts:r--
mask::rwx
other::---
default:user::rwx
default:group::r-x
default:other::---
`
		result, err := parseGetfaclOutput(output)
		require.NoError(t, err)

		assert.Equal(t, "/data/proj1", result.Path)
		assert.Equal(t, "alice", result.Owner)
		assert.Equal(t, "research", result.Group)
		require.Len(t, result.Entries, 9)

		assert.Equal(t, Entry{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll},
			result.Entries[0])
		assert.Equal(t,
			Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "bob", Perms: PermRead | PermWrite},
			result.Entries[1])
		assert.Equal(t,
			Entry{Scope: ScopeAccess, Kind: TagNamedGroup, Qualifier: "analysts", Perms: PermRead},
			result.Entries[3])
		assert.Equal(t, Entry{Scope: ScopeDefault, Kind: TagOwner, Perms: PermAll},
			result.Entries[6])
	})

	t.Run("EffectiveAnnotationStripped", func(t *testing.T) {
		// The nominal grant must survive; the masked value is advisory.
		output := `user::rwx
user:bob:rwx	#effective:r--
group::r-x
mask::r--
other::---
`
		result, err := parseGetfaclOutput(output)
		require.NoError(t, err)

		bob := result.Entries.Find(Key{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "bob"})
		require.NotNil(t, bob)
		assert.Equal(t, PermAll, bob.Perms)
	})

	t.Run("EscapedQualifier", func(t *testing.T) {
		output := `user::rwx
user:svc\040account:r--
group::r-x
mask::r--
other::---
`
		result, err := parseGetfaclOutput(output)
		require.NoError(t, err)

		e := result.Entries.Find(Key{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "svc account"})
		require.NotNil(t, e)
	})

	t.Run("UnknownTagFails", func(t *testing.T) {
		_, err := parseGetfaclOutput("wheel::rwx\n")
		require.Error(t, err)
		code, ok := errors.GetCode(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCode(errors.ACLParseError), code)
	})

	t.Run("UnknownCommentFails", func(t *testing.T) {
		_, err := parseGetfaclOutput("# surprise: value\nuser::rwx\n")
		require.Error(t, err)
	})

	t.Run("MalformedEntryFails", func(t *testing.T) {
		for _, line := range []string{
			"user:rwx",
			"user::rwxs",
			"mask:bob:rwx",
			"other:bob:r--",
			"user::rw",
		} {
			_, err := parseGetfaclOutput(line + "\n")
			assert.Error(t, err, "line %q should not parse", line)
		}
	})

	t.Run("EmptyOutputFails", func(t *testing.T) {
		_, err := parseGetfaclOutput("")
		require.Error(t, err)
	})
}

func TestPermSet(t *testing.T) {
	t.Run("ParseAndFormat", func(t *testing.T) {
		cases := map[string]PermSet{
			"rwx": PermAll,
			"r-x": PermRead | PermExec,
			"---": PermNone,
			"rw":  PermRead | PermWrite,
			"-":   PermNone,
		}
		for in, want := range cases {
			got, err := ParsePerms(in)
			require.NoError(t, err, "perms %q", in)
			assert.Equal(t, want, got, "perms %q", in)
		}

		assert.Equal(t, "r-x", (PermRead | PermExec).String())
		assert.Equal(t, "---", PermNone.String())
	})

	t.Run("RejectsUnknownCharacter", func(t *testing.T) {
		_, err := ParsePerms("rwt")
		require.Error(t, err)
	})

	t.Run("JSONRoundTrip", func(t *testing.T) {
		e := Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "bob", Perms: PermRead | PermExec}
		data, err := e.Perms.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"r-x"`, string(data))

		var p PermSet
		require.NoError(t, p.UnmarshalJSON([]byte(`"rw-"`)))
		assert.Equal(t, PermRead|PermWrite, p)
	})
}

func TestEntrySpecString(t *testing.T) {
	cases := []struct {
		entry Entry
		want  string
	}{
		{Entry{Scope: ScopeAccess, Kind: TagOwner, Perms: PermAll}, "user::rwx"},
		{Entry{Scope: ScopeAccess, Kind: TagGroupClass, Perms: PermRead | PermExec}, "group::r-x"},
		{Entry{Scope: ScopeAccess, Kind: TagOther, Perms: PermNone}, "other::---"},
		{Entry{Scope: ScopeAccess, Kind: TagMask, Perms: PermAll}, "mask::rwx"},
		{
			Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "bob", Perms: PermRead},
			"user:bob:r--",
		},
		{
			Entry{Scope: ScopeDefault, Kind: TagNamedGroup, Qualifier: "analysts", Perms: PermRead | PermExec},
			"default:group:analysts:r-x",
		},
		{
			Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "svc account", Perms: PermRead},
			"user:svc\\040account:r--",
		},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.entry.SpecString())
	}
}

func TestEntryRemoveString(t *testing.T) {
	assert.Equal(t, "user:bob",
		Entry{Scope: ScopeAccess, Kind: TagNamedUser, Qualifier: "bob"}.RemoveString())
	assert.Equal(t, "default:group:analysts",
		Entry{Scope: ScopeDefault, Kind: TagNamedGroup, Qualifier: "analysts"}.RemoveString())
	assert.Equal(t, "mask:",
		Entry{Scope: ScopeAccess, Kind: TagMask}.RemoveString())
	// Base entries have no removal form
	assert.Equal(t, "", Entry{Scope: ScopeAccess, Kind: TagOwner}.RemoveString())
}
