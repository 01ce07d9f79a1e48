// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stratastor/warren/pkg/errors"
)

// Scope partitions an entry set into the entries that apply to the object
// itself and the entries inherited by objects created beneath it.
type Scope string

const (
	// ScopeAccess entries apply to the filesystem object directly.
	ScopeAccess Scope = "access"
	// ScopeDefault entries exist only on directories and are inherited by
	// children created afterwards.
	ScopeDefault Scope = "default"
)

// Tag identifies which principal class an entry grants permissions to.
type Tag string

const (
	// TagOwner is the file owner entry (user:: in getfacl output)
	TagOwner Tag = "owner"
	// TagGroupClass is the owning-group entry (group:: in getfacl output)
	TagGroupClass Tag = "group"
	// TagOther is the catch-all entry (other::)
	TagOther Tag = "other"
	// TagNamedUser grants to a specific user (user:NAME:)
	TagNamedUser Tag = "named_user"
	// TagNamedGroup grants to a specific group (group:NAME:)
	TagNamedGroup Tag = "named_group"
	// TagMask caps the effective permissions of named entries and the
	// owning group (mask::)
	TagMask Tag = "mask"
)

// PermSet is a 3-bit read/write/execute permission set.
type PermSet uint8

const (
	PermRead  PermSet = 4
	PermWrite PermSet = 2
	PermExec  PermSet = 1

	PermNone PermSet = 0
	PermAll  PermSet = PermRead | PermWrite | PermExec
)

// ParsePerms parses a permission string in the getfacl grammar. Both the
// padded form ("r-x") and the compact form ("rx", "-") are accepted.
func ParsePerms(s string) (PermSet, error) {
	var p PermSet
	if s == "-" || s == "---" || s == "" {
		return PermNone, nil
	}
	for _, c := range s {
		switch c {
		case 'r':
			p |= PermRead
		case 'w':
			p |= PermWrite
		case 'x':
			p |= PermExec
		case '-':
			// padding
		default:
			return 0, errors.New(errors.ACLInvalidPermission,
				fmt.Sprintf("Unknown permission character %q", c)).
				WithMetadata("perms", s)
		}
	}
	return p, nil
}

// Has reports whether every bit of q is set in p.
func (p PermSet) Has(q PermSet) bool {
	return p&q == q
}

// String renders the permission set in the padded getfacl form, e.g. "r-x".
func (p PermSet) String() string {
	var sb strings.Builder
	if p.Has(PermRead) {
		sb.WriteByte('r')
	} else {
		sb.WriteByte('-')
	}
	if p.Has(PermWrite) {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('-')
	}
	if p.Has(PermExec) {
		sb.WriteByte('x')
	} else {
		sb.WriteByte('-')
	}
	return sb.String()
}

// MarshalJSON renders the permission set as its "rwx" string form.
func (p PermSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts the "rwx"/"r-x" string forms.
func (p *PermSet) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePerms(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Entry is a single ACL grant on a filesystem object.
type Entry struct {
	Scope     Scope   `json:"scope"`
	Kind      Tag     `json:"kind"`
	Qualifier string  `json:"qualifier,omitempty"` // user/group name; named entries only
	Perms     PermSet `json:"perms"`
}

// Key uniquely identifies an entry within an entry set.
type Key struct {
	Scope     Scope
	Kind      Tag
	Qualifier string
}

// Key returns the identity of the entry within its set.
func (e Entry) Key() Key {
	return Key{Scope: e.Scope, Kind: e.Kind, Qualifier: e.Qualifier}
}

// IsBase reports whether the entry is one of the three entries POSIX
// requires on every object. Base entries can be modified but never removed.
func (e Entry) IsBase() bool {
	return e.Kind == TagOwner || e.Kind == TagGroupClass || e.Kind == TagOther
}

// IsNamed reports whether the entry carries a qualifier.
func (e Entry) IsNamed() bool {
	return e.Kind == TagNamedUser || e.Kind == TagNamedGroup
}

// escapeQualifier escapes spaces with \040 for setfacl
func escapeQualifier(q string) string {
	return strings.ReplaceAll(q, " ", "\\040")
}

// unescapeQualifier reverses the \040 escaping in getfacl output
func unescapeQualifier(q string) string {
	return strings.ReplaceAll(q, "\\040", " ")
}

// SpecString formats the entry in the setfacl text grammar, e.g.
// "default:user:alice:rwx".
func (e Entry) SpecString() string {
	prefix := ""
	if e.Scope == ScopeDefault {
		prefix = "default:"
	}

	switch e.Kind {
	case TagOwner:
		return fmt.Sprintf("%suser::%s", prefix, e.Perms)
	case TagGroupClass:
		return fmt.Sprintf("%sgroup::%s", prefix, e.Perms)
	case TagOther:
		return fmt.Sprintf("%sother::%s", prefix, e.Perms)
	case TagMask:
		return fmt.Sprintf("%smask::%s", prefix, e.Perms)
	case TagNamedUser:
		return fmt.Sprintf("%suser:%s:%s", prefix, escapeQualifier(e.Qualifier), e.Perms)
	case TagNamedGroup:
		return fmt.Sprintf("%sgroup:%s:%s", prefix, escapeQualifier(e.Qualifier), e.Perms)
	default:
		return ""
	}
}

// RemoveString formats the entry for a setfacl -X file, which takes the
// entry identity without permissions.
func (e Entry) RemoveString() string {
	prefix := ""
	if e.Scope == ScopeDefault {
		prefix = "default:"
	}

	switch e.Kind {
	case TagNamedUser:
		return fmt.Sprintf("%suser:%s", prefix, escapeQualifier(e.Qualifier))
	case TagNamedGroup:
		return fmt.Sprintf("%sgroup:%s", prefix, escapeQualifier(e.Qualifier))
	case TagMask:
		return fmt.Sprintf("%smask:", prefix)
	default:
		// Base entries are never removable
		return ""
	}
}

// EntrySet is the ordered collection of entries for one path.
type EntrySet []Entry

// Find returns a pointer to the entry with the given key, or nil.
func (s EntrySet) Find(k Key) *Entry {
	for i := range s {
		if s[i].Key() == k {
			return &s[i]
		}
	}
	return nil
}

// Scoped returns the subset of entries in the given scope, preserving order.
func (s EntrySet) Scoped(scope Scope) EntrySet {
	var out EntrySet
	for _, e := range s {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	return out
}

// HasScope reports whether any entry carries the given scope.
func (s EntrySet) HasScope(scope Scope) bool {
	for _, e := range s {
		if e.Scope == scope {
			return true
		}
	}
	return false
}

// GroupClassUnion is the union of permissions across the entries the mask
// governs: named users, named groups and the owning group.
func (s EntrySet) GroupClassUnion(scope Scope) PermSet {
	var u PermSet
	for _, e := range s {
		if e.Scope != scope {
			continue
		}
		if e.IsNamed() || e.Kind == TagGroupClass {
			u |= e.Perms
		}
	}
	return u
}

// HasNamed reports whether the scope contains any named entry.
func (s EntrySet) HasNamed(scope Scope) bool {
	for _, e := range s {
		if e.Scope == scope && e.IsNamed() {
			return true
		}
	}
	return false
}

// PathACL holds the complete ACL state read back for a path.
type PathACL struct {
	Path     string    `json:"path"`
	Owner    string    `json:"owner,omitempty"`
	Group    string    `json:"group,omitempty"`
	Entries  EntrySet  `json:"entries"`
	Children []PathACL `json:"children,omitempty"`
}
