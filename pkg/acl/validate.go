// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"fmt"

	"github.com/stratastor/warren/pkg/errors"
)

// Normalize fills in the entries setfacl would otherwise synthesize so that
// a desired set round-trips through the filesystem unchanged:
//
//   - a mask entry is added per scope whenever a named entry exists without
//     one, set to the union of named and owning-group permissions;
//   - when honorMask is false an existing mask is recomputed to that union,
//     so a stale caller-supplied mask cannot silently narrow a new grant;
//   - a non-empty default scope is completed with base entries copied from
//     the access scope.
//
// honorMask opts in to administratively narrowed masks: the caller's mask
// entry is kept as given even when it is narrower than the union.
func Normalize(entries EntrySet, honorMask bool) EntrySet {
	out := make(EntrySet, len(entries))
	copy(out, entries)

	// Complete the default scope before mask computation so default named
	// entries see their owning-group entry.
	if out.HasScope(ScopeDefault) {
		for _, kind := range []Tag{TagOwner, TagGroupClass, TagOther} {
			if out.Find(Key{Scope: ScopeDefault, Kind: kind}) != nil {
				continue
			}
			if base := out.Find(Key{Scope: ScopeAccess, Kind: kind}); base != nil {
				e := *base
				e.Scope = ScopeDefault
				out = append(out, e)
			}
		}
	}

	for _, scope := range []Scope{ScopeAccess, ScopeDefault} {
		if !out.HasNamed(scope) {
			continue
		}
		union := out.GroupClassUnion(scope)
		if mask := out.Find(Key{Scope: scope, Kind: TagMask}); mask != nil {
			if !honorMask {
				mask.Perms = union
			}
		} else {
			out = append(out, Entry{Scope: scope, Kind: TagMask, Perms: union})
		}
	}

	return out
}

// Validate checks an entry set against the POSIX ACL invariants. It is
// called on desired state before any command runs; a set that fails here
// never reaches the filesystem.
func Validate(entries EntrySet, isDir bool) error {
	if len(entries) == 0 {
		return errors.New(errors.ACLInvalidInput, "No ACL entries provided")
	}

	seen := make(map[Key]bool, len(entries))
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return err
		}
		k := e.Key()
		if seen[k] {
			return errors.New(errors.ACLDuplicateEntry,
				fmt.Sprintf("Duplicate ACL entry %s", e.SpecString())).
				WithMetadata("entry", e.SpecString())
		}
		seen[k] = true

		if e.Scope == ScopeDefault && !isDir {
			return errors.New(errors.ACLDefaultOnFile,
				"Default entries are only valid on directories").
				WithMetadata("entry", e.SpecString())
		}
	}

	if err := validateScope(entries, ScopeAccess); err != nil {
		return err
	}
	if entries.HasScope(ScopeDefault) {
		if err := validateScope(entries, ScopeDefault); err != nil {
			return err
		}
	}

	return nil
}

func validateEntry(e Entry) error {
	switch e.Scope {
	case ScopeAccess, ScopeDefault:
	default:
		return errors.New(errors.ACLInvalidInput,
			fmt.Sprintf("Unknown ACL scope %q", e.Scope))
	}

	switch e.Kind {
	case TagOwner, TagGroupClass, TagOther, TagMask:
		if e.Qualifier != "" {
			return errors.New(errors.ACLInvalidInput,
				fmt.Sprintf("Entry kind %q does not take a qualifier", e.Kind)).
				WithMetadata("qualifier", e.Qualifier)
		}
	case TagNamedUser, TagNamedGroup:
		if e.Qualifier == "" {
			return errors.New(errors.ACLInvalidInput,
				fmt.Sprintf("Entry kind %q requires a qualifier", e.Kind))
		}
	default:
		return errors.New(errors.ACLInvalidInput,
			fmt.Sprintf("Unknown ACL entry kind %q", e.Kind))
	}

	if e.Perms > PermAll {
		return errors.New(errors.ACLInvalidPermission,
			"Permissions contain bits outside read/write/execute").
			WithMetadata("entry", e.SpecString())
	}

	return nil
}

// validateScope enforces the per-scope structural invariants: exactly one
// owner, owning-group and other entry, and a mask whenever named entries
// are present.
func validateScope(entries EntrySet, scope Scope) error {
	for _, kind := range []Tag{TagOwner, TagGroupClass, TagOther} {
		if entries.Find(Key{Scope: scope, Kind: kind}) == nil {
			return errors.New(errors.ACLMissingBaseEntry,
				fmt.Sprintf("Missing required %s entry in %s scope", kind, scope)).
				WithMetadata("scope", string(scope))
		}
	}

	if entries.HasNamed(scope) {
		if entries.Find(Key{Scope: scope, Kind: TagMask}) == nil {
			return errors.New(errors.ACLValidationFailed,
				fmt.Sprintf("Named entries in %s scope require a mask entry", scope)).
				WithMetadata("scope", string(scope))
		}
	}

	return nil
}
