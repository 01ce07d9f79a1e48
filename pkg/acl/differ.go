// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"fmt"

	"github.com/stratastor/warren/pkg/errors"
)

// Diff is the minimal transition between two entry sets. Applying Add and
// Modify, then removing Remove, turns the current set into the desired one.
type Diff struct {
	Add    EntrySet `json:"add,omitempty"`
	Modify EntrySet `json:"modify,omitempty"`
	Remove EntrySet `json:"remove,omitempty"`

	// RemoveAllDefaults drops the entire default scope (setfacl -k) when
	// the desired state carries no default entries but the current state
	// does. Individual default removals are listed in Remove instead.
	RemoveAllDefaults bool `json:"remove_all_defaults,omitempty"`
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Modify) == 0 && len(d.Remove) == 0 &&
		!d.RemoveAllDefaults
}

// AccessOnly returns the diff with every default-scope element stripped,
// for applying to plain files during a recursive descent.
func (d Diff) AccessOnly() Diff {
	out := Diff{}
	for _, e := range d.Add {
		if e.Scope == ScopeAccess {
			out.Add = append(out.Add, e)
		}
	}
	for _, e := range d.Modify {
		if e.Scope == ScopeAccess {
			out.Modify = append(out.Modify, e)
		}
	}
	for _, e := range d.Remove {
		if e.Scope == ScopeAccess {
			out.Remove = append(out.Remove, e)
		}
	}
	return out
}

// ComputeDiff computes the transition from current to desired. Both sets
// are expected to be normalized and validated; desired must not drop a base
// entry, which is surfaced here as ACLBaseEntryRemoval before anything is
// applied.
func ComputeDiff(current, desired EntrySet) (Diff, error) {
	var diff Diff

	currentByKey := make(map[Key]Entry, len(current))
	for _, e := range current {
		currentByKey[e.Key()] = e
	}
	desiredByKey := make(map[Key]Entry, len(desired))
	for _, e := range desired {
		desiredByKey[e.Key()] = e
	}

	for _, e := range desired {
		cur, ok := currentByKey[e.Key()]
		if !ok {
			diff.Add = append(diff.Add, e)
		} else if cur.Perms != e.Perms {
			diff.Modify = append(diff.Modify, e)
		}
	}

	// Dropping the whole default scope is a single -k, not a series of
	// per-entry removals that would strand the scope in a malformed state.
	dropDefaults := current.HasScope(ScopeDefault) && !desired.HasScope(ScopeDefault)
	diff.RemoveAllDefaults = dropDefaults

	for _, e := range current {
		if _, ok := desiredByKey[e.Key()]; ok {
			continue
		}
		if e.Scope == ScopeDefault && dropDefaults {
			continue
		}
		if e.IsBase() {
			return Diff{}, errors.New(errors.ACLBaseEntryRemoval,
				fmt.Sprintf("Entry %s is required and cannot be removed", e.SpecString())).
				WithMetadata("entry", e.SpecString())
		}
		diff.Remove = append(diff.Remove, e)
	}

	return diff, nil
}
