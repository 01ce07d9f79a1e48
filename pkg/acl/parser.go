// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package acl

import (
	"strings"

	"github.com/stratastor/warren/pkg/errors"
)

// parseGetfaclOutput parses the output of getfacl for a single path.
//
// The parser is strict: only the comment lines getfacl is documented to
// emit ("# file:", "# owner:", "# group:", "# flags:") are skipped, and any
// other line must be a well-formed entry. Unrecognized lines fail the whole
// read rather than being dropped, so a change in tool output surfaces as an
// error instead of a silently incomplete entry set.
func parseGetfaclOutput(output string) (PathACL, error) {
	var result PathACL

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if err := parseHeaderLine(line, &result); err != nil {
				return PathACL{}, err
			}
			continue
		}

		entry, err := parseEntryLine(line)
		if err != nil {
			return PathACL{}, err
		}
		result.Entries = append(result.Entries, entry)
	}

	if len(result.Entries) == 0 {
		return PathACL{}, errors.New(errors.ACLParseError,
			"getfacl produced no ACL entries")
	}

	return result, nil
}

// parseHeaderLine handles the "# key: value" comment block getfacl prints
// before the entries.
func parseHeaderLine(line string, result *PathACL) error {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))

	switch {
	case strings.HasPrefix(body, "file:"):
		result.Path = unescapeQualifier(strings.TrimSpace(strings.TrimPrefix(body, "file:")))
	case strings.HasPrefix(body, "owner:"):
		result.Owner = unescapeQualifier(strings.TrimSpace(strings.TrimPrefix(body, "owner:")))
	case strings.HasPrefix(body, "group:"):
		result.Group = unescapeQualifier(strings.TrimSpace(strings.TrimPrefix(body, "group:")))
	case strings.HasPrefix(body, "flags:"):
		// setuid/setgid/sticky summary; not part of the ACL model
	default:
		return errors.New(errors.ACLParseError,
			"Unrecognized comment line in getfacl output").
			WithMetadata("line", line)
	}

	return nil
}

// parseEntryLine parses one ACL entry line of the form
//
//	[default:]tag:[qualifier]:perms[<TAB>#effective:perms]
//
// The effective annotation getfacl appends when a mask narrows an entry is
// informational: the nominal permissions are kept so later diffs compare
// against what was actually granted, not the masked value.
func parseEntryLine(line string) (Entry, error) {
	// Strip the effective-permissions annotation.
	if idx := strings.Index(line, "#effective:"); idx != -1 {
		line = strings.TrimRight(line[:idx], " \t")
	}

	entry := Entry{Scope: ScopeAccess}

	rest := line
	if strings.HasPrefix(rest, "default:") {
		entry.Scope = ScopeDefault
		rest = strings.TrimPrefix(rest, "default:")
	}

	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return Entry{}, errors.New(errors.ACLParseError,
			"Malformed ACL entry line").WithMetadata("line", line)
	}
	tag, qualifier, permStr := parts[0], parts[1], parts[2]

	switch tag {
	case "user":
		if qualifier == "" {
			entry.Kind = TagOwner
		} else {
			entry.Kind = TagNamedUser
			entry.Qualifier = unescapeQualifier(qualifier)
		}
	case "group":
		if qualifier == "" {
			entry.Kind = TagGroupClass
		} else {
			entry.Kind = TagNamedGroup
			entry.Qualifier = unescapeQualifier(qualifier)
		}
	case "mask":
		if qualifier != "" {
			return Entry{}, errors.New(errors.ACLParseError,
				"Mask entry with unexpected qualifier").WithMetadata("line", line)
		}
		entry.Kind = TagMask
	case "other":
		if qualifier != "" {
			return Entry{}, errors.New(errors.ACLParseError,
				"Other entry with unexpected qualifier").WithMetadata("line", line)
		}
		entry.Kind = TagOther
	default:
		return Entry{}, errors.New(errors.ACLParseError,
			"Unknown ACL entry tag").WithMetadata("line", line)
	}

	if len(permStr) != 3 {
		return Entry{}, errors.New(errors.ACLParseError,
			"Malformed permission field").WithMetadata("line", line)
	}
	perms, err := ParsePerms(permStr)
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ACLParseError).
			WithMetadata("line", line)
	}
	entry.Perms = perms

	return entry, nil
}
