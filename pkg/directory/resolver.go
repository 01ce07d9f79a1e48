// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package directory resolves named users and groups against the local
// account databases or an LDAP directory, so an ACL never grants to a
// principal that does not exist.
package directory

import (
	"context"
	"os/user"

	"github.com/stratastor/warren/config"
	"github.com/stratastor/warren/pkg/errors"
)

// Resolver verifies that named principals exist.
type Resolver interface {
	LookupUser(ctx context.Context, name string) error
	LookupGroup(ctx context.Context, name string) error
}

// NewResolver picks the resolver the configuration asks for: LDAP when the
// directory integration is enabled, the local passwd/group databases
// otherwise.
func NewResolver(cfg *config.Config) (Resolver, error) {
	if cfg != nil && cfg.Directory.Enabled {
		return NewLDAPResolver(cfg)
	}
	return &LocalResolver{}, nil
}

// LocalResolver resolves against the OS account databases.
type LocalResolver struct{}

func (r *LocalResolver) LookupUser(_ context.Context, name string) error {
	if _, err := user.Lookup(name); err != nil {
		if _, ok := err.(user.UnknownUserError); ok {
			return errors.New(errors.DirectoryUserNotFound,
				"User does not exist").WithMetadata("user", name)
		}
		return errors.Wrap(err, errors.DirectoryLookupFailed).
			WithMetadata("user", name)
	}
	return nil
}

func (r *LocalResolver) LookupGroup(_ context.Context, name string) error {
	if _, err := user.LookupGroup(name); err != nil {
		if _, ok := err.(user.UnknownGroupError); ok {
			return errors.New(errors.DirectoryGroupNotFound,
				"Group does not exist").WithMetadata("group", name)
		}
		return errors.Wrap(err, errors.DirectoryLookupFailed).
			WithMetadata("group", name)
	}
	return nil
}
