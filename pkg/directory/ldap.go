// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/stratastor/warren/config"
	"github.com/stratastor/warren/pkg/errors"
)

// LDAPResolver verifies principals against a directory service over LDAP.
// A single bound connection is reused across lookups.
type LDAPResolver struct {
	mu      sync.Mutex
	conn    *ldap.Conn
	userOU  string
	groupOU string
}

// NewLDAPResolver dials and binds using the configured directory settings.
func NewLDAPResolver(cfg *config.Config) (*LDAPResolver, error) {
	d := cfg.Directory

	var opts []ldap.DialOpt
	if strings.HasPrefix(d.LDAPURL, "ldaps://") {
		// TODO: verify the server certificate once deployments ship a CA
		// bundle alongside the bind credentials
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}

	conn, err := ldap.DialURL(d.LDAPURL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.DirectoryConnectFailed).
			WithMetadata("url", d.LDAPURL)
	}

	if err := conn.Bind(d.BindDN, d.BindPassword); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.DirectoryInvalidCredentials).
			WithMetadata("bind_dn", d.BindDN)
	}

	return &LDAPResolver{
		conn:    conn,
		userOU:  joinDN(d.UserOU, d.BaseDN),
		groupOU: joinDN(d.GroupOU, d.BaseDN),
	}, nil
}

// Close terminates the LDAP connection.
func (r *LDAPResolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *LDAPResolver) LookupUser(_ context.Context, name string) error {
	found, err := r.search(r.userOU,
		fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(name)))
	if err != nil {
		return errors.Wrap(err, errors.DirectorySearchFailed).
			WithMetadata("user", name)
	}
	if !found {
		return errors.New(errors.DirectoryUserNotFound,
			"User not found in directory").WithMetadata("user", name)
	}
	return nil
}

func (r *LDAPResolver) LookupGroup(_ context.Context, name string) error {
	found, err := r.search(r.groupOU,
		fmt.Sprintf("(&(objectClass=group)(sAMAccountName=%s))", ldap.EscapeFilter(name)))
	if err != nil {
		return errors.Wrap(err, errors.DirectorySearchFailed).
			WithMetadata("group", name)
	}
	if !found {
		return errors.New(errors.DirectoryGroupNotFound,
			"Group not found in directory").WithMetadata("group", name)
	}
	return nil
}

func (r *LDAPResolver) search(baseDN, filter string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	searchReq := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"dn", "cn", "sAMAccountName"},
		nil,
	)

	sr, err := r.conn.Search(searchReq)
	if err != nil {
		return false, err
	}
	return len(sr.Entries) > 0, nil
}

// joinDN combines a relative OU with the base DN; an OU already containing
// the base is used as-is.
func joinDN(ou, baseDN string) string {
	if ou == "" {
		return baseDN
	}
	if strings.HasSuffix(strings.ToLower(ou), strings.ToLower(baseDN)) {
		return ou
	}
	return ou + "," + baseDN
}
