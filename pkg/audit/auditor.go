// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package audit runs scheduled drift sweeps over the sandboxed tree,
// flagging ACL states that drifted from what administrators intended:
// masks silently narrowing grants, and grants to principals that no longer
// resolve.
package audit

import (
	"context"
	"os"

	"github.com/go-co-op/gocron/v2"
	"github.com/stratastor/logger"
	"github.com/stratastor/warren/pkg/acl"
	"github.com/stratastor/warren/pkg/errors"
)

// FindingKind classifies a drift finding.
type FindingKind string

const (
	// FindingMaskNarrows flags a named entry whose effective permissions
	// are narrower than its nominal grant.
	FindingMaskNarrows FindingKind = "mask_narrows_grant"
	// FindingUnknownPrincipal flags a grant to a user or group that no
	// longer resolves.
	FindingUnknownPrincipal FindingKind = "unknown_principal"
)

// Finding is one drift observation on one path.
type Finding struct {
	Path   string      `json:"path"`
	Kind   FindingKind `json:"kind"`
	Entry  string      `json:"entry"`
	Detail string      `json:"detail"`
}

// Auditor sweeps the tree on a cron schedule and logs findings as
// structured events.
type Auditor struct {
	logger    logger.Logger
	engine    *acl.Engine
	resolver  acl.PrincipalResolver
	scheduler gocron.Scheduler
	cron      string
}

// NewAuditor creates an auditor sweeping the engine's sandbox on the given
// cron expression. resolver may be nil to skip principal checks.
func NewAuditor(l logger.Logger, engine *acl.Engine, resolver acl.PrincipalResolver, cron string) (*Auditor, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, errors.AuditScheduleFailed)
	}

	return &Auditor{
		logger:    l,
		engine:    engine,
		resolver:  resolver,
		scheduler: sched,
		cron:      cron,
	}, nil
}

// Start schedules the sweep and begins the scheduler.
func (a *Auditor) Start() error {
	_, err := a.scheduler.NewJob(
		gocron.CronJob(a.cron, false),
		gocron.NewTask(func() {
			if _, err := a.Run(context.Background()); err != nil {
				a.logger.Error("Scheduled ACL audit failed", "error", err)
			}
		}),
		gocron.WithName("acl-drift-audit"),
		gocron.WithSingletonMode(gocron.LimitModeWait),
	)
	if err != nil {
		return errors.Wrap(err, errors.AuditScheduleFailed).
			WithMetadata("cron", a.cron)
	}

	a.scheduler.Start()
	a.logger.Info("ACL drift audit scheduled", "cron", a.cron)
	return nil
}

// Stop shuts the scheduler down.
func (a *Auditor) Stop() error {
	return a.scheduler.Shutdown()
}

// Run sweeps the tree once and returns the findings. Each top-level entry
// is read under its own subtree lock so the sweep never blocks the whole
// sandbox at once.
func (a *Auditor) Run(ctx context.Context) ([]Finding, error) {
	entries, err := os.ReadDir(a.engine.Sandbox().Root())
	if err != nil {
		return nil, errors.Wrap(err, errors.AuditRunFailed)
	}

	var findings []Finding
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return findings, errors.Wrap(err, errors.AuditRunFailed)
		}
		if de.Type()&os.ModeSymlink != 0 {
			continue
		}

		state, err := a.engine.GetACL(ctx, de.Name(), de.IsDir())
		if err != nil {
			a.logger.Warn("Audit could not read path",
				"path", de.Name(), "error", err)
			continue
		}
		a.collect(ctx, state, &findings)
	}

	for _, f := range findings {
		a.logger.Warn("ACL drift detected",
			"path", f.Path,
			"kind", string(f.Kind),
			"entry", f.Entry,
			"detail", f.Detail)
	}
	a.logger.Info("ACL drift audit completed", "findings", len(findings))

	return findings, nil
}

func (a *Auditor) collect(ctx context.Context, state acl.PathACL, findings *[]Finding) {
	*findings = append(*findings, InspectEntries(ctx, state.Path, state.Entries, a.resolver)...)
	for _, child := range state.Children {
		a.collect(ctx, child, findings)
	}
}

// InspectEntries checks one path's entry set for drift.
func InspectEntries(ctx context.Context, path string, entries acl.EntrySet, resolver acl.PrincipalResolver) []Finding {
	var findings []Finding

	for _, scope := range []acl.Scope{acl.ScopeAccess, acl.ScopeDefault} {
		mask := entries.Find(acl.Key{Scope: scope, Kind: acl.TagMask})
		for _, e := range entries.Scoped(scope) {
			if !e.IsNamed() {
				continue
			}

			if mask != nil && e.Perms&mask.Perms != e.Perms {
				findings = append(findings, Finding{
					Path:  path,
					Kind:  FindingMaskNarrows,
					Entry: e.SpecString(),
					Detail: "effective permissions are " +
						(e.Perms & mask.Perms).String(),
				})
			}

			if resolver != nil {
				var err error
				if e.Kind == acl.TagNamedUser {
					err = resolver.LookupUser(ctx, e.Qualifier)
				} else {
					err = resolver.LookupGroup(ctx, e.Qualifier)
				}
				if err != nil {
					findings = append(findings, Finding{
						Path:   path,
						Kind:   FindingUnknownPrincipal,
						Entry:  e.SpecString(),
						Detail: err.Error(),
					})
				}
			}
		}
	}

	return findings
}
