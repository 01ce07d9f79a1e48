// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/warren/config"
	"github.com/stratastor/warren/internal/constants"
	"github.com/stratastor/warren/pkg/acl"
	aclapi "github.com/stratastor/warren/pkg/acl/api"
	"github.com/stratastor/warren/pkg/audit"
	"github.com/stratastor/warren/pkg/directory"
	"github.com/stratastor/warren/pkg/files"
	filesapi "github.com/stratastor/warren/pkg/files/api"
)

// registerACLRoutes builds the ACL engine and wires its HTTP surface. The
// engine is returned so the audit job can share it rather than standing up a
// second sandbox and lock manager.
func registerACLRoutes(
	engine *gin.Engine,
	cfg *config.Config,
	resolver directory.Resolver,
) (*acl.Engine, error) {
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "acl")
	if err != nil {
		return nil, err
	}

	aclEngine, err := acl.NewEngine(l, acl.Config{
		Root:                cfg.Sandbox.Root,
		AllowDefaultEntries: cfg.Sandbox.AllowDefaultEntries,
		GetfaclPath:         cfg.ACL.GetfaclPath,
		SetfaclPath:         cfg.ACL.SetfaclPath,
		VerifyPrincipals:    cfg.ACL.VerifyPrincipals,
	}, resolver)
	if err != nil {
		return nil, err
	}

	handler := aclapi.NewACLHandler(aclEngine, l)
	handler.RegisterRoutes(engine.Group(constants.APIACL))

	// Validation lives on its own group; gin's wildcard path parameter under
	// APIACL cannot coexist with a static sibling route.
	handler.RegisterValidationRoutes(engine.Group(constants.APIBase + "/validation"))

	return aclEngine, nil
}

// registerFilesRoutes wires the sandboxed browsing endpoints against the same
// sandbox root the ACL engine uses.
func registerFilesRoutes(
	engine *gin.Engine,
	cfg *config.Config,
	sandbox *acl.Sandbox,
) error {
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "files")
	if err != nil {
		return err
	}

	manager := files.NewManager(l, sandbox, cfg.Sandbox.AllowedExtensions)
	handler := filesapi.NewFilesHandler(manager, l)
	handler.RegisterRoutes(engine.Group(constants.APIFiles))

	return nil
}

// startAuditJob schedules the periodic ACL drift audit. The returned auditor
// must be stopped on shutdown.
func startAuditJob(
	cfg *config.Config,
	aclEngine *acl.Engine,
	resolver directory.Resolver,
) (*audit.Auditor, error) {
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "audit")
	if err != nil {
		return nil, err
	}

	auditor, err := audit.NewAuditor(l, aclEngine, resolver, cfg.Audit.Cron)
	if err != nil {
		return nil, err
	}
	if err := auditor.Start(); err != nil {
		return nil, err
	}
	return auditor, nil
}
