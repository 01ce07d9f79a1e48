// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package constants

// Build-time variables set via ldflags
var (
	Version   = "v0.0.1-dev" // Set via -X flag during build
	CommitSHA = "unknown"    // Set via -X flag during build
	BuildTime = "unknown"    // Set via -X flag during build
)

const (
	WarrenVersion     = "v0.0.1"
	WarrenPIDFilePath = "/home/warren/.warren/warren.pid"

	// config
	ConfigFileName = "warren.yml"

	// routes
	APIVersion = "v1"
	APIBase    = "/api/" + APIVersion + "/warren"

	// APIACL is the base path for ACL management endpoints; paths under it
	// are wildcard-matched filesystem paths relative to the sandbox root.
	APIACL = APIBase + "/acl"

	// APIACLValidate hosts the dry-run entry set validation endpoint. It
	// lives outside APIACL because gin cannot mix static routes with the
	// wildcard path parameter.
	APIACLValidate = APIBase + "/validation/acl"

	// APIFiles is the base path for sandboxed file browsing endpoints
	APIFiles = APIBase + "/files"
)
