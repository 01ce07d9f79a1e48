// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import "net/http"

const (
	DomainConfig    Domain = "CONFIG"
	DomainServer    Domain = "SERVER"
	DomainCommand   Domain = "CMD"
	DomainSandbox   Domain = "SANDBOX"
	DomainACL       Domain = "ACL"
	DomainDirectory Domain = "DIRECTORY"
	DomainFiles     Domain = "FILES"
	DomainAudit     Domain = "AUDIT"
	DomainHealth    Domain = "HEALTH"
	DomainLifecycle Domain = "LIFECYCLE"
	DomainMisc      Domain = "MISC"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type WarrenError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	// Metadata carries contextual key/values that don't fit the standard
	// fields: command lines, exit codes, offending paths, per-path apply
	// results. Serialized in API responses and flattened into log fields.
	Metadata map[string]string `json:"metadata,omitempty"`

	err error // wrapped cause, if any
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1200-1299: Directory (LDAP/OS principal lookup) errors
// 1300-1399: Command execution
// 1400-1499: Health check
// 1500-1599: Lifecycle management
// 1600-1699: Path sandbox errors
// 1700-1799: ACL engine errors
// 1800-1849: File browsing errors
// 1850-1899: Audit errors
// 1900-1999: Miscellaneous
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound         = 1000 + iota // Config file not found
	ConfigInvalid                        // Invalid config format
	ConfigLoadFailed                     // Failed to load config
	ConfigWriteFailed                    // Failed to write config
	ConfigValidationFailed               // Config validation failed
	ConfigMarshalFailed                  // Config serialization failed
	ConfigHomeDirError                   // Error getting home directory
)

const (
	// Server Errors (1100-1199)
	ServerStart             = 1100 + iota // Failed to start server
	ServerShutdown                        // Error during shutdown
	ServerBind                            // Failed to bind port
	ServerTimeout                         // Operation timeout
	ServerMiddleware                      // Middleware error
	ServerRequestValidation               // Request validation failed
	ServerInternalError                   // Internal server error
	ServerBadRequest                      // Bad request error
)

const (
	// Directory Errors (1200-1299)
	DirectoryConnectFailed      = 1200 + iota // Failed to connect to directory
	DirectorySearchFailed                     // Directory search failed
	DirectoryUserNotFound                     // User not found
	DirectoryGroupNotFound                    // Group not found
	DirectoryInvalidCredentials               // Invalid bind credentials
	DirectoryLookupFailed                     // Local account lookup failed
)

const (
	// Command Execution (1300-1399)
	CommandNotFound     = 1300 + iota // Command binary not found
	CommandExecution                  // Execution failed
	CommandTimeout                    // Command timed out
	CommandPermission                 // Permission denied
	CommandInvalidInput               // Invalid command input
	CommandOutputParse                // Output parsing failed
	CommandPipe                       // Command pipe error
)

const (
	// Health Check (1400-1499)
	HealthCheckFailed   = 1400 + iota // Health check failed
	HealthCheckTimeout                // Health check timed out
	HealthCheckEndpoint               // Endpoint error
)

const (
	// Lifecycle Management (1500-1599)
	LifecyclePID      = 1500 + iota // PID file operation failed
	LifecycleShutdown               // Shutdown process error
	LifecycleSignal                 // Signal handling error
)

const (
	// Path Sandbox (1600-1699)
	SandboxPathViolation  = 1600 + iota // Path escapes the sandbox root
	SandboxRootInvalid                  // Sandbox root missing or not a directory
	SandboxPathNotFound                 // Resolved path does not exist
	SandboxParentNotFound               // Parent directory does not exist
)

const (
	// ACL Engine (1700-1799)
	ACLInvalidInput       = 1700 + iota // Invalid ACL input
	ACLValidationFailed                 // Entry set violates POSIX ACL invariants
	ACLDuplicateEntry                   // Duplicate qualifier within a scope
	ACLMissingBaseEntry                 // Owner/owning-group/other entry missing
	ACLBaseEntryRemoval                 // Attempt to remove a required base entry
	ACLDefaultOnFile                    // Default-scope entry on a non-directory
	ACLDefaultsDisabled                 // Default-scope entries disabled by config
	ACLInvalidPermission                // Permission bits outside r/w/x
	ACLInvalidPrincipal                 // Named user/group does not resolve
	ACLReadError                        // Failed to read filesystem ACLs
	ACLParseError                       // getfacl produced unparseable output
	ACLWriteError                       // Failed to modify filesystem ACLs
	ACLPathNotFound                     // Target path not found
	ACLPermissionDenied                 // OS denied the ACL operation
	ACLCommandUnavailable               // getfacl/setfacl not installed
	ACLCommandFailed                    // setfacl exited nonzero
	ACLPartialApply                     // Recursive apply partially failed
	ACLOperationTimedOut                // Lock wait or apply deadline expired
)

const (
	// File Browsing (1800-1849)
	FilesNotFound        = 1800 + iota // File or directory not found
	FilesNotADirectory                 // Browse target is not a directory
	FilesExtensionDenied               // File extension not allowed for preview
	FilesReadError                     // Failed to read file metadata
)

const (
	// Audit (1850-1899)
	AuditScheduleFailed = 1850 + iota // Failed to schedule audit job
	AuditRunFailed                    // Audit sweep failed
)

const (
	// Miscellaneous (1900-1999)
	WarrenMisc    = 1900 + iota // Miscellaneous program error
	NotFoundError               // Not found
	LoggerError                 // Logger error
)

var errorDefinitions = map[ErrorCode]struct {
	message    string
	domain     Domain
	httpStatus int
}{
	// Configuration errors
	ConfigNotFound:   {"Configuration file not found", DomainConfig, http.StatusNotFound},
	ConfigInvalid:    {"Invalid configuration format", DomainConfig, http.StatusBadRequest},
	ConfigLoadFailed: {"Failed to load configuration", DomainConfig, http.StatusInternalServerError},
	ConfigWriteFailed: {
		"Failed to write configuration",
		DomainConfig,
		http.StatusInternalServerError,
	},
	ConfigValidationFailed: {"Configuration validation failed", DomainConfig, http.StatusBadRequest},
	ConfigMarshalFailed: {
		"Failed to serialize configuration",
		DomainConfig,
		http.StatusInternalServerError,
	},
	ConfigHomeDirError: {
		"Failed to get home directory",
		DomainConfig,
		http.StatusInternalServerError,
	},

	// Server errors
	ServerStart:    {"Failed to start server", DomainServer, http.StatusInternalServerError},
	ServerShutdown: {"Error during server shutdown", DomainServer, http.StatusInternalServerError},
	ServerBind:     {"Failed to bind server port", DomainServer, http.StatusInternalServerError},
	ServerTimeout:  {"Server operation timed out", DomainServer, http.StatusGatewayTimeout},
	ServerMiddleware: {
		"Middleware execution failed",
		DomainServer,
		http.StatusInternalServerError,
	},
	ServerRequestValidation: {"Request validation failed", DomainServer, http.StatusBadRequest},
	ServerInternalError:     {"Internal server error", DomainServer, http.StatusInternalServerError},
	ServerBadRequest:        {"Bad request error", DomainServer, http.StatusBadRequest},

	// Directory errors
	DirectoryConnectFailed: {
		"Failed to connect to directory service",
		DomainDirectory,
		http.StatusInternalServerError,
	},
	DirectorySearchFailed: {
		"Directory search failed",
		DomainDirectory,
		http.StatusInternalServerError,
	},
	DirectoryUserNotFound:  {"User not found in directory", DomainDirectory, http.StatusNotFound},
	DirectoryGroupNotFound: {"Group not found in directory", DomainDirectory, http.StatusNotFound},
	DirectoryInvalidCredentials: {
		"Invalid directory bind credentials",
		DomainDirectory,
		http.StatusUnauthorized,
	},
	DirectoryLookupFailed: {
		"Local account lookup failed",
		DomainDirectory,
		http.StatusInternalServerError,
	},

	// Command execution errors
	CommandNotFound:  {"Command not found", DomainCommand, http.StatusNotFound},
	CommandExecution: {"Command execution failed", DomainCommand, http.StatusBadRequest},
	CommandTimeout:   {"Command execution timed out", DomainCommand, http.StatusGatewayTimeout},
	CommandPermission: {
		"Permission denied executing command",
		DomainCommand,
		http.StatusForbidden,
	},
	CommandInvalidInput: {"Invalid command input", DomainCommand, http.StatusBadRequest},
	CommandOutputParse: {
		"Failed to parse command output",
		DomainCommand,
		http.StatusInternalServerError,
	},
	CommandPipe: {"Command pipe operation failed", DomainCommand, http.StatusInternalServerError},

	// Health check errors
	HealthCheckFailed:  {"Health check failed", DomainHealth, http.StatusServiceUnavailable},
	HealthCheckTimeout: {"Health check timed out", DomainHealth, http.StatusGatewayTimeout},
	HealthCheckEndpoint: {
		"Health check endpoint error",
		DomainHealth,
		http.StatusServiceUnavailable,
	},

	// Lifecycle errors
	LifecyclePID: {"PID file operation failed", DomainLifecycle, http.StatusInternalServerError},
	LifecycleShutdown: {
		"Error during shutdown process",
		DomainLifecycle,
		http.StatusInternalServerError,
	},
	LifecycleSignal: {"Signal handling error", DomainLifecycle, http.StatusInternalServerError},

	// Sandbox errors
	SandboxPathViolation: {"Path escapes the sandbox root", DomainSandbox, http.StatusForbidden},
	SandboxRootInvalid: {
		"Sandbox root missing or not a directory",
		DomainSandbox,
		http.StatusInternalServerError,
	},
	SandboxPathNotFound:   {"Path not found", DomainSandbox, http.StatusNotFound},
	SandboxParentNotFound: {"Parent directory not found", DomainSandbox, http.StatusNotFound},

	// ACL engine errors
	ACLInvalidInput: {"Invalid ACL input", DomainACL, http.StatusBadRequest},
	ACLValidationFailed: {
		"ACL entry set violates POSIX invariants",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLDuplicateEntry: {
		"Duplicate ACL qualifier within a scope",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLMissingBaseEntry: {
		"Required owner, owning-group or other entry missing",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLBaseEntryRemoval: {
		"Owner, owning-group and other entries cannot be removed",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLDefaultOnFile: {
		"Default-scope entries require a directory",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLDefaultsDisabled: {
		"Default-scope entries are disabled on this deployment",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLInvalidPermission: {
		"Permission bits outside read/write/execute",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLInvalidPrincipal: {
		"Named user or group does not resolve",
		DomainACL,
		http.StatusBadRequest,
	},
	ACLReadError:        {"Failed to read filesystem ACLs", DomainACL, http.StatusInternalServerError},
	ACLParseError:       {"Failed to parse ACL tool output", DomainACL, http.StatusInternalServerError},
	ACLWriteError:       {"Failed to modify filesystem ACLs", DomainACL, http.StatusInternalServerError},
	ACLPathNotFound:     {"Path not found", DomainACL, http.StatusNotFound},
	ACLPermissionDenied: {"Permission denied for ACL operation", DomainACL, http.StatusForbidden},
	ACLCommandUnavailable: {
		"ACL tooling not installed on this host",
		DomainACL,
		http.StatusServiceUnavailable,
	},
	ACLCommandFailed: {"ACL command failed", DomainACL, http.StatusInternalServerError},
	ACLPartialApply: {
		"Recursive ACL apply partially failed",
		DomainACL,
		http.StatusMultiStatus,
	},
	ACLOperationTimedOut: {"ACL operation timed out", DomainACL, http.StatusGatewayTimeout},

	// File browsing errors
	FilesNotFound:      {"File or directory not found", DomainFiles, http.StatusNotFound},
	FilesNotADirectory: {"Not a directory", DomainFiles, http.StatusBadRequest},
	FilesExtensionDenied: {
		"File extension not allowed",
		DomainFiles,
		http.StatusBadRequest,
	},
	FilesReadError: {"Failed to read file metadata", DomainFiles, http.StatusInternalServerError},

	// Audit errors
	AuditScheduleFailed: {
		"Failed to schedule ACL audit",
		DomainAudit,
		http.StatusInternalServerError,
	},
	AuditRunFailed: {"ACL audit sweep failed", DomainAudit, http.StatusInternalServerError},

	// Miscellaneous
	WarrenMisc:    {"Miscellaneous program error", DomainMisc, http.StatusInternalServerError},
	NotFoundError: {"Not found", DomainMisc, http.StatusNotFound},
	LoggerError:   {"Logger error", DomainMisc, http.StatusInternalServerError},
}
