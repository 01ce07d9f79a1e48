// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	goerrors "errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/warren/internal/common"
	"github.com/stratastor/warren/pkg/acl"
	"github.com/stratastor/warren/pkg/errors"
)

var APIError = common.APIError

// ACLHandler handles HTTP requests for filesystem ACLs
type ACLHandler struct {
	engine *acl.Engine
	logger logger.Logger
}

// NewACLHandler creates a new ACL handler
func NewACLHandler(engine *acl.Engine, logger logger.Logger) *ACLHandler {
	return &ACLHandler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers ACL API routes. Paths are sandbox-relative and
// arrive as the wildcard segment.
func (h *ACLHandler) RegisterRoutes(router *gin.RouterGroup) {
	aclGroup := router.Group("")

	// Apply common middleware
	aclGroup.Use(ValidatePathParam())

	aclGroup.GET("/*path", h.getACL) // Get ACLs for a path
	aclGroup.PUT("/*path", h.setACL) // Set the complete ACL for a path
}

// RegisterValidationRoutes registers the dry-run validation endpoint. It
// lives outside the wildcard group because gin cannot mix a static route
// with a sibling wildcard.
func (h *ACLHandler) RegisterValidationRoutes(router *gin.RouterGroup) {
	router.POST("/acl", h.validateACL)
}

// getACL handles GET requests to retrieve ACLs
func (h *ACLHandler) getACL(c *gin.Context) {
	relPath := getDecodedPath(c)
	recursive := c.Query("recursive") == "true"

	result, err := h.engine.GetACL(c.Request.Context(), relPath, recursive)
	if err != nil {
		APIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// setACL handles PUT requests carrying the complete desired entry set
func (h *ACLHandler) setACL(c *gin.Context) {
	relPath := getDecodedPath(c)

	if body, err := common.ReadResetBody(c); err == nil {
		h.logger.Debug("ACL set request", "path", relPath, "body", string(body))
	}

	var req struct {
		Entries   acl.EntrySet `json:"entries"    binding:"required"`
		Recursive bool         `json:"recursive"`
		HonorMask bool         `json:"honor_mask"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, errors.New(errors.ServerRequestValidation, err.Error()))
		return
	}

	result, err := h.engine.SetACL(c.Request.Context(), acl.SetRequest{
		Path:      relPath,
		Entries:   req.Entries,
		Recursive: req.Recursive,
		HonorMask: req.HonorMask,
	})
	if err != nil {
		var partial *acl.PartialApplyError
		if goerrors.As(err, &partial) {
			// The caller gets the exact split so it can retry only the
			// failed remainder.
			c.JSON(http.StatusMultiStatus, gin.H{
				"error": gin.H{
					"code":      errors.ACLPartialApply,
					"domain":    errors.DomainACL,
					"message":   partial.Error(),
					"succeeded": partial.Succeeded,
					"failed":    partial.Failed,
				},
			})
			return
		}
		APIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// validateACL handles dry-run validation of a desired entry set
func (h *ACLHandler) validateACL(c *gin.Context) {
	var req struct {
		Entries     acl.EntrySet `json:"entries"      binding:"required"`
		IsDirectory bool         `json:"is_directory"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, errors.New(errors.ServerRequestValidation, err.Error()))
		return
	}

	normalized, err := h.engine.ValidateACL(c.Request.Context(), req.Entries, req.IsDirectory)
	if err != nil {
		APIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": gin.H{"entries": normalized}})
}

// ValidatePathParam validates and decodes the wildcard path parameter
func ValidatePathParam() gin.HandlerFunc {
	validPath := regexp.MustCompile(`^/(?:[^<>:"|?*]*/)*(?:[^<>:"|?*]*)$`)

	return func(c *gin.Context) {
		path := c.Param("path")
		if path == "" {
			APIError(c, errors.New(errors.ACLInvalidInput, "Path cannot be empty"))
			return
		}

		// URL-decode the path
		decodedPath, err := url.PathUnescape(path)
		if err != nil {
			APIError(c, errors.New(errors.ACLInvalidInput, "Invalid path encoding"))
			return
		}

		// Validate path format
		if !validPath.MatchString(decodedPath) {
			APIError(c, errors.New(errors.ACLInvalidInput, "Invalid path format"))
			return
		}

		// Store the decoded path for handlers
		c.Set("decodedPath", decodedPath)
		c.Next()
	}
}

// getDecodedPath retrieves the decoded path from the context as a
// sandbox-relative path; "/" maps to the sandbox root itself. Containment
// is the sandbox's job, not the handler's.
func getDecodedPath(c *gin.Context) string {
	path, exists := c.Get("decodedPath")
	if !exists {
		return "."
	}

	rel := strings.TrimPrefix(path.(string), "/")
	if rel == "" {
		return "."
	}
	return rel
}
