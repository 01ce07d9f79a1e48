// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/warren/internal/common"
	"github.com/stratastor/warren/pkg/files"
)

var APIError = common.APIError

// FilesHandler handles HTTP requests for browsing the sandboxed tree
type FilesHandler struct {
	manager *files.Manager
	logger  logger.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(manager *files.Manager, logger logger.Logger) *FilesHandler {
	return &FilesHandler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes registers file browsing routes
func (h *FilesHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/browse/*path", h.browse)
	router.GET("/info/*path", h.info)
	router.GET("/preview/*path", h.preview)
}

func (h *FilesHandler) browse(c *gin.Context) {
	items, err := h.manager.Browse(c.Request.Context(), wildcardPath(c))
	if err != nil {
		APIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": items})
}

func (h *FilesHandler) info(c *gin.Context) {
	item, err := h.manager.Info(c.Request.Context(), wildcardPath(c))
	if err != nil {
		APIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": item})
}

func (h *FilesHandler) preview(c *gin.Context) {
	data, err := h.manager.Preview(c.Request.Context(), wildcardPath(c))
	if err != nil {
		APIError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// wildcardPath extracts the sandbox-relative path from the wildcard
// parameter; "/" maps to the sandbox root.
func wildcardPath(c *gin.Context) string {
	p := c.Param("path")
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	rel := strings.TrimPrefix(p, "/")
	if rel == "" {
		return "."
	}
	return rel
}
