package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/warren/internal/common"
	"github.com/stratastor/warren/pkg/acl"
)

func setupTestAPI(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "test.txt"), []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	log := common.Log

	engine, err := acl.NewEngine(log, acl.Config{
		Root:                root,
		AllowDefaultEntries: true,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	handler := NewACLHandler(engine, log)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler.RegisterRoutes(router.Group("/api/v1/warren/acl"))
	handler.RegisterValidationRoutes(router.Group("/api/v1/warren/validation"))

	return router, root
}

func TestACLHandler_GetACL(t *testing.T) {
	router, _ := setupTestAPI(t)

	if _, err := os.Stat(acl.BinGetfacl); err != nil {
		t.Skip("getfacl not available, skipping test")
	}

	req, _ := http.NewRequest("GET", "/api/v1/warren/acl/test.txt", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Wrong status code: got %v, want %v\nResponse: %s",
			resp.Code, http.StatusOK, resp.Body.String())
	}

	var result struct {
		Result acl.PathACL `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if result.Result.Path != "/test.txt" {
		t.Errorf("Wrong path in result: got %s", result.Result.Path)
	}
	if len(result.Result.Entries) < 3 {
		t.Errorf("Expected at least base entries, got %d", len(result.Result.Entries))
	}
}

func TestACLHandler_GetACL_Traversal(t *testing.T) {
	router, _ := setupTestAPI(t)

	req, _ := http.NewRequest("GET", "/api/v1/warren/acl/..%2F..%2Fetc%2Fpasswd", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Wrong status code for traversal: got %v, want %v",
			resp.Code, http.StatusForbidden)
	}
}

func TestACLHandler_SetACL(t *testing.T) {
	router, _ := setupTestAPI(t)

	if _, err := os.Stat(acl.BinSetfacl); err != nil {
		t.Skip("setfacl not available, skipping test")
	}

	// Read current entries first; the PUT body takes the complete set
	getReq, _ := http.NewRequest("GET", "/api/v1/warren/acl/test.txt", nil)
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, getReq)
	if getResp.Code != http.StatusOK {
		t.Skipf("ACLs not readable on test filesystem: %s", getResp.Body.String())
	}

	var current struct {
		Result acl.PathACL `json:"result"`
	}
	if err := json.Unmarshal(getResp.Body.Bytes(), &current); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	desired := append(current.Result.Entries, acl.Entry{
		Scope:     acl.ScopeAccess,
		Kind:      acl.TagNamedUser,
		Qualifier: "root",
		Perms:     acl.PermRead,
	})
	body, _ := json.Marshal(gin.H{"entries": desired})

	putReq, _ := http.NewRequest("PUT", "/api/v1/warren/acl/test.txt", bytes.NewReader(body))
	putReq.Header.Set("Content-Type", "application/json")
	putResp := httptest.NewRecorder()
	router.ServeHTTP(putResp, putReq)

	if putResp.Code != http.StatusOK {
		t.Skipf("ACLs not writable on test filesystem: %s", putResp.Body.String())
	}

	var result struct {
		Result acl.PathACL `json:"result"`
	}
	if err := json.Unmarshal(putResp.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	found := result.Result.Entries.Find(acl.Key{
		Scope:     acl.ScopeAccess,
		Kind:      acl.TagNamedUser,
		Qualifier: "root",
	})
	if found == nil {
		t.Error("Named entry missing from applied result")
	}
}

func TestACLHandler_ValidateACL(t *testing.T) {
	router, _ := setupTestAPI(t)

	t.Run("ValidSetNormalized", func(t *testing.T) {
		body, _ := json.Marshal(gin.H{
			"entries": acl.EntrySet{
				{Scope: acl.ScopeAccess, Kind: acl.TagOwner, Perms: acl.PermAll},
				{Scope: acl.ScopeAccess, Kind: acl.TagGroupClass, Perms: acl.PermRead},
				{Scope: acl.ScopeAccess, Kind: acl.TagOther, Perms: acl.PermNone},
				{Scope: acl.ScopeAccess, Kind: acl.TagNamedUser, Qualifier: "alice", Perms: acl.PermAll},
			},
			"is_directory": false,
		})

		req, _ := http.NewRequest("POST", "/api/v1/warren/validation/acl", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("Wrong status code: got %v\nResponse: %s", resp.Code, resp.Body.String())
		}

		var result struct {
			Result struct {
				Entries acl.EntrySet `json:"entries"`
			} `json:"result"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		mask := result.Result.Entries.Find(acl.Key{Scope: acl.ScopeAccess, Kind: acl.TagMask})
		if mask == nil {
			t.Fatal("Mask entry not synthesized by validation")
		}
		if mask.Perms != acl.PermAll {
			t.Errorf("Wrong mask permissions: got %s", mask.Perms)
		}
	})

	t.Run("InvalidSetRejected", func(t *testing.T) {
		body, _ := json.Marshal(gin.H{
			"entries": acl.EntrySet{
				{Scope: acl.ScopeAccess, Kind: acl.TagOwner, Perms: acl.PermAll},
			},
			"is_directory": false,
		})

		req, _ := http.NewRequest("POST", "/api/v1/warren/validation/acl", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Errorf("Wrong status code: got %v, want %v\nResponse: %s",
				resp.Code, http.StatusBadRequest, resp.Body.String())
		}
	})
}
