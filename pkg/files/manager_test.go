package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stratastor/warren/internal/common"
	"github.com/stratastor/warren/pkg/acl"
	"github.com/stratastor/warren/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (*Manager, string) {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{"proj2", "proj10"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	require.NoError(t,
		os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0644))
	require.NoError(t,
		os.WriteFile(filepath.Join(root, "data.bin"), []byte{0x01, 0x02}, 0644))

	sandbox, err := acl.NewSandbox(root)
	require.NoError(t, err)

	return NewManager(common.Log, sandbox, []string{"txt", "csv"}), root
}

func TestManagerBrowse(t *testing.T) {
	m, _ := setupManager(t)

	items, err := m.Browse(context.Background(), ".")
	require.NoError(t, err)
	require.Len(t, items, 4)

	// Directories first, numeric name order within each group
	assert.Equal(t, "proj2", items[0].Name)
	assert.Equal(t, "proj10", items[1].Name)
	assert.True(t, items[0].IsDir)
	assert.True(t, items[1].IsDir)
	assert.Equal(t, "data.bin", items[2].Name)
	assert.Equal(t, "notes.txt", items[3].Name)

	notes := items[3]
	assert.Equal(t, "/notes.txt", notes.Path)
	assert.True(t, notes.PreviewAllowed)
	assert.False(t, items[2].PreviewAllowed, "bin extension is not allowlisted")
	assert.NotEmpty(t, notes.Owner)
	assert.NotEmpty(t, notes.Group)

	t.Run("NotADirectory", func(t *testing.T) {
		_, err := m.Browse(context.Background(), "notes.txt")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.FilesNotADirectory), code)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := m.Browse(context.Background(), "../..")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.SandboxPathViolation), code)
	})
}

func TestManagerInfo(t *testing.T) {
	m, _ := setupManager(t)

	item, err := m.Info(context.Background(), "proj2")
	require.NoError(t, err)
	assert.True(t, item.IsDir)
	assert.Equal(t, "/proj2", item.Path)
}

func TestManagerPreview(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	t.Run("AllowedExtension", func(t *testing.T) {
		data, err := m.Preview(ctx, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("DeniedExtension", func(t *testing.T) {
		_, err := m.Preview(ctx, "data.bin")
		require.Error(t, err)
		code, _ := errors.GetCode(err)
		assert.Equal(t, errors.ErrorCode(errors.FilesExtensionDenied), code)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := m.Preview(ctx, "proj2")
		require.Error(t, err)
	})
}
