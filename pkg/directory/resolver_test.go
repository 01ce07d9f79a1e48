package directory

import (
	"context"
	"testing"

	"github.com/stratastor/warren/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalResolver(t *testing.T) {
	r := &LocalResolver{}
	ctx := context.Background()

	t.Run("KnownUser", func(t *testing.T) {
		// root exists on any system these tests run on
		assert.NoError(t, r.LookupUser(ctx, "root"))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		err := r.LookupUser(ctx, "warren-no-such-user")
		require.Error(t, err)
		code, ok := errors.GetCode(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCode(errors.DirectoryUserNotFound), code)
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		err := r.LookupGroup(ctx, "warren-no-such-group")
		require.Error(t, err)
		code, ok := errors.GetCode(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCode(errors.DirectoryGroupNotFound), code)
	})
}

func TestJoinDN(t *testing.T) {
	base := "DC=corp,DC=example,DC=org"

	assert.Equal(t, "OU=Users,"+base, joinDN("OU=Users", base))
	assert.Equal(t, base, joinDN("", base))
	assert.Equal(t, "OU=Users,"+base, joinDN("OU=Users,"+base, base))
}
