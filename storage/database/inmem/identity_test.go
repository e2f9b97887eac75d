package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusabe/tathmini/core/identity"
	inmemdb "github.com/dusabe/tathmini/storage/database/inmem"
	testutil "github.com/dusabe/tathmini/tests"
)

func TestIdentityRepository(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.New()
	repo := inmemdb.NewIdentityRepository(db)

	alice := testutil.CreateIdentity(t, repo, "0xalice", "Alice", identity.RoleStudent, "s3cr3t")
	bob := testutil.CreateIdentity(t, repo, "0xbob", "Bob", identity.RoleTeacher, "")

	t.Run("registration is once and for all", func(t *testing.T) {
		_, err := repo.CreateIdentity(ctx, identity.Identity{Address: "0xalice", Name: "Imposter", Role: identity.RoleAdmin})
		assert.Equal(t, identity.ErrAlreadyRegistered, err)

		// the original record is untouched
		got, err := repo.GetIdentity(ctx, "0xalice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, identity.RoleStudent, got.Role)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := repo.GetIdentity(ctx, "0xnobody")
		assert.Equal(t, identity.ErrNotRegistered, err)
	})

	t.Run("password round-trip", func(t *testing.T) {
		got, err := repo.GetIdentity(ctx, alice.Address)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("s3cr3t"))
		assert.Error(t, got.CheckPassword("wrong"))
	})

	t.Run("query all in registration order", func(t *testing.T) {
		idts, err := repo.QueryAllIdentities(ctx)
		require.NoError(t, err)
		require.Len(t, idts, 2)
		assert.Equal(t, alice.Address, idts[0].Address)
		assert.Equal(t, bob.Address, idts[1].Address)
	})
}
