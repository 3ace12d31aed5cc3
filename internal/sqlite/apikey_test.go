package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/techtrace/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	require.NoError(t, repo.Add(ctx, "tech1", "secret-token", "workshop tablet"))
	require.ErrorIs(t, repo.Add(ctx, "tech2", "secret-token", ""), repository.ErrConflict)

	tenant, err := repo.ResolveTenant(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, "tech1", tenant)

	_, err = repo.ResolveTenant(ctx, "wrong")
	require.ErrorIs(t, err, repository.ErrNotFound)

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT key_hash FROM api_keys`).Scan(&stored))
	require.Equal(t, HashToken("secret-token"), stored)
	require.NotContains(t, stored, "secret")
}
