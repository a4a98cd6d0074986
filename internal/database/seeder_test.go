package database

import (
	"context"
	"testing"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin(t *testing.T) {
	auth.HashCost = bcrypt.MinCost
	ctx := context.Background()
	st := store.NewMemoryStore()
	tokens, err := auth.NewTokens(config.JWTConfig{Secret: "s"})
	require.NoError(t, err)
	accounts := auth.NewAccounts(st, tokens)

	require.NoError(t, SeedAdmin(ctx, accounts, config.SeedConfig{}))
	snaps, err := st.List(ctx, models.AccountsCollection, nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	seed := config.SeedConfig{AdminEmail: "admin@blocknex.io", AdminPassword: "change-me-now"}
	require.NoError(t, SeedAdmin(ctx, accounts, seed))
	require.NoError(t, SeedAdmin(ctx, accounts, seed))

	snaps, err = st.List(ctx, models.AccountsCollection, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	var acc models.Account
	require.NoError(t, snaps[0].Decode(&acc))
	assert.Equal(t, models.RoleAdmin, acc.Role)
}
