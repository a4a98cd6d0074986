package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	tokens, err := NewTokens(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour})
	require.NoError(t, err)
	return tokens
}

func TestNewTokensRequiresSecret(t *testing.T) {
	_, err := NewTokens(config.JWTConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTokens(t)
	token, err := tokens.GenerateJWT(models.Account{UserID: "u-1", Email: "a@b.io", Role: models.RoleDealer})
	require.NoError(t, err)

	claims, err := tokens.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleDealer, claims.Role)

	other, err := NewTokens(config.JWTConfig{Secret: "other"})
	require.NoError(t, err)
	_, err = other.ParseJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	tokens := newTokens(t)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := tokens.GenerateJWT(models.Account{UserID: "u-1"})
	require.NoError(t, err)

	_, err = tokens.ParseJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	accounts := NewAccounts(st, newTokens(t))

	acc, err := accounts.Register(ctx, RegisterInput{
		Email: " Dealer@Example.com ", Name: "Acme", Password: "s3cret-pass", Role: models.RoleDealer, GSTNumber: "29abcde1234f1z5",
	})
	require.NoError(t, err)
	assert.Equal(t, "dealer@example.com", acc.Email)
	assert.NotEqual(t, "s3cret-pass", acc.Password)

	var profile models.Profile
	require.NoError(t, st.Get(ctx, models.ProfilesCollection, acc.UserID, &profile))
	assert.Equal(t, "Acme", profile.CompanyName)
	assert.Equal(t, "29ABCDE1234F1Z5", profile.GSTNumber)

	_, err = accounts.Register(ctx, RegisterInput{Email: "dealer@example.com", Name: "Dup", Password: "another-pass", Role: models.RoleSupplier})
	assert.ErrorIs(t, err, ErrEmailTaken)

	token, logged, err := accounts.Login(ctx, "DEALER@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, acc.UserID, logged.UserID)
	assert.NotEmpty(t, token)

	_, _, err = accounts.Login(ctx, "dealer@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = accounts.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	accounts := NewAccounts(store.NewMemoryStore(), newTokens(t))
	cases := []RegisterInput{
		{Email: "not-an-email", Name: "x", Password: "long-enough", Role: models.RoleDealer},
		{Email: "a@b.io", Name: "", Password: "long-enough", Role: models.RoleDealer},
		{Email: "a@b.io", Name: "x", Password: "short", Role: models.RoleDealer},
		{Email: "a@b.io", Name: "x", Password: "long-enough", Role: models.RoleAdmin},
	}
	for _, in := range cases {
		_, err := accounts.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidAccount, "%+v", in)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccounts(store.NewMemoryStore(), newTokens(t))

	created, err := accounts.EnsureAdmin(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = accounts.EnsureAdmin(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.False(t, created)

	_, acc, err := accounts.Login(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, acc.Role)
}
