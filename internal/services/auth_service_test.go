package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bakery/internal/domain"
	"bakery/internal/repos"
	"bakery/internal/services"
)

func newAuth(t *testing.T) *services.AuthService {
	t.Helper()
	return services.NewAuthService(repos.NewUserRepo(memdb(t)), "s3cret", time.Hour, bcrypt.MinCost)
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t)

	u, err := auth.Register(ctx, "bob", "Bob@Bakery.test", "Sup3rSecret!")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, "bob@bakery.test", u.Email)
	assert.NotContains(t, u.Hash, "Sup3rSecret!")

	got, err := auth.Login(ctx, "sid-bob", "bob", "Sup3rSecret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	cur, err := auth.CurrentUser(ctx, "sid-bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.Username)

	_, err = auth.Login(ctx, "sid-bob", "bob", "wrong")
	require.ErrorIs(t, err, services.ErrBadCreds)
	_, err = auth.Login(ctx, "sid-x", "nobody", "Sup3rSecret!")
	require.ErrorIs(t, err, services.ErrBadCreds)
}

func TestRegisterDuplicates(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t)

	_, err := auth.Register(ctx, "alice", "new@bakery.test", "Sup3rSecret!")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "username", ve.Field)

	_, err = auth.Register(ctx, "newbie", "ALICE@bakery.test", "Sup3rSecret!")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t)
	u, err := auth.Authenticate(ctx, "admin", "Passw0rd!")
	require.NoError(t, err)

	tok, err := auth.IssueToken(u)
	require.NoError(t, err)
	got, err := auth.ParseToken(ctx, tok)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	other := services.NewAuthService(auth.Users, "different", time.Hour, bcrypt.MinCost)
	_, err = other.ParseToken(ctx, tok)
	require.ErrorIs(t, err, services.ErrInvalidToken)

	auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ParseToken(ctx, tok)
	require.ErrorIs(t, err, services.ErrInvalidToken)
}
