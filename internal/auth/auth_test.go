package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard() *Guard {
	creds := Credentials{
		Admins: map[string]string{"harsh": "harsh"},
		Users:  map[string]string{"user": "user", "harsh": "other"},
	}
	return NewGuard(creds, NewMemorySessionStore(), 0)
}

func TestLoginRoles(t *testing.T) {
	g := testGuard()
	ctx := context.Background()

	admin, err := g.Login(ctx, "harsh", "harsh")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.Token)

	user, err := g.Login(ctx, "user", "user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, user.Role)

	// admin table is checked first, user table still matches on its own password
	fallback, err := g.Login(ctx, "harsh", "other")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, fallback.Role)

	_, err = g.Login(ctx, "user", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = g.Login(ctx, "nobody", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveAndLogout(t *testing.T) {
	g := testGuard()
	ctx := context.Background()

	sess, err := g.Login(ctx, "user", "user")
	require.NoError(t, err)

	resolved, err := g.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "user", resolved.Principal)
	assert.True(t, resolved.LoggedIn())

	require.NoError(t, g.Logout(ctx, sess.Token))
	require.NoError(t, g.Logout(ctx, sess.Token))

	anon, err := g.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.False(t, anon.LoggedIn())

	anon, err = g.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, anon.LoggedIn())
}

func TestRequireChecks(t *testing.T) {
	assert.ErrorIs(t, RequireLoggedIn(nil), ErrAuthRequired)
	assert.ErrorIs(t, RequireLoggedIn(Anonymous()), ErrAuthRequired)
	assert.ErrorIs(t, RequireAdmin(Anonymous()), ErrAdminRequired)

	user := &Session{Principal: "user", Role: RoleUser}
	assert.NoError(t, RequireLoggedIn(user))
	assert.ErrorIs(t, RequireAdmin(user), ErrAdminRequired)

	admin := &Session{Principal: "harsh", Role: RoleAdmin}
	assert.NoError(t, RequireLoggedIn(admin))
	assert.NoError(t, RequireAdmin(admin))
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{Token: "t1", Principal: "user"}, time.Minute))

	_, err := store.Get(ctx, "t1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
