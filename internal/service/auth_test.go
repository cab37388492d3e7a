package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupProvisionsProfileAndPreferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, " Ada@Example.com ", "correct-horse-battery-staple", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	profile, err := env.creator.Mine(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.DisplayName)
	assert.False(t, profile.HasConnectAccount())

	prefs, err := env.prefs.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "medium", prefs.RenderQuality)

	_, err = env.auth.Signup(ctx, "ada@example.com", "correct-horse-battery-staple", "Ada")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = env.auth.Signup(ctx, "bob@example.com", "short", "Bob")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginAndToken(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.auth.Signup(context.Background(), "ada@example.com", "correct-horse-battery-staple", "Ada")
	require.NoError(t, err)

	_, err = env.auth.Login("ada@example.com", "wrong-horse-battery-staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login("nobody@example.com", "correct-horse-battery-staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logged, err := env.auth.Login("ADA@example.com", "correct-horse-battery-staple")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	token, err := env.auth.GenerateJWT(logged)
	require.NoError(t, err)
	fromToken, err := env.auth.UserFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, fromToken.ID)
	assert.Nil(t, fromToken.PasswordHash)

	_, err = env.auth.UserFromToken(token + "x")
	assert.Error(t, err)
}

func TestAuthenticateOAuthReusesAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.AuthenticateOAuth(ctx, "grace@example.com", "Grace", "google")
	require.NoError(t, err)
	second, err := env.auth.AuthenticateOAuth(ctx, "Grace@Example.com", "Grace H", "google")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	_, err = env.auth.Login("grace@example.com", "correct-horse-battery-staple")
	assert.ErrorIs(t, err, ErrPasswordlessLogin)
}
