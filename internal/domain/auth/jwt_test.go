package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "simbapos/internal/core/context"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", "simbapos", time.Hour)

	token, err := svc.Generate(appctx.UserContext{
		UserID:   "user-1",
		Username: "aysel",
		Role:     appctx.RoleManager,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "aysel", user.Username)
	assert.Equal(t, appctx.RoleManager, user.Role)
	assert.NotEmpty(t, user.SessionID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", "simbapos", time.Hour)
	verifier := NewJWTService("secret-b", "simbapos", time.Hour)

	token, err := issuer.Generate(appctx.UserContext{UserID: "u", Role: appctx.RoleCashier})
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", "simbapos", -time.Minute)

	token, err := svc.Generate(appctx.UserContext{UserID: "u", Role: appctx.RoleCashier})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", "simbapos", time.Hour)
	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
}
