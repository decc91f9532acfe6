package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateThenVerify(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.Generate("user-1", PurposeConfirmUser)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	require.True(t, svc.Verify("user-1", PurposeConfirmUser, tok))
}

func TestVerifyRejectsWrongUser(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.Generate("user-1", PurposeConfirmUser)
	require.NoError(t, err)

	require.False(t, svc.Verify("user-2", PurposeConfirmUser, tok))
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.Generate("user-1", PurposeConfirmUser)
	require.NoError(t, err)

	require.False(t, svc.Verify("user-1", PurposeResetPassword, tok))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	tok, err := svc.Generate("user-1", PurposeConfirmUser)
	require.NoError(t, err)

	require.False(t, svc.Verify("user-1", PurposeConfirmUser, tok))
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	tok, err := issuer.Generate("user-1", PurposeConfirmUser)
	require.NoError(t, err)

	require.False(t, verifier.Verify("user-1", PurposeConfirmUser, tok))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c", "<script>"} {
		require.False(t, svc.Verify("user-1", PurposeConfirmUser, tok))
	}
}
