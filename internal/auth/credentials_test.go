package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T) *Credentials {
	t.Helper()
	creds, err := NewCredentials("admin-secret", "guest-secret")
	require.NoError(t, err)
	return creds
}

func TestNewCredentials_RequiresBothSecrets(t *testing.T) {
	_, err := NewCredentials("", "guest-secret")
	assert.Error(t, err)

	_, err = NewCredentials("admin-secret", "")
	assert.Error(t, err)
}

func TestCheck_RoundTrip(t *testing.T) {
	creds := testCredentials(t)

	assert.True(t, creds.Check(RoleAdmin, "admin-secret"))
	assert.True(t, creds.Check(RoleGuest, "guest-secret"))

	assert.False(t, creds.Check(RoleAdmin, "guest-secret"))
	assert.False(t, creds.Check(RoleGuest, "admin-secret"))
	assert.False(t, creds.Check(RoleAdmin, "wrong"))
}

func TestCheck_UnknownUser(t *testing.T) {
	creds := testCredentials(t)

	assert.False(t, creds.Check("root", "admin-secret"))
	// An unknown user must not match even the decoy input.
	assert.False(t, creds.Check("root", "decoy"))
}

func TestCheck_EmptyInput(t *testing.T) {
	creds := testCredentials(t)

	assert.False(t, creds.Check(RoleAdmin, ""))
	assert.False(t, creds.Check("", "admin-secret"))
	assert.False(t, creds.Check("", ""))
}

func TestPermissionsFor(t *testing.T) {
	assert.ElementsMatch(t, []string{CapAdmin, CapMLAdvanced, CapMLBasic}, PermissionsFor(RoleAdmin))
	assert.ElementsMatch(t, []string{CapGuest, CapMLBasic}, PermissionsFor(RoleGuest))
	assert.Empty(t, PermissionsFor("root"))
}
