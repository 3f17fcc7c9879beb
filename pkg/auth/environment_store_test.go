package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentStoreRetrieve(t *testing.T) {
	t.Setenv("GOPRO_COOKIE", "gp_access_token=envtok; other=1")
	t.Setenv("GOPRO_ACCESS_TOKEN", "")
	t.Setenv("GPFETCH_USER_AGENT", "env-agent")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", account.Name)
	assert.Equal(t, "gp_access_token=envtok; other=1", account.CookieHeader)
	assert.Equal(t, "env-agent", account.UserAgent)

	assert.True(t, store.Exists("anything"))
}

func TestEnvironmentStoreTokenOnly(t *testing.T) {
	t.Setenv("GOPRO_COOKIE", "")
	t.Setenv("GOPRO_ACCESS_TOKEN", "baretoken")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("named")
	require.NoError(t, err)
	assert.Equal(t, "named", account.Name)
	assert.Equal(t, "baretoken", account.AccessToken)
}

func TestEnvironmentStoreEmpty(t *testing.T) {
	t.Setenv("GOPRO_COOKIE", "")
	t.Setenv("GOPRO_ACCESS_TOKEN", "")

	store := NewEnvironmentStore()

	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(""))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestEnvironmentStoreReadOnly(t *testing.T) {
	store := NewEnvironmentStore()

	assert.ErrorIs(t, store.Store(testAccount("x")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}
