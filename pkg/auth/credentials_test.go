package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

func testAccount(name string) *Account {
	return &Account{
		Name:         name,
		CookieHeader: "gp_access_token=token-" + name,
		LastModified: time.Now(),
	}
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	store := NewMockStore()
	manager := newTestManager(store)

	account := testAccount("personal")
	require.NoError(t, manager.Store(account))

	got, err := manager.Retrieve("personal")
	require.NoError(t, err)
	assert.Equal(t, "personal", got.Name)
	assert.Equal(t, account.CookieHeader, got.CookieHeader)
	assert.False(t, got.LastModified.IsZero())
}

func TestManagerStoreValidation(t *testing.T) {
	manager := newTestManager(NewMockStore())

	err := manager.Store(&Account{CookieHeader: "gp_access_token=x"})
	assert.Error(t, err, "missing name must be rejected")

	err = manager.Store(&Account{Name: "nocreds"})
	assert.Error(t, err, "missing credential must be rejected")
}

func TestManagerStoreFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreErr = errors.New("keychain locked")
	working := NewMockStore()
	manager := newTestManager(broken, working)

	require.NoError(t, manager.Store(testAccount("personal")))

	assert.False(t, broken.Exists("personal"))
	assert.True(t, working.Exists("personal"))
}

func TestManagerRetrieveChecksAllStores(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, second.Store(testAccount("deep")))
	manager := newTestManager(first, second)

	got, err := manager.Retrieve("deep")
	require.NoError(t, err)
	assert.Equal(t, "deep", got.Name)

	_, err = manager.Retrieve("missing")
	assert.Error(t, err)
}

func TestManagerRetrieveDefault(t *testing.T) {
	t.Run("named default account wins", func(t *testing.T) {
		store := NewMockStore()
		require.NoError(t, store.Store(testAccount("other")))
		require.NoError(t, store.Store(testAccount("default")))
		manager := newTestManager(store)

		got, err := manager.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "default", got.Name)
	})

	t.Run("falls back to first listed account", func(t *testing.T) {
		store := NewMockStore()
		require.NoError(t, store.Store(testAccount("only")))
		manager := newTestManager(store)

		got, err := manager.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "only", got.Name)
	})

	t.Run("no accounts anywhere", func(t *testing.T) {
		manager := newTestManager(NewMockStore())

		_, err := manager.RetrieveDefault()
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})
}

func TestManagerListDeduplicatesAcrossStores(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()

	shared := testAccount("shared")
	require.NoError(t, first.Store(shared))

	sharedCopy := testAccount("shared")
	sharedCopy.CookieHeader = "gp_access_token=stale"
	require.NoError(t, second.Store(sharedCopy))
	require.NoError(t, second.Store(testAccount("extra")))

	manager := newTestManager(first, second)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	byName := make(map[string]*Account)
	for _, account := range accounts {
		byName[account.Name] = account
	}
	require.Contains(t, byName, "shared")
	require.Contains(t, byName, "extra")

	// First store wins for duplicated names
	assert.Equal(t, shared.CookieHeader, byName["shared"].CookieHeader)
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, first.Store(testAccount("both")))
	require.NoError(t, second.Store(testAccount("both")))
	manager := newTestManager(first, second)

	require.NoError(t, manager.Delete("both"))
	assert.False(t, first.Exists("both"))
	assert.False(t, second.Exists("both"))

	assert.ErrorIs(t, manager.Delete("both"), ErrCredentialsNotFound)
}

func TestManagerExists(t *testing.T) {
	store := NewMockStore()
	require.NoError(t, store.Store(testAccount("here")))
	manager := newTestManager(store)

	assert.True(t, manager.Exists("here"))
	assert.False(t, manager.Exists("gone"))
}

func TestAccountAuthContext(t *testing.T) {
	account := testAccount("ctx")
	authCtx := account.AuthContext()

	assert.Equal(t, "Bearer token-ctx", authCtx.Headers()["Authorization"])
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{
		Name:         "visible",
		CookieHeader: "gp_access_token=supersecretvalue1234",
		AccessToken:  "short",
	}

	sanitized := SanitizeAccount(account)
	assert.Equal(t, "visible", sanitized.Name)
	assert.NotContains(t, sanitized.CookieHeader, "supersecretvalue1234")
	assert.NotEqual(t, "short", sanitized.AccessToken)

	// Original must be untouched
	assert.Equal(t, "gp_access_token=supersecretvalue1234", account.CookieHeader)
}
