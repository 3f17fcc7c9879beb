package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv("GPFETCH_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "sessions.enc"))
	require.NoError(t, err)
	return store
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	account := testAccount("secure")
	require.NoError(t, store.Store(account))

	got, err := store.Retrieve("secure")
	require.NoError(t, err)
	assert.Equal(t, account.Name, got.Name)
	assert.Equal(t, account.CookieHeader, got.CookieHeader)

	assert.True(t, store.Exists("secure"))
	assert.False(t, store.Exists("missing"))
}

func TestEncryptedFileStoreList(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Store(testAccount("one")))
	require.NoError(t, store.Store(testAccount("two")))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestEncryptedFileStoreDelete(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Store(testAccount("gone")))
	require.NoError(t, store.Delete("gone"))

	_, err := store.Retrieve("gone")
	assert.Error(t, err)
}

func TestEncryptedFileStoreCiphertextOnDisk(t *testing.T) {
	t.Setenv("GPFETCH_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	account := testAccount("hidden")
	require.NoError(t, store.Store(account))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), account.CookieHeader, "credentials must not be stored in the clear")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv("GPFETCH_PASSPHRASE", "first-passphrase")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("locked")))

	t.Setenv("GPFETCH_PASSPHRASE", "other-passphrase")
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = reopened.Retrieve("locked")
	assert.Error(t, err, "a wrong passphrase must not decrypt stored sessions")
}
