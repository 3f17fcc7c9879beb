package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It lets one-off runs pass a freshly captured session without storing it.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets a session from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	cookie := os.Getenv("GOPRO_COOKIE")
	token := os.Getenv("GOPRO_ACCESS_TOKEN")

	if cookie == "" && token == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't carry an account name
	if name == "" {
		name = "default"
	}

	return &Account{
		Name:         name,
		CookieHeader: cookie,
		AccessToken:  token,
		UserAgent:    os.Getenv("GPFETCH_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("GOPRO_COOKIE") != "" || os.Getenv("GOPRO_ACCESS_TOKEN") != ""
}
