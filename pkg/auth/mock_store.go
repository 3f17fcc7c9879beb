package auth

import "sync"

// MockStore is an in-memory credential store for testing
type MockStore struct {
	accounts map[string]*Account
	mu       sync.RWMutex

	// Error injection for tests
	StoreErr    error
	RetrieveErr error
}

// NewMockStore creates a new in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
	}
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *account
	m.accounts[account.Name] = &copy
	return nil
}

func (m *MockStore) Retrieve(name string) (*Account, error) {
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, exists := m.accounts[name]
	if !exists {
		return nil, ErrCredentialsNotFound
	}
	copy := *account
	return &copy, nil
}

func (m *MockStore) List() ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		copy := *account
		accounts = append(accounts, &copy)
	}
	return accounts, nil
}

func (m *MockStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[name]; !exists {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.accounts[name]
	return exists
}
