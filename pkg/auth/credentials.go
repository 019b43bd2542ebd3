package auth

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

// Credentials holds a bot account login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store is the interface for storing and retrieving credentials
type Store interface {
	// Save persists credentials for the account
	Save(creds *Credentials) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*Credentials, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Resolver finds usable credentials, trying each store in order
type Resolver struct {
	stores []Store
}

// NewResolver builds the default resolution chain: environment
// variables first, then the system keychain
func NewResolver() *Resolver {
	stores := []Store{NewEnvironmentStore()}
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}
	return &Resolver{stores: stores}
}

// NewResolverWith creates a Resolver with an explicit store chain,
// used in tests
func NewResolverWith(stores ...Store) *Resolver {
	return &Resolver{stores: stores}
}

// Resolve returns credentials for the username from the first store
// that has them. An empty username accepts whatever the environment
// provides.
func (r *Resolver) Resolve(username string) (*Credentials, error) {
	for _, store := range r.stores {
		if creds, err := store.Retrieve(username); err == nil && creds != nil {
			return creds, nil
		}
	}
	if username == "" {
		return nil, errors.New("no credentials found")
	}
	return nil, fmt.Errorf("credentials not found for user: %s", username)
}

// PromptPassword reads a password from the terminal without echo
func PromptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

// MaskPassword masks a password for display
func MaskPassword(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
