package auth

import "os"

// EnvironmentStore implements Store using environment variables.
// Suited to CI and cron jobs where no keychain exists.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Save is not supported for environment variables
func (e *EnvironmentStore) Save(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from COMMONS_USER and COMMONS_PASS
func (e *EnvironmentStore) Retrieve(username string) (*Credentials, error) {
	user := os.Getenv("COMMONS_USER")
	pass := os.Getenv("COMMONS_PASS")

	if user == "" || pass == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != user {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{Username: user, Password: pass}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv("COMMONS_USER") != "" && os.Getenv("COMMONS_PASS") != ""
}
