package authvital

import "sync"

// Credential identifies the SDK's caller to the identity platform. It is
// treated as an immutable value: replace it via SetCredential, never mutate
// it in place.
type Credential struct {
	ClientID     string
	ClientSecret string
}

// Validate checks that both halves of the credential are present
func (c Credential) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrInvalidCredential
	}
	return nil
}

// credentialStore holds the active credential behind a mutex so reads and
// replacements are safe from any goroutine. Replacing the credential fires
// onChange, which the client wires to the token cache invalidation.
type credentialStore struct {
	mu       sync.RWMutex
	cred     Credential
	onChange func()
}

// newCredentialStore creates a store owning the given credential
func newCredentialStore(cred Credential) *credentialStore {
	return &credentialStore{cred: cred}
}

// Credential returns the active credential
func (s *credentialStore) Credential() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// SetCredential atomically replaces the active credential. onChange fires
// only when the value actually changed, so setting the same credential does
// not discard a usable token.
func (s *credentialStore) SetCredential(cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	changed := cred != s.cred
	s.cred = cred
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange()
	}
	return nil
}
