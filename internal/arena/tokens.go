package arena

import (
	"sync"

	"github.com/google/uuid"
)

// Tokens maps opaque bearer tokens to account names. Tokens live until the
// process exits or are revoked.
type Tokens struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewTokens returns an empty token table.
func NewTokens() *Tokens {
	return &Tokens{owners: make(map[string]string)}
}

// Issue returns a fresh token for owner.
func (t *Tokens) Issue(owner string) string {
	tok := uuid.NewString()
	t.mu.Lock()
	t.owners[tok] = owner
	t.mu.Unlock()
	return tok
}

// Owner returns the account a token was issued to.
func (t *Tokens) Owner(tok string) (string, bool) {
	if tok == "" {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.owners[tok]
	return o, ok
}

// Revoke forgets tok. Unknown tokens are ignored.
func (t *Tokens) Revoke(tok string) {
	t.mu.Lock()
	delete(t.owners, tok)
	t.mu.Unlock()
}
