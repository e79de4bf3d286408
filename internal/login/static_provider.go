package login

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"
)

// StaticProvider is an in-memory identity provider for tests and development
// mode. Production deployments plug in the real identity service instead.
type StaticProvider struct {
	mu sync.RWMutex

	accounts map[string]staticAccount // email -> account
}

type staticAccount struct {
	passwordHash [32]byte
	subjectID    uuid.UUID
}

// NewStaticProvider creates an empty static identity provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		accounts: make(map[string]staticAccount),
	}
}

// Register adds an account to the provider.
func (p *StaticProvider) Register(email, password string, subjectID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accounts[email] = staticAccount{
		passwordHash: sha256.Sum256([]byte(password)),
		subjectID:    subjectID,
	}
}

// Authenticate verifies the credentials and returns the subject id.
func (p *StaticProvider) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	account, exists := p.accounts[email]
	if !exists {
		// Hash anyway so missing and present accounts cost the same
		sha256.Sum256([]byte(password))
		return uuid.Nil, ErrInvalidCredentials
	}

	hash := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(hash[:], account.passwordHash[:]) != 1 {
		return uuid.Nil, ErrInvalidCredentials
	}

	return account.subjectID, nil
}
