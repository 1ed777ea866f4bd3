package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// CredentialStore 不落地的憑證與 session，重啟後需重新登入
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]*domain.Credential
	sessions    map[string]*domain.Session
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		credentials: make(map[string]*domain.Credential),
		sessions:    make(map[string]*domain.Session),
	}
}

func (s *CredentialStore) SaveCredential(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[cred.Username]; ok {
		return domain.ErrUsernameTaken
	}
	cp := *cred
	s.credentials[cred.Username] = &cp
	return nil
}

func (s *CredentialStore) GetCredential(ctx context.Context, username string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	cp := *cred
	return &cp, nil
}

func (s *CredentialStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *CredentialStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	cp := *sess
	return &cp, nil
}

func (s *CredentialStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

var _ usecase.CredentialStore = (*CredentialStore)(nil)
