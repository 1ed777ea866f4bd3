package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

func openStore(t *testing.T, path string) *CredentialStore {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "auth.db"))
	defer s.Close()

	cred := &domain.Credential{Username: "alice", AccountID: uuid.New(), PasswordHash: []byte("$2a$04$hash")}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCredential(ctx, cred); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	got, err := s.GetCredential(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccountID != cred.AccountID || string(got.PasswordHash) != string(cred.PasswordHash) {
		t.Fatalf("unexpected credential %+v", got)
	}
	if _, err := s.GetCredential(ctx, "bob"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSessionsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")
	now := time.Now()

	s := openStore(t, path)
	live, _ := domain.NewSession(uuid.New(), "alice", now, time.Hour)
	expired, _ := domain.NewSession(uuid.New(), "bob", now.Add(-2*time.Hour), time.Hour)
	for _, sess := range []*domain.Session{live, expired} {
		if err := s.SaveSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = openStore(t, path)
	defer s.Close()

	got, err := s.GetSession(ctx, live.Token)
	if err != nil || got.AccountID != live.AccountID {
		t.Fatalf("session lost after reopen: %+v %v", got, err)
	}

	pruned, err := s.PruneSessions(now)
	if err != nil || pruned != 1 {
		t.Fatalf("PruneSessions: %d %v", pruned, err)
	}
	if _, err := s.GetSession(ctx, expired.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired session to be pruned, got %v", err)
	}

	if err := s.DeleteSession(ctx, live.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSession(ctx, live.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
