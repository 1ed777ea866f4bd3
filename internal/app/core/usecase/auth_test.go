package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// fixedNumbers 依序回傳預先決定的帳號
type fixedNumbers struct {
	digits []string
	i      int
}

func (f *fixedNumbers) Next() (domain.AccountNumber, error) {
	d := f.digits[f.i%len(f.digits)]
	f.i++
	return domain.FormatAccountNumber(d), nil
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "@Alice", "Alice")

	tests := []struct {
		name    string
		req     usecase.SignupRequest
		wantErr error
	}{
		{"duplicate username", usecase.SignupRequest{Username: "alice", DisplayName: "Other", Password: "123456"}, domain.ErrUsernameTaken},
		{"invalid username", usecase.SignupRequest{Username: "a!", DisplayName: "A", Password: "123456"}, domain.ErrInvalidUsername},
		{"weak password", usecase.SignupRequest{Username: "bob", DisplayName: "Bob", Password: "12345"}, domain.ErrWeakPassword},
		{"empty display name", usecase.SignupRequest{Username: "bob", DisplayName: "  ", Password: "123456"}, domain.ErrInvalidDisplayName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Signup(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSignupRetriesNumberCollision(t *testing.T) {
	store, _ := memory.NewStore(nil)
	numbers := &fixedNumbers{digits: []string{"0000000001", "0000000001", "0000000002"}}
	auth := usecase.NewAuthUseCase(store, memory.NewCredentialStore(), numbers, time.Hour, bcrypt.MinCost, zerolog.Nop())

	first, _, err := auth.Signup(context.Background(), usecase.SignupRequest{Username: "alice", DisplayName: "Alice", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := auth.Signup(context.Background(), usecase.SignupRequest{Username: "bob", DisplayName: "Bob", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Number == second.Number {
		t.Fatalf("duplicate account number %s", first.Number)
	}
	if second.Number != domain.FormatAccountNumber("0000000002") {
		t.Fatalf("unexpected number %s", second.Number)
	}
}

func TestLoginAndResolve(t *testing.T) {
	env := newTestEnv(t)
	acc, _ := env.signup(t, "alice", "Alice")
	ctx := context.Background()

	if _, err := env.auth.Login(ctx, "alice", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "nobody", "s3cret-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	sess, err := env.auth.Login(ctx, "@ALICE", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.AccountID != acc.ID {
		t.Fatalf("session for wrong account")
	}
	resolved, err := env.auth.Resolve(ctx, sess.Token)
	if err != nil || resolved.AccountID != acc.ID {
		t.Fatalf("resolve: %+v %v", resolved, err)
	}

	if err := env.auth.Logout(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.Resolve(ctx, sess.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
	if _, err := env.auth.Resolve(ctx, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	store, _ := memory.NewStore(nil)
	creds := memory.NewCredentialStore()
	auth := usecase.NewAuthUseCase(store, creds, nil, time.Millisecond, bcrypt.MinCost, zerolog.Nop())
	ctx := context.Background()

	_, sess, err := auth.Signup(ctx, usecase.SignupRequest{Username: "alice", DisplayName: "Alice", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := auth.Resolve(ctx, sess.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// 過期的 session 已被刪除
	if _, err := creds.GetSession(ctx, sess.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expired session still stored: %v", err)
	}
}
