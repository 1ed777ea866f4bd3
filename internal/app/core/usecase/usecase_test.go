package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

type testEnv struct {
	store         *memory.Store
	notifications *memory.NotificationStore
	hub           *memory.Hub
	metrics       *metrics.Metrics
	dispatcher    *usecase.Dispatcher

	auth      *usecase.AuthUseCase
	core      *usecase.CoreUseCase
	directory *usecase.DirectoryUseCase
	history   *usecase.HistoryUseCase
	notify    *usecase.NotificationUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := memory.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	logger := zerolog.Nop()
	env := &testEnv{
		store:         store,
		notifications: memory.NewNotificationStore(),
		hub:           memory.NewHub(),
		metrics:       metrics.New(),
	}
	env.dispatcher = usecase.NewDispatcher(store, env.notifications, env.hub, env.metrics, logger, 16)
	env.dispatcher.Start()
	t.Cleanup(func() { _ = env.dispatcher.Stop() })

	env.auth = usecase.NewAuthUseCase(store, memory.NewCredentialStore(), nil, time.Hour, bcrypt.MinCost, logger)
	env.core = usecase.NewCoreUseCase(memory.NewMutexLedger(store), store, env.dispatcher, env.metrics, logger)
	env.directory = usecase.NewDirectoryUseCase(store, store, env.metrics)
	env.history = usecase.NewHistoryUseCase(store, store)
	env.notify = usecase.NewNotificationUseCase(env.notifications, env.hub)
	return env
}

func (e *testEnv) signup(t *testing.T, username, displayName string) (*domain.Account, *domain.Session) {
	t.Helper()
	acc, sess, err := e.auth.Signup(context.Background(), usecase.SignupRequest{
		Username:    username,
		DisplayName: displayName,
		Password:    "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return acc, sess
}

func (e *testEnv) deposit(t *testing.T, sess *domain.Session, amount domain.Amount) {
	t.Helper()
	e.send(t, sess, sess.AccountID, amount, domain.TransactionKindDeposit)
}

func (e *testEnv) send(t *testing.T, sess *domain.Session, to uuid.UUID, amount domain.Amount, kind domain.TransactionKind) *domain.Transaction {
	t.Helper()
	tx, err := e.core.ProcessTransaction(context.Background(), sess, &domain.TransactionRequest{
		RequestID:  uuid.New(),
		SenderID:   sess.AccountID,
		ReceiverID: to,
		Amount:     amount,
		Kind:       kind,
	})
	if err != nil {
		t.Fatalf("process %s: %v", kind, err)
	}
	return tx
}

// waitFor 等待非同步的通知投遞
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
