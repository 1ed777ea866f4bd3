package mysql

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/pkg/mysql"
)

func TestColumnExpression(t *testing.T) {
	if _, ok := column("username_key", "alice", false).(clause.Eq); !ok {
		t.Fatal("exact match should be an equality")
	}
	// 使用者名稱本身含 "%" 時，完全符合仍然是等號比對
	if _, ok := column("username_key", "50%", false).(clause.Eq); !ok {
		t.Fatal("exact match with a literal % should be an equality")
	}
	like, ok := column("username_key", `a\_b%`, true).(clause.Like)
	if !ok {
		t.Fatal("prefix pattern should be LIKE")
	}
	if like.Value != `a\_b%` {
		t.Fatalf("unexpected LIKE value %v", like.Value)
	}
}

func TestAccountRowKeepsSearchKeys(t *testing.T) {
	acc, err := domain.NewAccount(domain.FormatAccountNumber("0000100002"), "@Bob", "Bob", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	row := toSQLAccount(acc)
	if row.NumberKey != "0000100002" || row.Username != "bob" {
		t.Fatalf("unexpected search keys %q %q", row.NumberKey, row.Username)
	}
	back := row.toDomain()
	if back.ID != acc.ID || back.Number != acc.Number || !back.Active() {
		t.Fatalf("unexpected account %+v", back)
	}
	if uuidFrom([]byte{1, 2}) != uuid.Nil {
		t.Fatal("short id should map to uuid.Nil")
	}
}

// newTestStore 需要設定 NOX_TEST_MYSQL_DSN 才會執行，例如
// NOX_TEST_MYSQL_DSN="root:root@tcp(127.0.0.1:3306)/nox_test?parseTime=true&loc=UTC"
func newTestStore(t *testing.T) (*Store, *MySQLLedger) {
	t.Helper()
	dsn := os.Getenv("NOX_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("NOX_TEST_MYSQL_DSN not set")
	}
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         mysql.NewGormLogger(zerolog.Nop(), "silent"),
	})
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	client := mysql.NewClientFromDB(db)
	t.Cleanup(func() { _ = client.Close() })

	if err := db.Migrator().DropTable(&sqlNotification{}, &sqlTransaction{}, &sqlAccount{}); err != nil {
		t.Fatalf("drop tables: %v", err)
	}
	store := NewStore(client)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store, NewMySQLLedger(client, zerolog.Nop())
}

func createAccount(t *testing.T, s *Store, digits, username string) *domain.Account {
	t.Helper()
	acc, err := domain.NewAccount(domain.FormatAccountNumber(digits), username, username, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return acc
}

func TestMySQLLedger(t *testing.T) {
	store, ledger := newTestStore(t)
	ctx := context.Background()
	alice := createAccount(t, store, "0000100001", "alice")
	bob := createAccount(t, store, "0000100002", "bob")
	carol := createAccount(t, store, "0000100003", "carol")

	dup, _ := domain.NewAccount(domain.FormatAccountNumber("0000100009"), "alice", "Other", time.Now())
	if err := store.CreateAccount(ctx, dup); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := ledger.ProcessTransaction(ctx, &domain.TransactionRequest{
		RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: alice.ID,
		Amount: domain.NewAmount(100, 0), Kind: domain.TransactionKindDeposit,
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// 100 元同時轉出兩筆 60 元，只有一筆成功
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, to := range []uuid.UUID{bob.ID, carol.ID} {
		wg.Add(1)
		go func(i int, to uuid.UUID) {
			defer wg.Done()
			_, errs[i] = ledger.ProcessTransaction(ctx, &domain.TransactionRequest{
				RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: to,
				Amount: domain.NewAmount(60, 0), Kind: domain.TransactionKindTransfer,
			})
		}(i, to)
	}
	wg.Wait()
	failed := 0
	for _, err := range errs {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			failed++
		} else if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one rejection, got %d", failed)
	}
	balance, _ := ledger.GetAccountBalance(ctx, alice.ID)
	if balance != domain.NewAmount(40, 0) {
		t.Fatalf("alice: %s", balance)
	}

	// 重送
	req := &domain.TransactionRequest{
		RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: bob.ID,
		Amount: domain.NewAmount(10, 0), Kind: domain.TransactionKindPix,
	}
	first, err := ledger.ProcessTransaction(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ledger.ProcessTransaction(ctx, req)
	if err != nil || second.ID != first.ID {
		t.Fatalf("replay: %+v %v", second, err)
	}
	conflict := *req
	conflict.Amount = domain.NewAmount(11, 0)
	if _, err := ledger.ProcessTransaction(ctx, &conflict); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
	balance, _ = ledger.GetAccountBalance(ctx, alice.ID)
	if balance != domain.NewAmount(30, 0) {
		t.Fatalf("alice after replay: %s", balance)
	}

	if _, err := ledger.ProcessTransaction(ctx, &domain.TransactionRequest{
		RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: alice.ID,
		Amount: domain.MaxAmount, Kind: domain.TransactionKindDeposit,
	}); !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}

	txs, err := store.ListTransactions(ctx, alice.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 || txs[0].ID != first.ID {
		t.Fatalf("unexpected history %+v", txs)
	}

	found, err := store.SearchAccounts(ctx, domain.SearchQuery{Username: "bo"}, alice.ID, 10)
	if err != nil || len(found) != 1 || found[0].ID != bob.ID {
		t.Fatalf("search: %+v %v", found, err)
	}

	// "b_b" 的 "_" 只比對字面底線，不會找到 bob
	createAccount(t, store, "0000100004", "b_b")
	found, err = store.SearchAccounts(ctx, domain.SearchQuery{Username: "b_b"}, alice.ID, 10)
	if err != nil || len(found) != 1 || found[0].Username != "b_b" {
		t.Fatalf("escaped search: %+v %v", found, err)
	}
}

func TestMySQLNotifications(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()
	n := &domain.Notification{ID: uuid.New(), AccountID: owner, TransactionID: uuid.New(), Title: "Pix recebido", CreatedAt: time.Now().UTC()}

	for i := 0; i < 2; i++ {
		if err := store.CreateNotification(ctx, n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, _ := store.ListNotifications(ctx, owner, 10)
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	if err := store.MarkRead(ctx, other, n.ID); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
	updated, err := store.MarkAllRead(ctx, owner)
	if err != nil || updated != 1 {
		t.Fatalf("mark all: %d %v", updated, err)
	}
}
