package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/pkg/wal"
)

type ledgerFactory struct {
	name string
	new  func(t *testing.T, s *Store) usecase.Ledger
}

var ledgerFactories = []ledgerFactory{
	{"mutex", func(t *testing.T, s *Store) usecase.Ledger { return NewMutexLedger(s) }},
	{"lmax", func(t *testing.T, s *Store) usecase.Ledger {
		l := NewLMAXLedger(s, 16)
		l.Start()
		t.Cleanup(func() { _ = l.Stop() })
		return l
	}},
}

func newAccount(t *testing.T, s *Store, digits, username string) *domain.Account {
	t.Helper()
	acc, err := domain.NewAccount(domain.FormatAccountNumber(digits), username, username, time.Now())
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if err := s.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acc
}

func deposit(t *testing.T, l usecase.Ledger, id uuid.UUID, amount domain.Amount) {
	t.Helper()
	_, err := l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
		RequestID:  uuid.New(),
		SenderID:   id,
		ReceiverID: id,
		Amount:     amount,
		Kind:       domain.TransactionKindDeposit,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func balanceOf(t *testing.T, l usecase.Ledger, id uuid.UUID) domain.Amount {
	t.Helper()
	b, err := l.GetAccountBalance(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccountBalance: %v", err)
	}
	return b
}

func TestLedgerRules(t *testing.T) {
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, err := NewStore(nil)
			if err != nil {
				t.Fatal(err)
			}
			l := f.new(t, s)
			alice := newAccount(t, s, "0000100001", "alice")
			bob := newAccount(t, s, "0000100002", "bob")
			carol := newAccount(t, s, "0000100003", "carol")
			deposit(t, l, alice.ID, domain.NewAmount(100, 0))
			if err := s.SetAccountStatus(context.Background(), carol.ID, domain.AccountStatusBlocked); err != nil {
				t.Fatal(err)
			}

			tests := []struct {
				name    string
				req     domain.TransactionRequest
				wantErr error
			}{
				{
					name:    "insufficient balance",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: domain.NewAmount(100, 1), Kind: domain.TransactionKindTransfer},
					wantErr: domain.ErrInsufficientBalance,
				},
				{
					name:    "self transfer",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: alice.ID, Amount: 100, Kind: domain.TransactionKindPix},
					wantErr: domain.ErrSelfTransfer,
				},
				{
					name:    "deposit to other account",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: 100, Kind: domain.TransactionKindDeposit},
					wantErr: domain.ErrInvalidDeposit,
				},
				{
					name:    "unknown receiver",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: uuid.New(), Amount: 100, Kind: domain.TransactionKindTransfer},
					wantErr: domain.ErrAccountNotFound,
				},
				{
					name:    "zero amount",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: 0, Kind: domain.TransactionKindTransfer},
					wantErr: domain.ErrAmountMustBePositive,
				},
				{
					name:    "blocked receiver",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: carol.ID, Amount: 100, Kind: domain.TransactionKindPayment},
					wantErr: domain.ErrAccountBlocked,
				},
				{
					name:    "unknown kind",
					req:     domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: 100, Kind: domain.TransactionKind(42)},
					wantErr: domain.ErrInvalidKind,
				},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					req := tt.req
					_, err := l.ProcessTransaction(context.Background(), &req)
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("expected %v, got %v", tt.wantErr, err)
					}
				})
			}

			// 失敗的交易不會改變任何狀態
			if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(100, 0) {
				t.Fatalf("alice balance changed to %s", got)
			}
			if got := balanceOf(t, l, bob.ID); got != 0 {
				t.Fatalf("bob balance changed to %s", got)
			}
			txs, _ := s.ListTransactions(context.Background(), alice.ID, 0)
			if len(txs) != 1 {
				t.Fatalf("expected only the deposit, got %d transactions", len(txs))
			}
		})
	}
}

func TestLedgerTransferAndReplay(t *testing.T) {
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, _ := NewStore(nil)
			l := f.new(t, s)
			alice := newAccount(t, s, "0000100001", "alice")
			bob := newAccount(t, s, "0000100002", "bob")
			deposit(t, l, alice.ID, domain.NewAmount(100, 0))

			req := &domain.TransactionRequest{
				RequestID:   uuid.New(),
				SenderID:    alice.ID,
				ReceiverID:  bob.ID,
				Amount:      domain.NewAmount(30, 0),
				Kind:        domain.TransactionKindTransfer,
				Description: "  almoço ",
			}
			first, err := l.ProcessTransaction(context.Background(), req)
			if err != nil {
				t.Fatalf("transfer: %v", err)
			}
			if first.Description != "almoço" || first.Sequence != 2 {
				t.Fatalf("unexpected transaction %+v", first)
			}

			second, err := l.ProcessTransaction(context.Background(), req)
			if err != nil {
				t.Fatalf("replay: %v", err)
			}
			if second.ID != first.ID {
				t.Fatalf("replay created a new transaction")
			}
			if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(70, 0) {
				t.Fatalf("alice: %s", got)
			}
			if got := balanceOf(t, l, bob.ID); got != domain.NewAmount(30, 0) {
				t.Fatalf("bob: %s", got)
			}
		})
	}
}

// 同一個 RequestID 換了付款人或金額不能被當成重送
func TestLedgerReplayConflict(t *testing.T) {
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, _ := NewStore(nil)
			l := f.new(t, s)
			alice := newAccount(t, s, "0000100001", "alice")
			bob := newAccount(t, s, "0000100002", "bob")
			deposit(t, l, alice.ID, domain.NewAmount(100, 0))
			deposit(t, l, bob.ID, domain.NewAmount(100, 0))

			rid := uuid.New()
			if _, err := l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
				RequestID: rid, SenderID: alice.ID, ReceiverID: bob.ID,
				Amount: domain.NewAmount(30, 0), Kind: domain.TransactionKindTransfer,
			}); err != nil {
				t.Fatal(err)
			}

			tests := []struct {
				name string
				req  domain.TransactionRequest
			}{
				{"other sender", domain.TransactionRequest{SenderID: bob.ID, ReceiverID: alice.ID, Amount: domain.NewAmount(50, 0), Kind: domain.TransactionKindTransfer}},
				{"other amount", domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: domain.NewAmount(31, 0), Kind: domain.TransactionKindTransfer}},
				{"other kind", domain.TransactionRequest{SenderID: alice.ID, ReceiverID: bob.ID, Amount: domain.NewAmount(30, 0), Kind: domain.TransactionKindPix}},
			}
			for _, tt := range tests {
				req := tt.req
				req.RequestID = rid
				if _, err := l.ProcessTransaction(context.Background(), &req); !errors.Is(err, domain.ErrIdempotencyConflict) {
					t.Fatalf("%s: expected ErrIdempotencyConflict, got %v", tt.name, err)
				}
			}
			if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(70, 0) {
				t.Fatalf("alice: %s", got)
			}
			if got := balanceOf(t, l, bob.ID); got != domain.NewAmount(130, 0) {
				t.Fatalf("bob: %s", got)
			}
		})
	}
}

func TestLedgerRejectsBalanceOverflow(t *testing.T) {
	const half = domain.Amount(5_000_000_000_000_000_000)
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, _ := NewStore(nil)
			l := f.new(t, s)
			alice := newAccount(t, s, "0000100001", "alice")
			bob := newAccount(t, s, "0000100002", "bob")
			deposit(t, l, alice.ID, half)
			deposit(t, l, bob.ID, half)

			_, err := l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
				RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: alice.ID,
				Amount: half, Kind: domain.TransactionKindDeposit,
			})
			if !errors.Is(err, domain.ErrBalanceOverflow) {
				t.Fatalf("deposit: expected ErrBalanceOverflow, got %v", err)
			}
			_, err = l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
				RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: bob.ID,
				Amount: half, Kind: domain.TransactionKindTransfer,
			})
			if !errors.Is(err, domain.ErrBalanceOverflow) {
				t.Fatalf("transfer: expected ErrBalanceOverflow, got %v", err)
			}
			if a, b := balanceOf(t, l, alice.ID), balanceOf(t, l, bob.ID); a != half || b != half {
				t.Fatalf("balances changed: alice %d bob %d", a, b)
			}
		})
	}
}

// 被拒絕的溢位交易不會寫進 WAL，恢復不受影響
func TestOverflowRejectedBeforeWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w, err := wal.NewWAL(path, wal.WithoutSync())
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(w)
	if err != nil {
		t.Fatal(err)
	}
	l := NewMutexLedger(s)
	alice := newAccount(t, s, "0000100001", "alice")
	deposit(t, l, alice.ID, domain.MaxAmount-1)
	if _, err := l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
		RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: alice.ID,
		Amount: 2, Kind: domain.TransactionKindDeposit,
	}); !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = wal.NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	recovered, err := NewStore(w)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got := balanceOf(t, NewMutexLedger(recovered), alice.ID); got != domain.MaxAmount-1 {
		t.Fatalf("alice after recovery: %d", got)
	}
}

// 餘額 100，同時送出兩筆 60：恰好一筆成功
func TestLedgerConcurrentOverdraft(t *testing.T) {
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, _ := NewStore(nil)
			l := f.new(t, s)
			alice := newAccount(t, s, "0000100001", "alice")
			bob := newAccount(t, s, "0000100002", "bob")
			carol := newAccount(t, s, "0000100003", "carol")
			deposit(t, l, alice.ID, domain.NewAmount(100, 0))

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, to := range []uuid.UUID{bob.ID, carol.ID} {
				wg.Add(1)
				go func(i int, to uuid.UUID) {
					defer wg.Done()
					_, errs[i] = l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
						RequestID:  uuid.New(),
						SenderID:   alice.ID,
						ReceiverID: to,
						Amount:     domain.NewAmount(60, 0),
						Kind:       domain.TransactionKindPix,
					})
				}(i, to)
			}
			wg.Wait()

			ok, rejected := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrInsufficientBalance):
					rejected++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if ok != 1 || rejected != 1 {
				t.Fatalf("expected one success and one rejection, got %d/%d", ok, rejected)
			}
			if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(40, 0) {
				t.Fatalf("alice: %s", got)
			}
		})
	}
}

// 隨機互轉，總金額守恆且沒有負餘額
func TestLedgerConservation(t *testing.T) {
	for _, f := range ledgerFactories {
		t.Run(f.name, func(t *testing.T) {
			s, _ := NewStore(nil)
			l := f.new(t, s)

			const n = 5
			ids := make([]uuid.UUID, n)
			for i := range ids {
				acc := newAccount(t, s, fmt.Sprintf("00001%05d", i), fmt.Sprintf("user%d", i))
				ids[i] = acc.ID
				deposit(t, l, acc.ID, domain.NewAmount(50, 0))
			}

			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(seed int64) {
					defer wg.Done()
					r := rand.New(rand.NewSource(seed))
					for i := 0; i < 200; i++ {
						from, to := r.Intn(n), r.Intn(n)
						if from == to {
							continue
						}
						_, _ = l.ProcessTransaction(context.Background(), &domain.TransactionRequest{
							RequestID:  uuid.New(),
							SenderID:   ids[from],
							ReceiverID: ids[to],
							Amount:     domain.Amount(r.Int63n(2000) + 1),
							Kind:       domain.TransactionKindTransfer,
						})
					}
				}(int64(w))
			}
			wg.Wait()

			var total domain.Amount
			for _, id := range ids {
				b := balanceOf(t, l, id)
				if b < 0 {
					t.Fatalf("negative balance %s", b)
				}
				total += b
			}
			if total != domain.NewAmount(250, 0) {
				t.Fatalf("money not conserved: %s", total)
			}
		})
	}
}

func TestStoreRecoverFromWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w, err := wal.NewWAL(path, wal.WithoutSync())
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(w)
	if err != nil {
		t.Fatal(err)
	}
	l := NewMutexLedger(s)
	alice := newAccount(t, s, "0000100001", "alice")
	bob := newAccount(t, s, "0000100002", "bob")
	deposit(t, l, alice.ID, domain.NewAmount(100, 0))
	req := &domain.TransactionRequest{
		RequestID: uuid.New(), SenderID: alice.ID, ReceiverID: bob.ID,
		Amount: domain.NewAmount(25, 50), Kind: domain.TransactionKindPix,
	}
	if _, err := l.ProcessTransaction(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAccountStatus(context.Background(), bob.ID, domain.AccountStatusBlocked); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = wal.NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	recovered, err := NewStore(w)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	l = NewMutexLedger(recovered)

	if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(74, 50) {
		t.Fatalf("alice: %s", got)
	}
	if got := balanceOf(t, l, bob.ID); got != domain.NewAmount(25, 50) {
		t.Fatalf("bob: %s", got)
	}
	acc, err := recovered.GetAccount(context.Background(), bob.ID)
	if err != nil || acc.Active() {
		t.Fatalf("bob should be blocked after recovery: %+v %v", acc, err)
	}

	// 恢復後重送同一個 RequestID 不會重複入帳
	tx, err := l.ProcessTransaction(context.Background(), req)
	if err != nil {
		t.Fatalf("replay after recovery: %v", err)
	}
	if tx.Sequence != 2 {
		t.Fatalf("expected original sequence 2, got %d", tx.Sequence)
	}
	if got := balanceOf(t, l, alice.ID); got != domain.NewAmount(74, 50) {
		t.Fatalf("alice after replay: %s", got)
	}
}

func TestLMAXLedgerStopped(t *testing.T) {
	s, _ := NewStore(nil)
	l := NewLMAXLedger(s, 1)
	l.Start()
	if err := l.Stop(); err != nil {
		t.Fatal(err)
	}
	_, err := l.ProcessTransaction(context.Background(), &domain.TransactionRequest{})
	if !errors.Is(err, ErrLedgerStopped) {
		t.Fatalf("expected ErrLedgerStopped, got %v", err)
	}
}
