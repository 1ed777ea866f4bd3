package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/pkg/wal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WAL 紀錄類型
const (
	recordAccount     = "account"
	recordStatus      = "status"
	recordTransaction = "tx"
)

// walRecord WAL 內每一行的格式
type walRecord struct {
	Type      string               `json:"type"`
	Account   *domain.Account      `json:"account,omitempty"`
	AccountID uuid.UUID            `json:"account_id,omitempty"`
	Status    domain.AccountStatus `json:"status,omitempty"`
	Tx        *domain.Transaction  `json:"tx,omitempty"`
}

// Store 記憶體內的帳戶與交易資料，MutexLedger 與 LMAXLedger 共用
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	byNumber / byUsername: 帳號與使用者名稱索引 (唯一)
//	transactions: 依入帳順序排列的交易
//	processed: 已處理過的 RequestID (冪等)
//	wal: Write-Ahead Log，nil 代表純記憶體
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	byNumber     map[string]uuid.UUID
	byUsername   map[string]uuid.UUID
	transactions []*domain.Transaction
	processed    map[uuid.UUID]*domain.Transaction
	sequence     uint64
	wal          *wal.WAL
	now          func() time.Time
}

// NewStore 建立 Store，有 WAL 時先重播恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		accounts:   make(map[uuid.UUID]*domain.Account),
		byNumber:   make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		processed:  make(map[uuid.UUID]*domain.Transaction),
		wal:        w,
		now:        time.Now,
	}
	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, fmt.Errorf("recover from wal: %w", err)
		}
	}
	return s, nil
}

// recoverFromWAL 只在 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(raw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Type {
		case recordAccount:
			if rec.Account == nil {
				return fmt.Errorf("account record without account")
			}
			s.insertAccount(rec.Account)
		case recordStatus:
			acc, ok := s.accounts[rec.AccountID]
			if !ok {
				return domain.ErrAccountNotFound
			}
			acc.Status = rec.Status
		case recordTransaction:
			if rec.Tx == nil {
				return fmt.Errorf("tx record without tx")
			}
			return s.commit(rec.Tx)
		default:
			return fmt.Errorf("unknown wal record %q", rec.Type)
		}
		return nil
	})
}

func (s *Store) insertAccount(acc *domain.Account) {
	s.accounts[acc.ID] = acc
	s.byNumber[acc.Number.Key()] = acc.ID
	s.byUsername[acc.Username] = acc.ID
}

// CreateAccount implements usecase.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[account.Username]; ok {
		return domain.ErrUsernameTaken
	}
	if _, ok := s.byNumber[account.Number.Key()]; ok {
		return domain.ErrAccountAlreadyExists
	}
	if _, ok := s.accounts[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}

	acc := account.Clone()
	if s.wal != nil {
		if err := s.wal.Write(walRecord{Type: recordAccount, Account: acc}); err != nil {
			return domain.ErrWALWriteFailed
		}
	}
	s.insertAccount(acc)
	return nil
}

// SetAccountStatus 停用或恢復帳戶，帳戶不會被刪除
func (s *Store) SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if s.wal != nil {
		if err := s.wal.Write(walRecord{Type: recordStatus, AccountID: id, Status: status}); err != nil {
			return domain.ErrWALWriteFailed
		}
	}
	acc.Status = status
	return nil
}

// GetAccount implements usecase.AccountRepository.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// GetAccounts implements usecase.AccountRepository.
func (s *Store) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			out[id] = acc.Clone()
		}
	}
	return out, nil
}

// SearchAccounts implements usecase.AccountRepository.
// 記憶體版本直接掃描，回傳所有符合的帳戶，排序與筆數限制交給 domain.RankAccounts
func (s *Store) SearchAccounts(ctx context.Context, q domain.SearchQuery, excludeID uuid.UUID, limit int) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0)
	for id, acc := range s.accounts {
		if id == excludeID {
			continue
		}
		if q.Match(acc) != domain.RankNone {
			out = append(out, acc.Clone())
		}
	}
	return out, nil
}

// ListTransactions implements usecase.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if !tx.Involves(accountID) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// balance 取得餘額，呼叫者須持有讀鎖
func (s *Store) balance(accountID uuid.UUID) (domain.Amount, error) {
	acc, ok := s.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	return acc.Balance, nil
}

// apply 驗證並入帳，呼叫者須持有寫鎖
// 先寫 WAL 再更新記憶體，任何錯誤都不會留下部分狀態
func (s *Store) apply(req *domain.TransactionRequest) (*domain.Transaction, error) {
	// 0. Idempotency Check
	if req.RequestID != uuid.Nil {
		if tx, ok := s.processed[req.RequestID]; ok {
			if err := tx.CheckReplay(req); err != nil {
				return nil, err
			}
			cp := *tx
			return &cp, nil
		}
	}

	// 1. 驗證
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sender, ok := s.accounts[req.SenderID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	receiver, ok := s.accounts[req.ReceiverID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if !sender.Active() || !receiver.Active() {
		return nil, domain.ErrAccountBlocked
	}
	if req.Kind != domain.TransactionKindDeposit && sender.Balance < req.Amount {
		return nil, domain.ErrInsufficientBalance
	}
	// 溢位必須在寫 WAL 前擋下，否則重播時會失敗
	if err := receiver.CanCredit(req.Amount); err != nil {
		return nil, err
	}

	tx := domain.NewTransaction(req, s.now())
	tx.Sequence = s.sequence + 1

	// 2. 寫入 WAL (Critical Path)
	if s.wal != nil {
		if err := s.wal.Write(walRecord{Type: recordTransaction, Tx: tx}); err != nil {
			return nil, domain.ErrWALWriteFailed
		}
	}

	// 3. 更新記憶體
	if err := s.commit(tx); err != nil {
		return nil, err
	}
	cp := *tx
	return &cp, nil
}

// commit 把已驗證 (或從 WAL 重播) 的交易套用到帳戶
func (s *Store) commit(tx *domain.Transaction) error {
	sender, ok := s.accounts[tx.SenderID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	receiver, ok := s.accounts[tx.ReceiverID]
	if !ok {
		return domain.ErrAccountNotFound
	}

	if tx.IsDeposit() {
		if err := receiver.Deposit(tx.Amount); err != nil {
			return err
		}
	} else {
		if err := sender.Withdraw(tx.Amount); err != nil {
			return err
		}
		if err := receiver.Deposit(tx.Amount); err != nil {
			// Deposit 只會因金額非正數失敗，Withdraw 已經擋掉
			return err
		}
	}

	if tx.Sequence > s.sequence {
		s.sequence = tx.Sequence
	}
	s.transactions = append(s.transactions, tx)
	s.processed[tx.RequestID] = tx
	return nil
}

var (
	_ usecase.AccountRepository     = (*Store)(nil)
	_ usecase.TransactionRepository = (*Store)(nil)
)
