package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
// 所有交易在同一把寫鎖內完成：驗證、寫 WAL、扣款、入帳
type MutexLedger struct {
	store *Store
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	store: 帳戶與交易資料 (已從 WAL 恢復)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
func NewMutexLedger(store *Store) *MutexLedger {
	return &MutexLedger{store: store}
}

// GetAccountBalance 取得指定帳戶的當前餘額
//
// 參數:
//
//	ctx: 上下文
//	accountID: 帳戶 ID
//
// 回傳:
//
//	domain.Amount: 帳戶餘額
//	error: 查詢錯誤 (如帳戶不存在)
func (m *MutexLedger) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.balance(accountID)
}

// ProcessTransaction 處理交易請求 (Mutex Lock)
//
// 參數:
//
//	ctx: 上下文
//	req: 交易請求
//
// 回傳:
//
//	*domain.Transaction: 入帳的交易 (重送時為原交易)
//	error: 處理錯誤
func (m *MutexLedger) ProcessTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.apply(req)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
