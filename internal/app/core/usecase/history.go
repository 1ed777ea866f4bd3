package usecase

import (
	"context"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryUseCase 交易紀錄的唯讀投影，不會修改帳本
type HistoryUseCase struct {
	accounts     AccountRepository
	transactions TransactionRepository
}

func NewHistoryUseCase(accounts AccountRepository, transactions TransactionRepository) *HistoryUseCase {
	return &HistoryUseCase{accounts: accounts, transactions: transactions}
}

// History 回傳 session 本人的交易紀錄 (由新到舊)
func (h *HistoryUseCase) History(ctx context.Context, sess *domain.Session, limit int) ([]domain.HistoryEntry, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	txs, err := h.transactions.ListTransactions(ctx, sess.AccountID, clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit))
	if err != nil {
		return nil, err
	}
	counterparts, err := h.accounts.GetAccounts(ctx, domain.CounterpartIDs(sess.AccountID, txs))
	if err != nil {
		return nil, err
	}
	return domain.DeriveHistory(sess.AccountID, txs, counterparts), nil
}

// Summary 收支統計
func (h *HistoryUseCase) Summary(ctx context.Context, sess *domain.Session, limit int) (domain.Summary, error) {
	entries, err := h.History(ctx, sess, limit)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(entries), nil
}

func clampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	}
	return limit
}
