package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
)

const (
	// RecentContactsLimit 最近聯絡人數量
	RecentContactsLimit = 5
	// recentScanLimit 找最近聯絡人時最多掃描的交易數
	recentScanLimit = 50
)

// DirectoryUseCase 帳戶目錄：把使用者輸入的帳號或使用者名稱解析成帳戶
type DirectoryUseCase struct {
	accounts     AccountRepository
	transactions TransactionRepository
	metrics      *metrics.Metrics
}

func NewDirectoryUseCase(accounts AccountRepository, transactions TransactionRepository, m *metrics.Metrics) *DirectoryUseCase {
	return &DirectoryUseCase{accounts: accounts, transactions: transactions, metrics: m}
}

// Search 搜尋帳戶，永遠不會回傳搜尋者本人
// 搜尋字串太短或沒有結果都回傳空集合而不是錯誤
func (d *DirectoryUseCase) Search(ctx context.Context, sess *domain.Session, term string) ([]*domain.Account, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	q, ok := domain.ParseSearchQuery(term)
	if !ok {
		return []*domain.Account{}, nil
	}

	candidates, err := d.accounts.SearchAccounts(ctx, q, sess.AccountID, domain.DefaultSearchLimit)
	if err != nil {
		return nil, err
	}
	result := domain.RankAccounts(q, candidates, sess.AccountID, domain.DefaultSearchLimit)
	d.metrics.Search(len(result) > 0)
	return result, nil
}

// RecentContacts 最近轉出對象 (不重複、由新到舊)
func (d *DirectoryUseCase) RecentContacts(ctx context.Context, sess *domain.Session) ([]*domain.Account, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	txs, err := d.transactions.ListTransactions(ctx, sess.AccountID, recentScanLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, RecentContactsLimit)
	seen := make(map[uuid.UUID]struct{})
	for _, tx := range txs {
		if tx.SenderID != sess.AccountID || tx.IsDeposit() {
			continue
		}
		if _, ok := seen[tx.ReceiverID]; ok {
			continue
		}
		seen[tx.ReceiverID] = struct{}{}
		ids = append(ids, tx.ReceiverID)
		if len(ids) == RecentContactsLimit {
			break
		}
	}

	accounts, err := d.accounts.GetAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if acc, ok := accounts[id]; ok {
			out = append(out, acc)
		}
	}
	return out, nil
}
