package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

// BalanceProjection 客戶端顯示的餘額
//
// 只保存伺服器確認過的數字，本地從不加減；
// 送出交易或收到通知時標記為 stale 並重新向伺服器查詢。
type BalanceProjection struct {
	client  *Client
	session *Session
	logger  zerolog.Logger

	mu      sync.RWMutex
	balance domain.Amount
	stale   bool

	inFlight atomic.Bool
}

// NewBalanceProjection 尚未查詢前為 stale
func NewBalanceProjection(c *Client, s *Session) *BalanceProjection {
	return &BalanceProjection{
		client:  c,
		session: s,
		logger:  c.logger.With().Str("account", s.AccountID().String()).Logger(),
		stale:   true,
	}
}

// Balance 回傳最後確認的餘額與是否需要重新查詢
func (p *BalanceProjection) Balance() (domain.Amount, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, p.stale
}

// Invalidate 標記目前的數字已過期
func (p *BalanceProjection) Invalidate() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

// Refresh 向伺服器查詢餘額；失敗時保留舊數字並維持 stale
func (p *BalanceProjection) Refresh(ctx context.Context) (domain.Amount, error) {
	balance, err := p.client.Balance(ctx, p.session)
	if err != nil {
		p.Invalidate()
		return 0, err
	}
	p.mu.Lock()
	p.balance = balance
	p.stale = false
	p.mu.Unlock()
	return balance, nil
}

// Submit 送出交易並重新查詢餘額
//
// 同一時間只允許一筆送出中的交易，第二筆回傳 ErrSubmissionInFlight。
// 每次送出都帶新的 RequestID。
// 回傳的交易不為 nil 代表伺服器已入帳，即使之後的餘額查詢失敗。
func (p *BalanceProjection) Submit(ctx context.Context, t Transfer) (*pb.Transaction, domain.Amount, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, 0, ErrSubmissionInFlight
	}
	defer p.inFlight.Store(false)

	t.RequestID = uuid.New()
	resp, err := p.client.Send(ctx, p.session, t)
	if err != nil {
		// 沒有入帳，餘額維持原狀
		return nil, 0, err
	}

	p.Invalidate()
	balance, err := p.Refresh(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Str("transaction", resp.Transaction.ID.String()).Msg("balance refresh after submit failed")
		return resp.Transaction, 0, fmt.Errorf("refresh balance: %w", err)
	}
	return resp.Transaction, balance, nil
}

// Watch 訂閱通知，每收到一筆就重新查詢餘額並呼叫 onChange
// 回傳時訂閱已生效；done 在 ctx 結束或串流中斷後關閉
func (p *BalanceProjection) Watch(ctx context.Context, onChange func(domain.Amount)) (<-chan struct{}, error) {
	events, err := p.client.Subscribe(ctx, p.session)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range events {
			p.Invalidate()
			balance, err := p.Refresh(ctx)
			if err != nil {
				p.logger.Warn().Err(err).Str("notification", n.ID.String()).Msg("balance refresh after notification failed")
				continue
			}
			if onChange != nil {
				onChange(balance)
			}
		}
	}()
	return done, nil
}
