package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
)

// TransactionSink 接收已入帳的交易 (通知等副作用)，不可阻塞也不可回滾交易
type TransactionSink interface {
	Committed(tx *domain.Transaction)
}

// CoreUseCase 是核心業務邏輯層
type CoreUseCase struct {
	ledger   Ledger
	accounts AccountRepository
	sink     TransactionSink
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewCoreUseCase 建立核心業務邏輯層
//
// 參數:
//
//	ledger: 帳本實作 (memory / mysql / postgres)
//	accounts: 帳戶資料來源
//	sink: 入帳後的副作用 (可為 nil)
//	m: 指標 (可為 nil)
//	logger: 日誌
func NewCoreUseCase(ledger Ledger, accounts AccountRepository, sink TransactionSink, m *metrics.Metrics, logger zerolog.Logger) *CoreUseCase {
	return &CoreUseCase{
		ledger:   ledger,
		accounts: accounts,
		sink:     sink,
		metrics:  m,
		logger:   logger.With().Str("component", "core").Logger(),
	}
}

// ProcessTransaction 處理交易，付款人必須是 session 本人
//
// 參數:
//
//	ctx: 上下文
//	sess: 呼叫者的 session
//	req: 交易請求
//
// 回傳:
//
//	*domain.Transaction: 已入帳的交易
//	error: domain 錯誤 (餘額不足、帳戶不存在...)，任何錯誤都代表沒有狀態改變
func (c *CoreUseCase) ProcessTransaction(ctx context.Context, sess *domain.Session, req *domain.TransactionRequest) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := c.processTransaction(ctx, sess, req)
	c.metrics.ObserveTransaction(req.Kind, start, err)

	if err != nil {
		c.logger.Info().
			Err(err).
			Str("kind", req.Kind.String()).
			Str("sender", req.SenderID.String()).
			Str("receiver", req.ReceiverID.String()).
			Str("amount", req.Amount.String()).
			Msg("transaction rejected")
		return nil, err
	}

	c.logger.Info().
		Str("tx", tx.ID.String()).
		Str("kind", tx.Kind.String()).
		Str("amount", tx.Amount.String()).
		Uint64("seq", tx.Sequence).
		Msg("transaction committed")

	// 通知是 best effort，失敗不影響已入帳的交易
	if c.sink != nil {
		c.sink.Committed(tx)
	}
	return tx, nil
}

func (c *CoreUseCase) processTransaction(ctx context.Context, sess *domain.Session, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	if req.SenderID != sess.AccountID {
		return nil, domain.ErrForbidden
	}
	// 先擋掉明顯錯誤的請求，真正的驗證仍在 Ledger 內
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.ledger.ProcessTransaction(ctx, req)
}

// GetAccountBalance 取得 session 本人的權威餘額
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, sess *domain.Session) (domain.Amount, error) {
	if sess == nil {
		return 0, domain.ErrUnauthenticated
	}
	return c.ledger.GetAccountBalance(ctx, sess.AccountID)
}

// GetProfile 取得 session 本人的帳戶資料
func (c *CoreUseCase) GetProfile(ctx context.Context, sess *domain.Session) (*domain.Account, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return c.accounts.GetAccount(ctx, sess.AccountID)
}
