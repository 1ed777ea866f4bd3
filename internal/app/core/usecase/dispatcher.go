package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
)

const (
	DefaultDispatchQueueSize = 1024
	storeAttempts            = 3
	storeBackoff             = 50 * time.Millisecond
)

// Dispatcher 把入帳交易轉成通知：先存檔再推播
// 佇列滿了就丟棄並記錄，通知永遠不能擋住或回滾交易
type Dispatcher struct {
	accounts AccountRepository
	repo     NotificationRepository
	feed     NotificationFeed
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	queue chan *domain.Transaction
	t     tomb.Tomb
	now   func() time.Time
}

func NewDispatcher(accounts AccountRepository, repo NotificationRepository, feed NotificationFeed, m *metrics.Metrics, logger zerolog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultDispatchQueueSize
	}
	return &Dispatcher{
		accounts: accounts,
		repo:     repo,
		feed:     feed,
		metrics:  m,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		queue:    make(chan *domain.Transaction, queueSize),
		now:      time.Now,
	}
}

// Committed implements TransactionSink.
func (d *Dispatcher) Committed(tx *domain.Transaction) {
	select {
	case d.queue <- tx:
		d.metrics.QueueLength(len(d.queue))
	default:
		d.metrics.Notification(metrics.ResultDropped)
		d.logger.Warn().Str("tx", tx.ID.String()).Msg("notification queue full, dropping")
	}
}

// Start 啟動背景 worker
func (d *Dispatcher) Start() {
	d.t.Go(d.loop)
}

// Stop 停止接收並把佇列內剩下的交易處理完
func (d *Dispatcher) Stop() error {
	d.t.Kill(nil)
	return d.t.Wait()
}

func (d *Dispatcher) loop() error {
	for {
		select {
		case <-d.t.Dying():
			d.drain()
			return nil
		case tx := <-d.queue:
			d.metrics.QueueLength(len(d.queue))
			d.dispatch(tx)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case tx := <-d.queue:
			d.dispatch(tx)
		default:
			d.metrics.QueueLength(0)
			return
		}
	}
}

func (d *Dispatcher) dispatch(tx *domain.Transaction) {
	// 關閉中也要把已排隊的通知存完，不使用 tomb 的 context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accounts, err := d.accounts.GetAccounts(ctx, []uuid.UUID{tx.SenderID, tx.ReceiverID})
	if err != nil {
		// 沒有名稱也能產生通知
		d.logger.Warn().Err(err).Str("tx", tx.ID.String()).Msg("lookup counterparts failed")
	}

	for _, n := range domain.NewTransactionNotifications(tx, accounts[tx.SenderID], accounts[tx.ReceiverID], d.now()) {
		if err := d.store(ctx, n); err != nil {
			d.metrics.Notification(metrics.ResultFailed)
			d.logger.Error().Err(err).Str("tx", tx.ID.String()).Str("account", n.AccountID.String()).Msg("store notification failed")
			continue
		}
		d.metrics.Notification(metrics.ResultStored)

		if d.feed == nil {
			continue
		}
		if err := d.feed.Publish(ctx, n); err != nil {
			// 已存檔，客戶端下次拉取列表時仍會看到
			d.logger.Warn().Err(err).Str("notification", n.ID.String()).Msg("publish notification failed")
			continue
		}
		d.metrics.Notification(metrics.ResultPublished)
	}
}

// store 以通知 ID 為冪等鍵，重試是安全的
func (d *Dispatcher) store(ctx context.Context, n *domain.Notification) error {
	var err error
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if err = d.repo.CreateNotification(ctx, n); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(storeBackoff * time.Duration(attempt+1)):
		}
	}
	return err
}
