package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// ErrLedgerStopped 核心引擎已停止，不再接收交易
var ErrLedgerStopped = errors.New("ledger is stopped")

// transactionResult 核心引擎回傳的結果
type transactionResult struct {
	Tx  *domain.Transaction
	Err error
}

// transactionRequest 交易請求包裝channel，讓ProcessTransaction可以等待結果
type transactionRequest struct {
	Req    *domain.TransactionRequest
	Result chan transactionResult // 讓 ProcessTransaction 等這個 channel
}

// LMAXLedger 單一寫入者的帳本：所有交易排進輸送帶，由同一個 goroutine 依序處理
type LMAXLedger struct {
	store *Store
	// 輸送帶 負責接收交易
	transactionChan chan *transactionRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	t           tomb.Tomb
	// closeMu 保證 Stop 之後不會再有請求進入輸送帶
	closeMu sync.RWMutex
	closed  bool
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例，需呼叫 Start 才會開始處理
//
// 參數:
//
//	store: 帳戶與交易資料 (已從 WAL 恢復)
//	buffer: 輸送帶容量
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
func NewLMAXLedger(store *Store, buffer int) *LMAXLedger {
	if buffer <= 0 {
		buffer = 1000
	}
	return &LMAXLedger{
		store:           store,
		transactionChan: make(chan *transactionRequest, buffer),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &transactionRequest{
					Result: make(chan transactionResult, 1),
				}
			},
		},
	}
}

// GetAccountBalance 取得指定帳戶的當前餘額
func (l *LMAXLedger) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	return l.store.balance(accountID)
}

// ProcessTransaction 接收交易請求
//
// ProcessTransaction(等待) -> Channel -> Run Loop (核心) -> WAL -> Map Update -> Result Channel -> ProcessTransaction(收到結果)
//
// 請求一旦進入輸送帶就一定會被處理，ctx 只影響排隊階段
func (l *LMAXLedger) ProcessTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	// 1. 放入輸送帶 (使用 sync.Pool 減少 GC)
	r := l.requestPool.Get().(*transactionRequest)
	r.Req = req

	l.closeMu.RLock()
	if l.closed {
		l.closeMu.RUnlock()
		l.requestPool.Put(r)
		return nil, ErrLedgerStopped
	}
	select {
	case l.transactionChan <- r:
		l.closeMu.RUnlock()
	case <-ctx.Done():
		l.closeMu.RUnlock()
		l.requestPool.Put(r)
		return nil, ctx.Err()
	}

	res := <-r.Result
	r.Req = nil
	l.requestPool.Put(r)
	return res.Tx, res.Err
}

// Start 啟動核心引擎 (非同步)
func (l *LMAXLedger) Start() {
	l.t.Go(l.run)
}

// Stop 停止核心引擎，把剩下的交易處理完
func (l *LMAXLedger) Stop() error {
	l.closeMu.Lock()
	l.closed = true
	l.closeMu.Unlock()
	l.t.Kill(nil)
	return l.t.Wait()
}

func (l *LMAXLedger) run() error {
	for {
		select {
		case <-l.t.Dying():
			// 收到關閉信號，把剩下的交易處理完
			l.drain()
			return nil
		case r := <-l.transactionChan:
			l.processTransaction(r)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case r := <-l.transactionChan:
			l.processTransaction(r)
		default:
			return
		}
	}
}

// processTransaction 處理單筆交易並回傳結果
// 寫鎖只用來和讀取者 (查餘額、搜尋) 同步，寫入者永遠只有這個 goroutine
func (l *LMAXLedger) processTransaction(r *transactionRequest) {
	l.store.mu.Lock()
	tx, err := l.store.apply(r.Req)
	l.store.mu.Unlock()
	r.Result <- transactionResult{Tx: tx, Err: err}
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
