package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

// Ledger 以 Postgres 交易實作帳本，帳戶列以 FOR UPDATE 鎖定
type Ledger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewLedger(pool *pgxpool.Pool, logger zerolog.Logger) *Ledger {
	return &Ledger{pool: pool, logger: logger.With().Str("component", "postgres_ledger").Logger()}
}

type lockedAccount struct {
	balance int64
	status  string
}

// ProcessTransaction implements usecase.Ledger.
func (l *Ledger) ProcessTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err := l.process(ctx, req)
	// 同一個 RequestID 同時送進來，後到的那筆撞到唯一鍵：回傳先入帳的交易
	if isUniqueViolation(err, "request_id") {
		existing, err := l.findByRequestID(ctx, l.pool, req.RequestID)
		if err != nil {
			return nil, err
		}
		if err := existing.CheckReplay(req); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return result, err
}

func (l *Ledger) process(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if req.RequestID != uuid.Nil {
		existing, err := l.findByRequestID(ctx, tx, req.RequestID)
		if err == nil {
			if err := existing.CheckReplay(req); err != nil {
				return nil, err
			}
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			l.logger.Error().Err(err).Msg("select transaction failed")
			return nil, domain.ErrSelectTransactionFailed
		}
	}

	// 依 id 排序上鎖，兩筆反向轉帳不會互相等待
	lockIDs := domain.LockOrder(req.SenderID, req.ReceiverID)
	rows, err := tx.Query(ctx, `
		SELECT id, balance, status FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, lockIDs)
	if err != nil {
		return nil, err
	}
	accounts := make(map[uuid.UUID]*lockedAccount, len(lockIDs))
	for rows.Next() {
		var id uuid.UUID
		acc := &lockedAccount{}
		if err := rows.Scan(&id, &acc.balance, &acc.status); err != nil {
			rows.Close()
			return nil, err
		}
		accounts[id] = acc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sender, ok := accounts[req.SenderID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	receiver, ok := accounts[req.ReceiverID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if !isActive(sender.status) || !isActive(receiver.status) {
		return nil, domain.ErrAccountBlocked
	}

	if !domain.Amount(receiver.balance).CanAdd(req.Amount) {
		return nil, domain.ErrBalanceOverflow
	}
	amount := int64(req.Amount)
	if req.Kind != domain.TransactionKindDeposit {
		if sender.balance < amount {
			return nil, domain.ErrInsufficientBalance
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $1 WHERE id = $2`, amount, req.SenderID); err != nil {
			return nil, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, amount, req.ReceiverID); err != nil {
		return nil, err
	}

	created := domain.NewTransaction(req, utcNow())
	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, request_id, sender_id, receiver_id, amount, kind, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`,
		created.ID, created.RequestID, created.SenderID, created.ReceiverID,
		amount, int16(created.Kind), created.Description, created.CreatedAt).Scan(&seq)
	if err != nil {
		return nil, err
	}
	created.Sequence = uint64(seq)

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// querier pgxpool.Pool 與 pgx.Tx 共同的查詢介面
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (l *Ledger) findByRequestID(ctx context.Context, q querier, requestID uuid.UUID) (*domain.Transaction, error) {
	return scanTransaction(q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE request_id = $1`, requestID))
}

// GetAccountBalance implements usecase.Ledger.
func (l *Ledger) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	var balance int64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return domain.Amount(balance), nil
}

func isActive(status string) bool {
	return status == "" || status == string(domain.AccountStatusActive)
}

var _ usecase.Ledger = (*Ledger)(nil)
