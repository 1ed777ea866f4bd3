// Package postgres 以 pgx 實作帳本與各個 repository
package postgres

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// uniqueViolation SQLSTATE 23505
const uniqueViolation = "23505"

// Migrations 回傳內嵌的 SQL migration
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store 以 Postgres 實作帳戶目錄、交易紀錄與通知
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate 執行內嵌的 migration
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	return postgres.ApplyMigrations(ctx, s.pool, Migrations())
}

const accountColumns = `id, number, username_key, display_name, avatar_url, balance, status, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc     domain.Account
		number  string
		status  string
		balance int64
	)
	if err := row.Scan(&acc.ID, &number, &acc.Username, &acc.DisplayName, &acc.AvatarURL, &balance, &status, &acc.CreatedAt); err != nil {
		return nil, err
	}
	acc.Number = domain.AccountNumber(number)
	acc.Status = domain.AccountStatus(status)
	acc.Balance = domain.Amount(balance)
	return &acc, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()
	out := make([]*domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraintHint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraintHint == "" || strings.Contains(pgErr.ConstraintName, constraintHint)
}

// CreateAccount implements usecase.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, number, number_key, username_key, display_name, avatar_url, balance, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, string(a.Number), domain.AccountNumberDigits(string(a.Number)), a.Username,
		a.DisplayName, a.AvatarURL, int64(a.Balance), string(a.Status), a.CreatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "username"):
		return domain.ErrUsernameTaken
	case isUniqueViolation(err, ""):
		return domain.ErrAccountAlreadyExists
	}
	return err
}

// GetAccount implements usecase.AccountRepository.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return acc, err
}

// GetAccounts implements usecase.AccountRepository.
func (s *Store) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	out := make(map[uuid.UUID]*domain.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		out[acc.ID] = acc
	}
	return out, nil
}

// SearchAccounts implements usecase.AccountRepository.
// 排序直接在 SQL 完成：完全符合、前綴、子字串，再依使用者名稱
// $4 到 $7 是已跳脫的 LIKE 樣式，使用者輸入的 % 與 _ 只當字面比對
const searchAccountsSQL = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id <> $1
  AND (($2 <> '' AND number_key LIKE $4 ESCAPE '\')
    OR ($3 <> '' AND username_key LIKE $5 ESCAPE '\'))
ORDER BY
  CASE
    WHEN number_key = $2 OR username_key = $3 THEN 0
    WHEN ($2 <> '' AND number_key LIKE $6 ESCAPE '\') OR ($3 <> '' AND username_key LIKE $7 ESCAPE '\') THEN 1
    ELSE 2
  END,
  username_key
LIMIT $8`

func (s *Store) SearchAccounts(ctx context.Context, q domain.SearchQuery, excludeID uuid.UUID, limit int) ([]*domain.Account, error) {
	rows, err := s.pool.Query(ctx, searchAccountsSQL, excludeID, q.Digits, q.Username,
		q.DigitsPattern(), q.UsernamePattern(), q.DigitsPrefix(), q.UsernamePrefix(), limit)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

const transactionColumns = `seq, id, request_id, sender_id, receiver_id, amount, kind, description, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		seq    int64
		amount int64
		kind   int16
	)
	if err := row.Scan(&seq, &tx.ID, &tx.RequestID, &tx.SenderID, &tx.ReceiverID, &amount, &kind, &tx.Description, &tx.CreatedAt); err != nil {
		return nil, err
	}
	tx.Sequence = uint64(seq)
	tx.Amount = domain.Amount(amount)
	tx.Kind = domain.TransactionKind(kind)
	return &tx, nil
}

// ListTransactions implements usecase.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = usecase.MaxHistoryLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY seq DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, domain.ErrSelectTransactionFailed
	}
	defer rows.Close()

	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CreateNotification implements usecase.NotificationRepository.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, account_id, transaction_id, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.AccountID, n.TransactionID, n.Title, n.Body, n.Read, n.CreatedAt)
	return err
}

// ListNotifications implements usecase.NotificationRepository.
func (s *Store) ListNotifications(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = usecase.MaxNotificationLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, transaction_id, title, body, is_read, created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.TransactionID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead implements usecase.NotificationRepository.
func (s *Store) MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1 AND account_id = $2`,
		notificationID, accountID)
	if err != nil {
		return err
	}
	// Postgres 的 RowsAffected 包含值沒有改變的列
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead implements usecase.NotificationRepository.
func (s *Store) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE account_id = $1 AND NOT is_read`, accountID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// utcNow 資料庫一律存 UTC
func utcNow() time.Time {
	return time.Now().UTC()
}

var (
	_ usecase.AccountRepository      = (*Store)(nil)
	_ usecase.TransactionRepository  = (*Store)(nil)
	_ usecase.NotificationRepository = (*Store)(nil)
)
