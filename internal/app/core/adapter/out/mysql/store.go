package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/pkg/mysql"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID          []byte `gorm:"primaryKey;type:binary(16)"`
	Number      string `gorm:"size:16;not null"`
	NumberKey   string `gorm:"column:number_key;size:10;not null;uniqueIndex"` // 只有數字，搜尋用
	Username    string `gorm:"column:username_key;size:30;not null;uniqueIndex"`
	DisplayName string `gorm:"size:100;not null"`
	AvatarURL   string `gorm:"size:255"`
	Balance     int64  `gorm:"not null;default:0"`
	Status      string `gorm:"size:16;not null;default:active"`
	CreatedAt   time.Time
	UpdatedAt   int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
// 自增 ID 即為入帳順序 (domain.Transaction.Sequence)
type sqlTransaction struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	TxID        []byte `gorm:"column:tx_id;type:binary(16);uniqueIndex"`
	RequestID   []byte `gorm:"column:request_id;type:binary(16);uniqueIndex"` // 冪等鍵
	SenderID    []byte `gorm:"type:binary(16);index"`
	ReceiverID  []byte `gorm:"type:binary(16);index"`
	Amount      int64
	Kind        uint8
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// sqlNotification 對應資料庫的 notifications 表
type sqlNotification struct {
	ID            []byte    `gorm:"primaryKey;type:binary(16)"`
	AccountID     []byte    `gorm:"type:binary(16);index:idx_notifications_account"`
	TransactionID []byte    `gorm:"type:binary(16)"`
	Title         string    `gorm:"size:100"`
	Body          string    `gorm:"size:255"`
	IsRead        bool      `gorm:"column:is_read;not null;default:false"`
	CreatedAt     time.Time `gorm:"index:idx_notifications_account"`
}

func (*sqlNotification) TableName() string {
	return "notifications"
}

// Store 以 MySQL 實作帳戶目錄、交易紀錄與通知
type Store struct {
	client *mysql.Client
}

func NewStore(client *mysql.Client) *Store {
	return &Store{client: client}
}

// Migrate 建立資料表與索引
func (s *Store) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{}, &sqlNotification{})
}

func toSQLAccount(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:          idBytes(a.ID),
		Number:      string(a.Number),
		NumberKey:   domain.AccountNumberDigits(string(a.Number)),
		Username:    a.Username,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Balance:     int64(a.Balance),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:          uuidFrom(a.ID),
		Number:      domain.AccountNumber(a.Number),
		Username:    a.Username,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Balance:     domain.Amount(a.Balance),
		Status:      domain.AccountStatus(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

func (t *sqlTransaction) toDomain() *domain.Transaction {
	return &domain.Transaction{
		Sequence:    uint64(t.ID),
		ID:          uuidFrom(t.TxID),
		RequestID:   uuidFrom(t.RequestID),
		SenderID:    uuidFrom(t.SenderID),
		ReceiverID:  uuidFrom(t.ReceiverID),
		Amount:      domain.Amount(t.Amount),
		Kind:        domain.TransactionKind(t.Kind),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toSQLNotification(n *domain.Notification) *sqlNotification {
	return &sqlNotification{
		ID:            idBytes(n.ID),
		AccountID:     idBytes(n.AccountID),
		TransactionID: idBytes(n.TransactionID),
		Title:         n.Title,
		Body:          n.Body,
		IsRead:        n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

func (n *sqlNotification) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:            uuidFrom(n.ID),
		AccountID:     uuidFrom(n.AccountID),
		TransactionID: uuidFrom(n.TransactionID),
		Title:         n.Title,
		Body:          n.Body,
		Read:          n.IsRead,
		CreatedAt:     n.CreatedAt,
	}
}

func idBytes(id uuid.UUID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

func uuidFrom(b []byte) uuid.UUID {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// CreateAccount implements usecase.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	db := s.client.DB().WithContext(ctx)
	err := db.Create(toSQLAccount(account)).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	// 判斷是哪一個唯一鍵衝突
	var count int64
	if err := db.Model(&sqlAccount{}).Where("username_key = ?", account.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrUsernameTaken
	}
	return domain.ErrAccountAlreadyExists
}

// GetAccount implements usecase.AccountRepository.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where("id = ?", idBytes(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetAccounts implements usecase.AccountRepository.
func (s *Store) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	out := make(map[uuid.UUID]*domain.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []sqlAccount
	if err := s.client.DB().WithContext(ctx).Where("id IN ?", idList(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		acc := rows[i].toDomain()
		out[acc.ID] = acc
	}
	return out, nil
}

// SearchAccounts implements usecase.AccountRepository.
// 先找完全符合，沒有的話再依前綴、子字串查詢；LIKE 樣式已跳脫，MySQL 預設以 "\" 為跳脫字元
func (s *Store) SearchAccounts(ctx context.Context, q domain.SearchQuery, excludeID uuid.UUID, limit int) ([]*domain.Account, error) {
	db := s.client.DB().WithContext(ctx).Where("id <> ?", idBytes(excludeID)).Session(&gorm.Session{})

	var exact []sqlAccount
	if err := db.Where(matchExpr(q, q.Digits, q.Username, false)).Find(&exact).Error; err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return accountsFrom(exact), nil
	}

	var prefix, substring []sqlAccount
	if err := db.
		Where(matchExpr(q, q.DigitsPrefix(), q.UsernamePrefix(), true)).
		Order("username_key").Limit(limit).Find(&prefix).Error; err != nil {
		return nil, err
	}
	if len(prefix) < limit {
		if err := db.
			Where(matchExpr(q, q.DigitsPattern(), q.UsernamePattern(), true)).
			Order("username_key").Limit(limit * 2).Find(&substring).Error; err != nil {
			return nil, err
		}
	}
	return accountsFrom(append(prefix, substring...)), nil
}

// matchExpr 依搜尋條件組出 number_key / username_key 的條件
func matchExpr(q domain.SearchQuery, digits, username string, like bool) clause.Expression {
	exprs := make([]clause.Expression, 0, 2)
	if q.Digits != "" {
		exprs = append(exprs, column("number_key", digits, like))
	}
	if q.Username != "" {
		exprs = append(exprs, column("username_key", username, like))
	}
	return clause.Or(exprs...)
}

func column(name, value string, like bool) clause.Expression {
	if like {
		return clause.Like{Column: clause.Column{Name: name}, Value: value}
	}
	return clause.Eq{Column: clause.Column{Name: name}, Value: value}
}

// accountsFrom 轉換並去除重複 (前綴與子字串查詢會重疊)
func accountsFrom(rows []sqlAccount) []*domain.Account {
	out := make([]*domain.Account, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i := range rows {
		if _, ok := seen[string(rows[i].ID)]; ok {
			continue
		}
		seen[string(rows[i].ID)] = struct{}{}
		out = append(out, rows[i].toDomain())
	}
	return out
}

func idList(ids []uuid.UUID) [][]byte {
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, idBytes(id))
	}
	return out
}

// ListTransactions implements usecase.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	id := idBytes(accountID)
	query := s.client.DB().WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", id, id).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []sqlTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, domain.ErrSelectTransactionFailed
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// CreateNotification implements usecase.NotificationRepository.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(toSQLNotification(n)).Error
}

// ListNotifications implements usecase.NotificationRepository.
func (s *Store) ListNotifications(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Notification, error) {
	query := s.client.DB().WithContext(ctx).
		Where("account_id = ?", idBytes(accountID)).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []sqlNotification
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// MarkRead implements usecase.NotificationRepository.
func (s *Store) MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error {
	db := s.client.DB().WithContext(ctx)
	var row sqlNotification
	err := db.Where("id = ? AND account_id = ?", idBytes(notificationID), idBytes(accountID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	if row.IsRead {
		return nil
	}
	return db.Model(&sqlNotification{}).Where("id = ?", row.ID).Update("is_read", true).Error
}

// MarkAllRead implements usecase.NotificationRepository.
func (s *Store) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	res := s.client.DB().WithContext(ctx).Model(&sqlNotification{}).
		Where("account_id = ? AND is_read = ?", idBytes(accountID), false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

var (
	_ usecase.AccountRepository      = (*Store)(nil)
	_ usecase.TransactionRepository  = (*Store)(nil)
	_ usecase.NotificationRepository = (*Store)(nil)
)
