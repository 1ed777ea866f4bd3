package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

// Ledger 是帳務系統的介面，唯一可以修改餘額與交易紀錄的地方
type Ledger interface {
	// ProcessTransaction 不分 Transfer/Pix/Deposit，直接看 req.Kind 決定
	// 扣款、入帳與交易紀錄必須是同一個原子操作；相同 RequestID 重送回傳原交易
	ProcessTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error)
	// GetAccountBalance 取得帳戶餘額
	GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error)
}

// AccountRepository 帳戶目錄 (Account Directory) 的資料來源
type AccountRepository interface {
	// CreateAccount 建立帳戶
	// 使用者名稱重複回傳 domain.ErrUsernameTaken，帳號重複回傳 domain.ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, account *domain.Account) error
	// GetAccount 取得帳戶快照
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// GetAccounts 批次取得帳戶，找不到的 ID 直接略過
	GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error)
	// SearchAccounts 依正規化欄位查詢候選帳戶 (排序由 domain.RankAccounts 負責)
	SearchAccounts(ctx context.Context, q domain.SearchQuery, excludeID uuid.UUID, limit int) ([]*domain.Account, error)
}

// TransactionRepository 交易紀錄查詢 (唯讀)
type TransactionRepository interface {
	// ListTransactions 依建立時間由新到舊，回傳涉及該帳戶的交易
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error)
}

// NotificationRepository 通知儲存
type NotificationRepository interface {
	// CreateNotification 以 ID 為冪等鍵，重複建立視為成功
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Notification, error)
	// MarkRead 只能標記自己的通知，否則回傳 domain.ErrNotificationNotFound
	MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// NotificationFeed 即時推播通道
type NotificationFeed interface {
	Publish(ctx context.Context, n *domain.Notification) error
	// Subscribe 回傳的 channel 在 ctx 結束時關閉
	Subscribe(ctx context.Context, accountID uuid.UUID) (<-chan *domain.Notification, error)
}

// CredentialStore 登入憑證與 session
type CredentialStore interface {
	// SaveCredential 使用者名稱重複回傳 domain.ErrUsernameTaken
	SaveCredential(ctx context.Context, cred *domain.Credential) error
	// GetCredential 找不到回傳 domain.ErrInvalidCredentials
	GetCredential(ctx context.Context, username string) (*domain.Credential, error)
	SaveSession(ctx context.Context, s *domain.Session) error
	// GetSession 找不到回傳 domain.ErrUnauthenticated
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}
