// Package proto 是 nox.ledger.v1.LedgerService 的傳輸契約
//
// 沒有使用 protoc 產生程式碼：訊息是帶 json tag 的 struct，
// 以 JSON codec 在 gRPC 上傳輸。所有金額都是最小貨幣單位 (centavos)。
package proto

import (
	"time"

	"github.com/google/uuid"
)

type Empty struct{}

type SignupRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"account"`
}

// Account 帳戶資料；Balance 只在查詢自己的帳戶時有值
type Account struct {
	ID          uuid.UUID `json:"id"`
	Number      string    `json:"number"`
	Username    string    `json:"username"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Status      string    `json:"status"`
	Balance     *int64    `json:"balance,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type BalanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
}

// TransactionRequest SenderID 為空時使用 session 本人
type TransactionRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	ReceiverID  uuid.UUID `json:"receiver_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
}

type Transaction struct {
	Sequence    uint64    `json:"sequence"`
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"request_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	ReceiverID  uuid.UUID `json:"receiver_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionResponse Balance 是入帳後付款人的餘額，讀取失敗時省略
type TransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
	Balance     *int64       `json:"balance,omitempty"`
}

type SearchRequest struct {
	Term string `json:"term"`
}

type AccountList struct {
	Accounts []*Account `json:"accounts"`
}

type HistoryRequest struct {
	Limit int32 `json:"limit"`
}

type HistoryEntry struct {
	TransactionID     uuid.UUID `json:"transaction_id"`
	Kind              string    `json:"kind"`
	Direction         string    `json:"direction"`
	Amount            int64     `json:"amount"`
	SignedAmount      int64     `json:"signed_amount"`
	CounterpartID     uuid.UUID `json:"counterpart_id"`
	CounterpartLabel  string    `json:"counterpart_label"`
	CounterpartHandle string    `json:"counterpart_handle,omitempty"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type Summary struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
	Count   int32 `json:"count"`
}

type HistoryResponse struct {
	Entries []*HistoryEntry `json:"entries"`
	Summary *Summary        `json:"summary"`
}

type NotificationsRequest struct {
	Limit int32 `json:"limit"`
}

type Notification struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

type NotificationList struct {
	Notifications []*Notification `json:"notifications"`
	Unread        int32           `json:"unread"`
}

type MarkReadRequest struct {
	ID uuid.UUID `json:"id"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
