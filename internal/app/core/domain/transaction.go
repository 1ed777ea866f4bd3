package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionKind 交易類型
// 為了節省記憶體，使用 uint8
type TransactionKind uint8

const (
	// 轉帳
	TransactionKindTransfer TransactionKind = 1
	// 付款
	TransactionKindPayment TransactionKind = 2
	// Pix 即時付款
	TransactionKindPix TransactionKind = 3
	// 存款 (sender = receiver)
	TransactionKindDeposit TransactionKind = 4
)

// TransactionKinds 所有合法的交易類型
var TransactionKinds = []TransactionKind{
	TransactionKindTransfer,
	TransactionKindPayment,
	TransactionKindPix,
	TransactionKindDeposit,
}

func (k TransactionKind) String() string {
	switch k {
	case TransactionKindTransfer:
		return "transfer"
	case TransactionKindPayment:
		return "payment"
	case TransactionKindPix:
		return "pix"
	case TransactionKindDeposit:
		return "deposit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid 是否為已定義的交易類型
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindTransfer, TransactionKindPayment, TransactionKindPix, TransactionKindDeposit:
		return true
	}
	return false
}

// ParseTransactionKind 解析 "transfer" | "payment" | "pix" | "deposit"
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transfer":
		return TransactionKindTransfer, nil
	case "payment":
		return TransactionKindPayment, nil
	case "pix":
		return TransactionKindPix, nil
	case "deposit":
		return TransactionKindDeposit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k TransactionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *TransactionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionKind(string(bytes.TrimSpace(b)))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransactionRequest process_transaction 的輸入
type TransactionRequest struct {
	// RequestID: 冪等鍵，重送同一個 RequestID 只會入帳一次
	RequestID   uuid.UUID
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Amount      Amount
	Kind        TransactionKind
	Description string
}

// Validate 伺服器端驗證 (帳戶存在與餘額由 Ledger 在鎖內檢查)
func (r *TransactionRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrAmountMustBePositive
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.SenderID == uuid.Nil || r.ReceiverID == uuid.Nil {
		return ErrAccountNotFound
	}
	if r.Kind == TransactionKindDeposit {
		if r.SenderID != r.ReceiverID {
			return ErrInvalidDeposit
		}
		return nil
	}
	if r.SenderID == r.ReceiverID {
		return ErrSelfTransfer
	}
	return nil
}

// Transaction 已入帳的交易，建立後不可變
type Transaction struct {
	// Sequence: 帳本內的入帳順序號 (1, 2, 3...)
	Sequence    uint64
	ID          uuid.UUID
	RequestID   uuid.UUID
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Amount      Amount
	Kind        TransactionKind
	Description string
	CreatedAt   time.Time
}

// NewTransaction 由已驗證的請求建立交易紀錄
func NewTransaction(req *TransactionRequest, now time.Time) *Transaction {
	requestID := req.RequestID
	if requestID == uuid.Nil {
		requestID = uuid.New()
	}
	return &Transaction{
		ID:          uuid.New(),
		RequestID:   requestID,
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		Amount:      req.Amount,
		Kind:        req.Kind,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
	}
}

// CheckReplay 重送的請求必須與已入帳的交易內容相同
func (t *Transaction) CheckReplay(req *TransactionRequest) error {
	if t.SenderID != req.SenderID || t.ReceiverID != req.ReceiverID ||
		t.Amount != req.Amount || t.Kind != req.Kind {
		return ErrIdempotencyConflict
	}
	return nil
}

// IsDeposit 自己轉給自己即為存款
func (t *Transaction) IsDeposit() bool {
	return t.SenderID == t.ReceiverID
}

// Involves 交易是否涉及該帳戶
func (t *Transaction) Involves(accountID uuid.UUID) bool {
	return t.SenderID == accountID || t.ReceiverID == accountID
}

// GetLockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transaction) GetLockIDs() []uuid.UUID {
	return LockOrder(t.SenderID, t.ReceiverID)
}

// LockOrder 依 bytes 排序並去重，所有 adapter 以相同順序上鎖
func LockOrder(a, b uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	switch c := bytes.Compare(a[:], b[:]); {
	case c == 0:
		ids = append(ids, a)
	case c < 0:
		ids = append(ids, a, b)
	default:
		ids = append(ids, b, a)
	}
	return ids
}
