package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStatus 帳戶狀態，帳戶不會被實體刪除
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

type Account struct {
	ID          uuid.UUID
	Number      AccountNumber
	Username    string
	DisplayName string
	AvatarURL   string
	Balance     Amount
	Status      AccountStatus
	CreatedAt   time.Time
}

// NewAccount 建立餘額為零的新帳戶
func NewAccount(number AccountNumber, username, displayName string, now time.Time) (*Account, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrInvalidDisplayName
	}
	return &Account{
		ID:          uuid.New(),
		Number:      number,
		Username:    name,
		DisplayName: displayName,
		Status:      AccountStatusActive,
		CreatedAt:   now,
	}, nil
}

// NormalizeUsername 去除 "@" 前綴並轉小寫，驗證格式
func NormalizeUsername(username string) (string, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if !usernamePattern.MatchString(name) {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// Handle 顯示用的使用者名稱，例如 "@alice"
func (a *Account) Handle() string {
	return "@" + a.Username
}

// Active 是否可以進行交易
func (a *Account) Active() bool {
	return a.Status == "" || a.Status == AccountStatusActive
}

// Deposit 存款
func (a *Account) Deposit(amount Amount) error {
	if err := a.CanCredit(amount); err != nil {
		return err
	}

	a.Balance = a.Balance + amount
	return nil
}

// CanCredit 檢查入帳 amount 後餘額不會溢位
// Ledger 在寫入 WAL 或資料庫之前呼叫
func (a *Account) CanCredit(amount Amount) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if !a.Balance.CanAdd(amount) {
		return ErrBalanceOverflow
	}
	return nil
}

// Withdraw 提款
func (a *Account) Withdraw(amount Amount) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}

	if a.Balance < amount {
		return ErrInsufficientBalance
	}

	a.Balance = a.Balance - amount
	return nil
}

// Clone 回傳值拷貝，避免外部改寫內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
