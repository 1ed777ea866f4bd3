package domain

import "errors"

var (
	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInvalidAmount 金額格式錯誤 (非數字或超過兩位小數)
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("saldo insuficiente")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在 (帳號或使用者名稱重複)
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrAccountBlocked 帳戶已停用
	ErrAccountBlocked = errors.New("account is blocked")

	// ErrSelfTransfer 非存款交易的收付款人不可相同
	ErrSelfTransfer = errors.New("sender and receiver must differ")

	// ErrInvalidDeposit 存款必須是自己轉給自己
	ErrInvalidDeposit = errors.New("deposit must credit the sender's own account")

	// ErrInvalidKind 未知的交易類型
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrSelectTransactionFailed 查詢交易失敗
	ErrSelectTransactionFailed = errors.New("select transaction failed")

	// ErrNotificationNotFound 找不到通知 (或不屬於該帳戶)
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUnauthenticated 沒有有效的 session
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionExpired session 已過期
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials 帳號或密碼錯誤
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrForbidden 只能操作自己的帳戶
	ErrForbidden = errors.New("operation not allowed for this session")

	// ErrInvalidUsername 使用者名稱格式錯誤
	ErrInvalidUsername = errors.New("invalid username: use 3-30 letters, numbers, _ or .")

	// ErrInvalidDisplayName 顯示名稱不可為空
	ErrInvalidDisplayName = errors.New("display name is required")

	// ErrWeakPassword 密碼長度不足
	ErrWeakPassword = errors.New("password must have at least 6 characters")

	// ErrUsernameTaken 使用者名稱已被使用
	ErrUsernameTaken = errors.New("username already taken")

	// ErrBalanceOverflow 入帳後餘額超出 int64 可表示範圍
	ErrBalanceOverflow = errors.New("balance would exceed the maximum amount")

	// ErrIdempotencyConflict 同一個 RequestID 已用於內容不同的交易
	ErrIdempotencyConflict = errors.New("request id already used for a different transaction")
)
