package usecase

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	MinPasswordLength = 6
	// numberAttempts 帳號碰撞時重新產生的次數
	numberAttempts = 5
)

// SignupRequest 註冊參數
type SignupRequest struct {
	Username    string
	DisplayName string
	Password    string
}

// AuthUseCase 註冊、登入與 session 解析
type AuthUseCase struct {
	accounts    AccountRepository
	credentials CredentialStore
	numbers     domain.AccountNumberGenerator
	ttl         time.Duration
	bcryptCost  int
	logger      zerolog.Logger
	now         func() time.Time
}

func NewAuthUseCase(accounts AccountRepository, credentials CredentialStore, numbers domain.AccountNumberGenerator, ttl time.Duration, bcryptCost int, logger zerolog.Logger) *AuthUseCase {
	if numbers == nil {
		numbers = domain.RandomAccountNumbers{}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUseCase{
		accounts:    accounts,
		credentials: credentials,
		numbers:     numbers,
		ttl:         ttl,
		bcryptCost:  bcryptCost,
		logger:      logger.With().Str("component", "auth").Logger(),
		now:         time.Now,
	}
}

// Signup 建立帳戶與登入憑證，並直接回傳一個 session
func (a *AuthUseCase) Signup(ctx context.Context, req SignupRequest) (*domain.Account, *domain.Session, error) {
	username, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		return nil, nil, err
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, nil, domain.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	// 先佔用使用者名稱，避免兩個註冊同時拿到同一個名字
	acc, err := a.createAccount(ctx, username, req.DisplayName)
	if err != nil {
		return nil, nil, err
	}
	cred := &domain.Credential{Username: acc.Username, AccountID: acc.ID, PasswordHash: hash}
	if err := a.credentials.SaveCredential(ctx, cred); err != nil {
		return nil, nil, err
	}

	sess, err := a.newSession(ctx, acc.ID, acc.Username)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info().Str("account", acc.ID.String()).Str("number", string(acc.Number)).Msg("account created")
	return acc, sess, nil
}

func (a *AuthUseCase) createAccount(ctx context.Context, username, displayName string) (*domain.Account, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := a.numbers.Next()
		if err != nil {
			return nil, err
		}
		acc, err := domain.NewAccount(number, username, displayName, a.now())
		if err != nil {
			return nil, err
		}
		err = a.accounts.CreateAccount(ctx, acc)
		switch {
		case err == nil:
			return acc, nil
		case errors.Is(err, domain.ErrUsernameTaken):
			return nil, err
		case errors.Is(err, domain.ErrAccountAlreadyExists):
			// 帳號碰撞，換一個號碼
			continue
		default:
			return nil, err
		}
	}
	return nil, domain.ErrAccountAlreadyExists
}

// Login 驗證密碼並建立新 session
// 使用者不存在與密碼錯誤回傳同一個錯誤
func (a *AuthUseCase) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	cred, err := a.credentials.GetCredential(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return a.newSession(ctx, cred.AccountID, cred.Username)
}

// Logout 刪除 session
func (a *AuthUseCase) Logout(ctx context.Context, token string) error {
	return a.credentials.DeleteSession(ctx, token)
}

// Resolve 由 token 取得 session，過期的 session 會被刪除
func (a *AuthUseCase) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	sess, err := a.credentials.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Expired(a.now()) {
		if err := a.credentials.DeleteSession(ctx, token); err != nil {
			a.logger.Warn().Err(err).Msg("delete expired session failed")
		}
		return nil, domain.ErrSessionExpired
	}
	return sess, nil
}

func (a *AuthUseCase) newSession(ctx context.Context, accountID uuid.UUID, username string) (*domain.Session, error) {
	sess, err := domain.NewSession(accountID, username, a.now(), a.ttl)
	if err != nil {
		return nil, err
	}
	if err := a.credentials.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
