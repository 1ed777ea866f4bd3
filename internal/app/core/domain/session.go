package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Session 登入後取得的 session，明確地在呼叫間傳遞，不使用全域狀態
type Session struct {
	Token     string
	AccountID uuid.UUID
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession 產生 32 bytes 隨機 token 的 session
func NewSession(accountID uuid.UUID, username string, now time.Time, ttl time.Duration) (*Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return &Session{
		Token:     "nox_" + hex.EncodeToString(buf),
		AccountID: accountID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired 是否已過期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credential 登入憑證，只保存 bcrypt hash
type Credential struct {
	Username     string
	AccountID    uuid.UUID
	PasswordHash []byte
}
