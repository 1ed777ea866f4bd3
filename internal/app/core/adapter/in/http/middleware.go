package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const (
	localSession   = "session"
	localRequestID = "idempotency_request_id"
	headerIdemKey  = "Idempotency-Key"
)

// authenticate 解析 "Authorization: Bearer <token>"，把 session 放進 Locals
func (s *Server) authenticate(c *fiber.Ctx) error {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return domain.ErrUnauthenticated
	}
	sess, err := s.auth.Resolve(c.UserContext(), strings.TrimSpace(token))
	if err != nil {
		return err
	}
	c.Locals(localSession, sess)
	return c.Next()
}

func sessionOf(c *fiber.Ctx) *domain.Session {
	sess, _ := c.Locals(localSession).(*domain.Session)
	return sess
}

// idempotencyKey 將 Idempotency-Key 轉成帳本的 RequestID
// 以帳戶 ID 為 namespace 產生 UUIDv5，不同帳戶使用相同的 key 不會互相影響
func idempotencyKey(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Get(headerIdemKey))
	if key == "" {
		return c.Next()
	}
	if len(key) > 255 {
		return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
	}
	sess := sessionOf(c)
	if sess == nil {
		return domain.ErrUnauthenticated
	}
	c.Locals(localRequestID, uuid.NewSHA1(sess.AccountID, []byte(key)))
	return c.Next()
}

func requestIDOf(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localRequestID).(uuid.UUID)
	return id
}

// accessLog 以 zerolog 記錄每個請求
func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// 先交給 ErrorHandler 寫出回應，才能記錄正確的 status
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	status := c.Response().StatusCode()
	event := s.logger.Debug()
	if status >= fiber.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Interface("request_id", c.Locals("requestid")).
		Msg("http request")
	return nil
}
