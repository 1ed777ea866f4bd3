package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const internalMessage = "internal error, please try again"

// statusOf 將 domain 錯誤對應到 HTTP status
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrAmountMustBePositive),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidDisplayName),
		errors.Is(err, domain.ErrWeakPassword):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrSelfTransfer):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, domain.ErrIdempotencyConflict),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrAccountAlreadyExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler fiber 的統一錯誤出口，回傳 {"error": "..."}
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		message = internalMessage
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
