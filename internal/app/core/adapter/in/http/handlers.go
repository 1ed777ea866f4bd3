package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

type signupRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Account   accountView `json:"account"`
}

// transactionRequest amount 接受 "30", "30.00", "30,00", "R$ 1.234,56"
type transactionRequest struct {
	ReceiverID  string `json:"receiver_id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

func newAuthResponse(sess *domain.Session, acc *domain.Account) authResponse {
	return authResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC(),
		Account:   newAccountView(acc, true),
	}
}

func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body")
	}
	acc, sess, err := s.auth.Signup(c.UserContext(), usecase.SignupRequest{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newAuthResponse(sess, acc))
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body")
	}
	sess, err := s.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	acc, err := s.core.GetProfile(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(newAuthResponse(sess, acc))
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.auth.Logout(c.UserContext(), sessionOf(c).Token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) profile(c *fiber.Ctx) error {
	acc, err := s.core.GetProfile(c.UserContext(), sessionOf(c))
	if err != nil {
		return err
	}
	return c.JSON(newAccountView(acc, true))
}

func (s *Server) balance(c *fiber.Ctx) error {
	amount, err := s.core.GetAccountBalance(c.UserContext(), sessionOf(c))
	if err != nil {
		return err
	}
	return c.JSON(newBalanceView(amount))
}

// processTransaction POST /v1/transactions
// 付款人一定是 session 本人；存款可省略 receiver_id
func (s *Server) processTransaction(c *fiber.Ctx) error {
	sess := sessionOf(c)
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body")
	}

	kind, err := domain.ParseTransactionKind(req.Kind)
	if err != nil {
		return err
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	receiver := sess.AccountID
	if req.ReceiverID != "" {
		receiver, err = uuid.Parse(req.ReceiverID)
		if err != nil {
			return badRequest("invalid receiver_id")
		}
	} else if kind != domain.TransactionKindDeposit {
		return badRequest("receiver_id is required")
	}

	tx, err := s.core.ProcessTransaction(c.UserContext(), sess, &domain.TransactionRequest{
		RequestID:   requestIDOf(c),
		SenderID:    sess.AccountID,
		ReceiverID:  receiver,
		Amount:      amount,
		Kind:        kind,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	resp := fiber.Map{"transaction": newTransactionView(tx)}
	if balance, err := s.core.GetAccountBalance(c.UserContext(), sess); err == nil {
		resp["balance"] = newBalanceView(balance)
	} else {
		s.logger.Warn().Err(err).Str("tx", tx.ID.String()).Msg("balance after commit unavailable")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *Server) search(c *fiber.Ctx) error {
	accounts, err := s.directory.Search(c.UserContext(), sessionOf(c), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"accounts": newAccountViews(accounts)})
}

func (s *Server) recentContacts(c *fiber.Ctx) error {
	accounts, err := s.directory.RecentContacts(c.UserContext(), sessionOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"accounts": newAccountViews(accounts)})
}

func (s *Server) listHistory(c *fiber.Ctx) error {
	entries, err := s.history.History(c.UserContext(), sessionOf(c), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(newHistoryView(entries))
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	sess := sessionOf(c)
	list, err := s.notify.List(c.UserContext(), sess, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	unread, err := s.notify.UnreadCount(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"notifications": newNotificationViews(list),
		"unread":        unread,
	})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		// 不合法的 ID 當作找不到，不透露格式以外的資訊
		return domain.ErrNotificationNotFound
	}
	if err := s.notify.MarkRead(c.UserContext(), sessionOf(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) markAllRead(c *fiber.Ctx) error {
	updated, err := s.notify.MarkAllRead(c.UserContext(), sessionOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": updated})
}
