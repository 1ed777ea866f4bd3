// Package nats 以 NATS subject 推播通知，多個 core 節點可以共用同一個推播通道
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultSubjectPrefix 每個帳戶一個 subject: nox.notifications.<account-id>
const DefaultSubjectPrefix = "nox.notifications"

// subscriberBuffer 與記憶體 Hub 相同
const subscriberBuffer = 64

// message NATS 上的通知格式
type message struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func toMessage(n *domain.Notification) message {
	return message{
		ID:            n.ID,
		AccountID:     n.AccountID,
		TransactionID: n.TransactionID,
		Title:         n.Title,
		Body:          n.Body,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

func (m message) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:            m.ID,
		AccountID:     m.AccountID,
		TransactionID: m.TransactionID,
		Title:         m.Title,
		Body:          m.Body,
		Read:          m.Read,
		CreatedAt:     m.CreatedAt,
	}
}

// Feed implements usecase.NotificationFeed on top of a NATS connection.
type Feed struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewFeed 使用既有的連線，prefix 為空時使用 DefaultSubjectPrefix
func NewFeed(conn *nats.Conn, prefix string, logger zerolog.Logger) *Feed {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Feed{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "nats_feed").Logger(),
	}
}

// Connect 連線到 NATS，斷線時自動重連
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("nox-core"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
}

func (f *Feed) subject(accountID uuid.UUID) string {
	return fmt.Sprintf("%s.%s", f.prefix, accountID)
}

// Publish implements usecase.NotificationFeed.
func (f *Feed) Publish(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(toMessage(n))
	if err != nil {
		return err
	}
	return f.conn.Publish(f.subject(n.AccountID), data)
}

// Subscribe implements usecase.NotificationFeed.
// 回傳前先 Flush，確保伺服器已登記訂閱
func (f *Feed) Subscribe(ctx context.Context, accountID uuid.UUID) (<-chan *domain.Notification, error) {
	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := f.conn.ChanSubscribe(f.subject(accountID), msgs)
	if err != nil {
		return nil, err
	}
	if err := f.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	out := make(chan *domain.Notification, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				f.logger.Warn().Err(err).Msg("unsubscribe failed")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				var m message
				if err := json.Unmarshal(msg.Data, &m); err != nil {
					f.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("drop malformed notification")
					continue
				}
				// subject 決定擁有者，不信任 payload 內的 account_id
				if m.AccountID != accountID {
					continue
				}
				select {
				case out <- m.toDomain():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ usecase.NotificationFeed = (*Feed)(nil)
