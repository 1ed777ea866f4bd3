// Package client 是行動端使用的 Go 客戶端：明確的 Session、餘額投影與即時通知
package client

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-nox-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

var (
	// ErrNoSession 呼叫需要登入的操作但沒有 Session
	ErrNoSession = errors.New("client: no session")
	// ErrSubmissionInFlight 同一個投影已有一筆交易送出中
	ErrSubmissionInFlight = errors.New("client: a submission is already in flight")
)

// Session 登入後取得的憑證，每個呼叫都明確帶入
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *pb.Account
}

// AccountID 目前登入的帳戶
func (s *Session) AccountID() uuid.UUID {
	if s == nil || s.Account == nil {
		return uuid.Nil
	}
	return s.Account.ID
}

// outgoing 把 token 放進 gRPC metadata
func (s *Session) outgoing(ctx context.Context) (context.Context, error) {
	if s == nil || s.Token == "" {
		return nil, ErrNoSession
	}
	return metadata.AppendToOutgoingContext(ctx, pb.MetadataAuthorization, "Bearer "+s.Token), nil
}

// Transfer 一筆要送出的交易
// RequestID 為空時自動產生，重送同一個 RequestID 不會重複入帳
type Transfer struct {
	RequestID   uuid.UUID
	ReceiverID  uuid.UUID
	Amount      domain.Amount
	Kind        domain.TransactionKind
	Description string
}

// Client 包裝 LedgerServiceClient
type Client struct {
	api    pb.LedgerServiceClient
	logger zerolog.Logger
}

func New(conn grpc.ClientConnInterface, logger zerolog.Logger) *Client {
	return &Client{
		api:    pb.NewLedgerServiceClient(conn),
		logger: logger.With().Str("component", "ledger_client").Logger(),
	}
}

// Connect 從連線池取得 target 的連線並建立 Client
func Connect(pool *grpcpool.Pool, target string, logger zerolog.Logger, opts ...grpc.DialOption) (*Client, error) {
	conn, err := pool.GetConnection(target, opts...)
	if err != nil {
		return nil, err
	}
	return New(conn, logger), nil
}

func newSession(resp *pb.AuthResponse) *Session {
	return &Session{Token: resp.Token, ExpiresAt: resp.ExpiresAt, Account: resp.Account}
}

func (c *Client) Signup(ctx context.Context, username, displayName, password string) (*Session, error) {
	resp, err := c.api.Signup(ctx, &pb.SignupRequest{Username: username, DisplayName: displayName, Password: password})
	if err != nil {
		return nil, err
	}
	return newSession(resp), nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.api.Login(ctx, &pb.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return newSession(resp), nil
}

func (c *Client) Logout(ctx context.Context, s *Session) error {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return err
	}
	_, err = c.api.Logout(ctx, &pb.Empty{})
	return err
}

// Balance 向伺服器查詢目前餘額 (centavos)
func (c *Client) Balance(ctx context.Context, s *Session) (domain.Amount, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return 0, err
	}
	resp, err := c.api.GetBalance(ctx, &pb.Empty{})
	if err != nil {
		return 0, err
	}
	return domain.Amount(resp.Balance), nil
}

// Send 送出交易，只有伺服器入帳成功才會回傳交易
func (c *Client) Send(ctx context.Context, s *Session, t Transfer) (*pb.TransactionResponse, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	if t.RequestID == uuid.Nil {
		t.RequestID = uuid.New()
	}
	return c.api.ProcessTransaction(ctx, &pb.TransactionRequest{
		RequestID:   t.RequestID,
		ReceiverID:  t.ReceiverID,
		Amount:      int64(t.Amount),
		Kind:        t.Kind.String(),
		Description: t.Description,
	})
}

func (c *Client) Search(ctx context.Context, s *Session, term string) ([]*pb.Account, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.api.SearchAccounts(ctx, &pb.SearchRequest{Term: term})
	if err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

func (c *Client) History(ctx context.Context, s *Session, limit int) (*pb.HistoryResponse, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.ListHistory(ctx, &pb.HistoryRequest{Limit: int32(limit)})
}

func (c *Client) Notifications(ctx context.Context, s *Session) (*pb.NotificationList, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.ListNotifications(ctx, &pb.NotificationsRequest{})
}

// Subscribe 訂閱即時通知
// 回傳時伺服器端已完成訂閱，之後入帳的通知都會送到 channel
// ctx 結束或串流中斷時 channel 會被關閉
func (c *Client) Subscribe(ctx context.Context, s *Session) (<-chan *pb.Notification, error) {
	ctx, err := s.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := c.api.SubscribeNotifications(ctx, &pb.Empty{})
	if err != nil {
		return nil, err
	}
	// 伺服器訂閱成功後才會送出 header
	if _, err := stream.Header(); err != nil {
		return nil, err
	}

	out := make(chan *pb.Notification)
	go func() {
		defer close(out)
		for {
			n, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
					c.logger.Warn().Err(err).Msg("notification stream ended")
				}
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
