package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

type GrpcServer struct {
	pb.UnimplementedLedgerServiceServer
	auth      *usecase.AuthUseCase
	core      *usecase.CoreUseCase
	directory *usecase.DirectoryUseCase
	history   *usecase.HistoryUseCase
	notify    *usecase.NotificationUseCase
	logger    zerolog.Logger
}

func NewGrpcServer(services usecase.Services, logger zerolog.Logger) *GrpcServer {
	return &GrpcServer{
		auth:      services.Auth,
		core:      services.Core,
		directory: services.Directory,
		history:   services.History,
		notify:    services.Notifications,
		logger:    logger.With().Str("component", "grpc").Logger(),
	}
}

// NewServer 建立已註冊 LedgerService 與認證攔截器的 grpc.Server
func (s *GrpcServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	defaults := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.unaryInterceptor),
		grpc.ChainStreamInterceptor(s.streamInterceptor),
		// 通知串流可能長時間沒有資料，允許客戶端 keepalive ping
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	server := grpc.NewServer(append(defaults, opts...)...)
	pb.RegisterLedgerServiceServer(server, s)
	return server
}

func (s *GrpcServer) Signup(ctx context.Context, req *pb.SignupRequest) (*pb.AuthResponse, error) {
	acc, sess, err := s.auth.Signup(ctx, usecase.SignupRequest{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AuthResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Account: toAccount(acc, true)}, nil
}

func (s *GrpcServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.AuthResponse, error) {
	sess, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	acc, err := s.core.GetProfile(ctx, sess)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AuthResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Account: toAccount(acc, true)}, nil
}

func (s *GrpcServer) Logout(ctx context.Context, _ *pb.Empty) (*pb.Empty, error) {
	sess := sessionFrom(ctx)
	if sess == nil {
		return nil, toStatus(domain.ErrUnauthenticated)
	}
	if err := s.auth.Logout(ctx, sess.Token); err != nil {
		return nil, toStatus(err)
	}
	return &pb.Empty{}, nil
}

func (s *GrpcServer) GetProfile(ctx context.Context, _ *pb.Empty) (*pb.Account, error) {
	acc, err := s.core.GetProfile(ctx, sessionFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccount(acc, true), nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, _ *pb.Empty) (*pb.BalanceResponse, error) {
	sess := sessionFrom(ctx)
	balance, err := s.core.GetAccountBalance(ctx, sess)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.BalanceResponse{AccountID: sess.AccountID, Balance: int64(balance)}, nil
}

// ProcessTransaction 入帳；sender_id 省略時為 session 本人，存款的 receiver_id 也可省略
func (s *GrpcServer) ProcessTransaction(ctx context.Context, req *pb.TransactionRequest) (*pb.TransactionResponse, error) {
	sess := sessionFrom(ctx)
	if sess == nil {
		return nil, toStatus(domain.ErrUnauthenticated)
	}

	// 1. 轉換交易類型
	kind, err := domain.ParseTransactionKind(req.Kind)
	if err != nil {
		return nil, toStatus(err)
	}

	// 2. 組裝 Domain Request
	sender := req.SenderID
	if sender == uuid.Nil {
		sender = sess.AccountID
	}
	receiver := req.ReceiverID
	if receiver == uuid.Nil && kind == domain.TransactionKindDeposit {
		receiver = sender
	}
	// RequestID 依呼叫者分區，別人用過的 id 不會重播成別人的交易
	requestID := req.RequestID
	if requestID != uuid.Nil {
		requestID = uuid.NewSHA1(sess.AccountID, requestID[:])
	}
	txReq := &domain.TransactionRequest{
		RequestID:   requestID,
		SenderID:    sender,
		ReceiverID:  receiver,
		Amount:      domain.Amount(req.Amount),
		Kind:        kind,
		Description: req.Description,
	}

	// 3. 執行交易
	tx, err := s.core.ProcessTransaction(ctx, sess, txReq)
	if err != nil {
		return nil, toStatus(err)
	}

	// 4. 取得最新餘額 (Best Effort)，客戶端仍會自行重新查詢
	resp := &pb.TransactionResponse{Transaction: toTransaction(tx)}
	balance, err := s.core.GetAccountBalance(ctx, sess)
	if err != nil {
		s.logger.Warn().Err(err).Str("tx", tx.ID.String()).Msg("balance after commit unavailable")
		return resp, nil
	}
	b := int64(balance)
	resp.Balance = &b
	return resp, nil
}

func (s *GrpcServer) SearchAccounts(ctx context.Context, req *pb.SearchRequest) (*pb.AccountList, error) {
	accounts, err := s.directory.Search(ctx, sessionFrom(ctx), req.Term)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountList(accounts), nil
}

func (s *GrpcServer) RecentContacts(ctx context.Context, _ *pb.Empty) (*pb.AccountList, error) {
	accounts, err := s.directory.RecentContacts(ctx, sessionFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountList(accounts), nil
}

func (s *GrpcServer) ListHistory(ctx context.Context, req *pb.HistoryRequest) (*pb.HistoryResponse, error) {
	entries, err := s.history.History(ctx, sessionFrom(ctx), int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	return toHistory(entries, domain.Summarize(entries)), nil
}

func (s *GrpcServer) ListNotifications(ctx context.Context, req *pb.NotificationsRequest) (*pb.NotificationList, error) {
	list, err := s.notify.List(ctx, sessionFrom(ctx), int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	unread, err := s.notify.UnreadCount(ctx, sessionFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := &pb.NotificationList{
		Notifications: make([]*pb.Notification, 0, len(list)),
		Unread:        int32(unread),
	}
	for _, n := range list {
		out.Notifications = append(out.Notifications, toNotification(n))
	}
	return out, nil
}

func (s *GrpcServer) MarkNotificationRead(ctx context.Context, req *pb.MarkReadRequest) (*pb.Empty, error) {
	if err := s.notify.MarkRead(ctx, sessionFrom(ctx), req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &pb.Empty{}, nil
}

func (s *GrpcServer) MarkAllNotificationsRead(ctx context.Context, _ *pb.Empty) (*pb.MarkAllReadResponse, error) {
	updated, err := s.notify.MarkAllRead(ctx, sessionFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.MarkAllReadResponse{Updated: updated}, nil
}

// SubscribeNotifications 推送 session 本人的新通知，直到客戶端取消
func (s *GrpcServer) SubscribeNotifications(_ *pb.Empty, stream grpc.ServerStreamingServer[pb.Notification]) error {
	ctx := stream.Context()
	ch, err := s.notify.Subscribe(ctx, sessionFrom(ctx))
	if err != nil {
		return toStatus(err)
	}
	// 先送出 header，客戶端收到 header 即代表訂閱已經生效
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(toNotification(n)); err != nil {
				return err
			}
		}
	}
}

var _ pb.LedgerServiceServer = (*GrpcServer)(nil)
