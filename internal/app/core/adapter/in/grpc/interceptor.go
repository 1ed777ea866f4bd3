package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

// publicMethods 不需要 session 的方法
var publicMethods = map[string]bool{
	pb.LedgerService_Signup_FullMethodName: true,
	pb.LedgerService_Login_FullMethodName:  true,
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom 取得攔截器放入的 session，沒有時回傳 nil
func sessionFrom(ctx context.Context) *domain.Session {
	sess, _ := ctx.Value(sessionKey{}).(*domain.Session)
	return sess
}

// tokenFrom 讀取 metadata "authorization"，接受 "Bearer <token>" 或純 token
func tokenFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(pb.MetadataAuthorization)
	if len(values) == 0 {
		return ""
	}
	token := strings.TrimSpace(values[0])
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func (s *GrpcServer) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if publicMethods[fullMethod] {
		return ctx, nil
	}
	sess, err := s.auth.Resolve(ctx, tokenFrom(ctx))
	if err != nil {
		return ctx, err
	}
	return withSession(ctx, sess), nil
}

func (s *GrpcServer) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("method", info.FullMethod).Msg("grpc handler panic")
			resp, err = nil, status.Error(codes.Internal, internalMessage)
		}
		s.logCall(info.FullMethod, start, err)
	}()

	ctx, err = s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err = handler(ctx, req)
	return resp, toStatus(err)
}

// sessionStream 以帶 session 的 context 包裝 ServerStream
type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionStream) Context() context.Context {
	return s.ctx
}

func (s *GrpcServer) streamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err == nil {
		err = handler(srv, &sessionStream{ServerStream: ss, ctx: ctx})
	}
	err = toStatus(err)
	s.logCall(info.FullMethod, start, err)
	return err
}

func (s *GrpcServer) logCall(method string, start time.Time, err error) {
	code := status.Code(err)
	var event *zerolog.Event
	switch code {
	case codes.OK, codes.Canceled:
		event = s.logger.Debug()
	case codes.Internal, codes.Unknown:
		event = s.logger.Error().Err(err)
	default:
		event = s.logger.Info().Err(err)
	}
	event.
		Str("method", method).
		Str("code", code.String()).
		Dur("elapsed", time.Since(start)).
		Msg("grpc call")
}
