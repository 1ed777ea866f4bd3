package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName gRPC 服務名稱
const ServiceName = "nox.ledger.v1.LedgerService"

// MetadataAuthorization session token 放在 metadata "authorization: Bearer <token>"
const MetadataAuthorization = "authorization"

const (
	LedgerService_Signup_FullMethodName                   = "/" + ServiceName + "/Signup"
	LedgerService_Login_FullMethodName                    = "/" + ServiceName + "/Login"
	LedgerService_Logout_FullMethodName                   = "/" + ServiceName + "/Logout"
	LedgerService_GetProfile_FullMethodName               = "/" + ServiceName + "/GetProfile"
	LedgerService_GetBalance_FullMethodName               = "/" + ServiceName + "/GetBalance"
	LedgerService_ProcessTransaction_FullMethodName       = "/" + ServiceName + "/ProcessTransaction"
	LedgerService_SearchAccounts_FullMethodName           = "/" + ServiceName + "/SearchAccounts"
	LedgerService_RecentContacts_FullMethodName           = "/" + ServiceName + "/RecentContacts"
	LedgerService_ListHistory_FullMethodName              = "/" + ServiceName + "/ListHistory"
	LedgerService_ListNotifications_FullMethodName        = "/" + ServiceName + "/ListNotifications"
	LedgerService_MarkNotificationRead_FullMethodName     = "/" + ServiceName + "/MarkNotificationRead"
	LedgerService_MarkAllNotificationsRead_FullMethodName = "/" + ServiceName + "/MarkAllNotificationsRead"
	LedgerService_SubscribeNotifications_FullMethodName   = "/" + ServiceName + "/SubscribeNotifications"
)

// LedgerServiceServer 伺服器端介面
type LedgerServiceServer interface {
	Signup(context.Context, *SignupRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	GetProfile(context.Context, *Empty) (*Account, error)
	GetBalance(context.Context, *Empty) (*BalanceResponse, error)
	ProcessTransaction(context.Context, *TransactionRequest) (*TransactionResponse, error)
	SearchAccounts(context.Context, *SearchRequest) (*AccountList, error)
	RecentContacts(context.Context, *Empty) (*AccountList, error)
	ListHistory(context.Context, *HistoryRequest) (*HistoryResponse, error)
	ListNotifications(context.Context, *NotificationsRequest) (*NotificationList, error)
	MarkNotificationRead(context.Context, *MarkReadRequest) (*Empty, error)
	MarkAllNotificationsRead(context.Context, *Empty) (*MarkAllReadResponse, error)
	SubscribeNotifications(*Empty, grpc.ServerStreamingServer[Notification]) error
}

// UnimplementedLedgerServiceServer 嵌入後，新增的方法預設回傳 Unimplemented
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) Signup(context.Context, *SignupRequest) (*AuthResponse, error) {
	return nil, unimplemented("Signup")
}
func (UnimplementedLedgerServiceServer) Login(context.Context, *LoginRequest) (*AuthResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedLedgerServiceServer) Logout(context.Context, *Empty) (*Empty, error) {
	return nil, unimplemented("Logout")
}
func (UnimplementedLedgerServiceServer) GetProfile(context.Context, *Empty) (*Account, error) {
	return nil, unimplemented("GetProfile")
}
func (UnimplementedLedgerServiceServer) GetBalance(context.Context, *Empty) (*BalanceResponse, error) {
	return nil, unimplemented("GetBalance")
}
func (UnimplementedLedgerServiceServer) ProcessTransaction(context.Context, *TransactionRequest) (*TransactionResponse, error) {
	return nil, unimplemented("ProcessTransaction")
}
func (UnimplementedLedgerServiceServer) SearchAccounts(context.Context, *SearchRequest) (*AccountList, error) {
	return nil, unimplemented("SearchAccounts")
}
func (UnimplementedLedgerServiceServer) RecentContacts(context.Context, *Empty) (*AccountList, error) {
	return nil, unimplemented("RecentContacts")
}
func (UnimplementedLedgerServiceServer) ListHistory(context.Context, *HistoryRequest) (*HistoryResponse, error) {
	return nil, unimplemented("ListHistory")
}
func (UnimplementedLedgerServiceServer) ListNotifications(context.Context, *NotificationsRequest) (*NotificationList, error) {
	return nil, unimplemented("ListNotifications")
}
func (UnimplementedLedgerServiceServer) MarkNotificationRead(context.Context, *MarkReadRequest) (*Empty, error) {
	return nil, unimplemented("MarkNotificationRead")
}
func (UnimplementedLedgerServiceServer) MarkAllNotificationsRead(context.Context, *Empty) (*MarkAllReadResponse, error) {
	return nil, unimplemented("MarkAllNotificationsRead")
}
func (UnimplementedLedgerServiceServer) SubscribeNotifications(*Empty, grpc.ServerStreamingServer[Notification]) error {
	return unimplemented("SubscribeNotifications")
}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// unaryHandler 解碼請求並交給攔截器鏈
func unaryHandler[Req, Res any](fullMethod string, call func(LedgerServiceServer, context.Context, *Req) (*Res, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeNotificationsHandler(srv any, stream grpc.ServerStream) error {
	in := new(Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LedgerServiceServer).SubscribeNotifications(in, &grpc.GenericServerStream[Empty, Notification]{ServerStream: stream})
}

// LedgerServiceDesc 手寫的 service descriptor
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Signup", Handler: unaryHandler(LedgerService_Signup_FullMethodName, LedgerServiceServer.Signup)},
		{MethodName: "Login", Handler: unaryHandler(LedgerService_Login_FullMethodName, LedgerServiceServer.Login)},
		{MethodName: "Logout", Handler: unaryHandler(LedgerService_Logout_FullMethodName, LedgerServiceServer.Logout)},
		{MethodName: "GetProfile", Handler: unaryHandler(LedgerService_GetProfile_FullMethodName, LedgerServiceServer.GetProfile)},
		{MethodName: "GetBalance", Handler: unaryHandler(LedgerService_GetBalance_FullMethodName, LedgerServiceServer.GetBalance)},
		{MethodName: "ProcessTransaction", Handler: unaryHandler(LedgerService_ProcessTransaction_FullMethodName, LedgerServiceServer.ProcessTransaction)},
		{MethodName: "SearchAccounts", Handler: unaryHandler(LedgerService_SearchAccounts_FullMethodName, LedgerServiceServer.SearchAccounts)},
		{MethodName: "RecentContacts", Handler: unaryHandler(LedgerService_RecentContacts_FullMethodName, LedgerServiceServer.RecentContacts)},
		{MethodName: "ListHistory", Handler: unaryHandler(LedgerService_ListHistory_FullMethodName, LedgerServiceServer.ListHistory)},
		{MethodName: "ListNotifications", Handler: unaryHandler(LedgerService_ListNotifications_FullMethodName, LedgerServiceServer.ListNotifications)},
		{MethodName: "MarkNotificationRead", Handler: unaryHandler(LedgerService_MarkNotificationRead_FullMethodName, LedgerServiceServer.MarkNotificationRead)},
		{MethodName: "MarkAllNotificationsRead", Handler: unaryHandler(LedgerService_MarkAllNotificationsRead_FullMethodName, LedgerServiceServer.MarkAllNotificationsRead)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeNotifications",
			Handler:       subscribeNotificationsHandler,
			ServerStreams: true,
		},
	},
}

// LedgerServiceClient 客戶端介面，每個呼叫都會帶上 JSON content-subtype
type LedgerServiceClient interface {
	Signup(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GetProfile(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Account, error)
	GetBalance(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*BalanceResponse, error)
	ProcessTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error)
	SearchAccounts(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*AccountList, error)
	RecentContacts(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*AccountList, error)
	ListHistory(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error)
	ListNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*NotificationList, error)
	MarkNotificationRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*Empty, error)
	MarkAllNotificationsRead(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*MarkAllReadResponse, error)
	SubscribeNotifications(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Notification], error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Signup(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, LedgerService_Signup_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, LedgerService_Login_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, LedgerService_Logout_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetProfile(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, LedgerService_GetProfile_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetBalance(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c.cc, LedgerService_GetBalance_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) ProcessTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, LedgerService_ProcessTransaction_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) SearchAccounts(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*AccountList, error) {
	return invoke[AccountList](ctx, c.cc, LedgerService_SearchAccounts_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) RecentContacts(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*AccountList, error) {
	return invoke[AccountList](ctx, c.cc, LedgerService_RecentContacts_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) ListHistory(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c.cc, LedgerService_ListHistory_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) ListNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*NotificationList, error) {
	return invoke[NotificationList](ctx, c.cc, LedgerService_ListNotifications_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) MarkNotificationRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, LedgerService_MarkNotificationRead_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) MarkAllNotificationsRead(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*MarkAllReadResponse, error) {
	return invoke[MarkAllReadResponse](ctx, c.cc, LedgerService_MarkAllNotificationsRead_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) SubscribeNotifications(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Notification], error) {
	stream, err := c.cc.NewStream(ctx, &LedgerServiceDesc.Streams[0], LedgerService_SubscribeNotifications_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Empty, Notification]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
