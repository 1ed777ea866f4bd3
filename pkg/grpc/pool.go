// Package grpc 提供 gRPC 客戶端連線池與共用的客戶端攔截器
package grpc

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 管理通往多個目標的 gRPC 客戶端連線。
// 執行緒安全，每個目標地址只會維護一個連線實例。
type Pool struct {
	conns    sync.Map // map[string]*grpc.ClientConn
	mu       sync.Mutex
	unary    []grpc.UnaryClientInterceptor
	stream   []grpc.StreamClientInterceptor
	callOpts []grpc.CallOption
}

// PoolOption 定義了 Pool 的配置選項函數
type PoolOption func(*Pool)

// WithInterceptor 加入 UnaryClientInterceptor，依加入順序串接
// 用於統一處理 Logging, Metrics, 或 Auth Token 注入。
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.unary = append(p.unary, interceptor)
	}
}

// WithStreamInterceptor 加入 StreamClientInterceptor (例如通知訂閱的 Auth Token)
func WithStreamInterceptor(interceptor grpc.StreamClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.stream = append(p.stream, interceptor)
	}
}

// WithCallOptions 每個呼叫預設帶上的 CallOption，例如 content-subtype
func WithCallOptions(opts ...grpc.CallOption) PoolOption {
	return func(p *Pool) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

// NewPool 建立並回傳一個新的 gRPC 連線池。
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 獲取現有的連線，或為指定目標建立新連線。
// 新連線會套用預設的 keepalive 設定。
//
// 參數:
//
//	target: string - 目標伺服器地址 (e.g., "localhost:50051" 或 K8s DNS)
//	opts: ...grpc.DialOption - 可選的額外 gRPC 連線選項
//
// 回傳值:
//
//	*grpc.ClientConn: gRPC 客戶端連線物件
//	error: 若建立連線失敗則回傳錯誤
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	// 1. Fast path
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	// 2. Double-check locking
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	// 3. 建立新連線
	defaultOpts := []grpc.DialOption{
		// 服務在私有網路內通訊，預設不加密；需要 TLS 時由 opts 覆寫
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second, // 無活動時每 10 秒 Ping
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
	}
	if len(p.unary) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithChainUnaryInterceptor(p.unary...))
	}
	if len(p.stream) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithChainStreamInterceptor(p.stream...))
	}
	if len(p.callOpts) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithDefaultCallOptions(p.callOpts...))
	}

	// grpc.NewClient 不會立即連線，第一次呼叫時才建立 (Lazy connection)
	conn, err := grpc.NewClient(target, append(defaultOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.conns.Store(target, conn)
	return conn, nil
}

// load 取出仍可用的連線，已 Shutdown 的連線會被移除
func (p *Pool) load(target string) (*grpc.ClientConn, bool) {
	v, ok := p.conns.Load(target)
	if !ok {
		return nil, false
	}
	conn := v.(*grpc.ClientConn)
	if conn.GetState() == connectivity.Shutdown {
		p.conns.Delete(target)
		return nil, false
	}
	return conn, true
}

// Close 關閉連線池中的所有連線。
// 通常在應用程式關閉時呼叫。
func (p *Pool) Close() error {
	var firstErr error
	p.conns.Range(func(key, value any) bool {
		conn := value.(*grpc.ClientConn)
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conns.Delete(key)
		return true
	})
	return firstErr
}
