// Package http 提供行動 App 使用的 HTTP/JSON API
package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options HTTP 介面的選項
type Options struct {
	// MetricsPath 空字串代表不提供 /metrics
	MetricsPath string
}

type Server struct {
	app       *fiber.App
	auth      *usecase.AuthUseCase
	core      *usecase.CoreUseCase
	directory *usecase.DirectoryUseCase
	history   *usecase.HistoryUseCase
	notify    *usecase.NotificationUseCase
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewServer 建立 fiber App 並註冊所有路由
func NewServer(services usecase.Services, m *metrics.Metrics, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		auth:      services.Auth,
		core:      services.Core,
		directory: services.Directory,
		history:   services.History,
		notify:    services.Notifications,
		metrics:   m,
		logger:    logger.With().Str("component", "http").Logger(),
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	s.app.Use(recover.New())
	// X-Request-ID 使用 nuid
	s.app.Use(requestid.New(requestid.Config{Generator: nuid.Next}))
	s.app.Use(s.accessLog)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.MetricsPath != "" && m != nil {
		s.app.Get(opts.MetricsPath, adaptor.HTTPHandler(m.Handler()))
	}

	api := s.app.Group("/v1")
	api.Post("/signup", s.signup)
	api.Post("/login", s.login)

	private := api.Group("", s.authenticate)
	private.Post("/logout", s.logout)
	private.Get("/me", s.profile)
	private.Get("/balance", s.balance)
	private.Post("/transactions", idempotencyKey, s.processTransaction)
	private.Get("/accounts/search", s.search)
	private.Get("/contacts/recent", s.recentContacts)
	private.Get("/history", s.listHistory)
	private.Get("/notifications", s.listNotifications)
	private.Post("/notifications/read-all", s.markAllRead)
	private.Post("/notifications/:id/read", s.markRead)
	return s
}

// App 底層的 fiber.App (測試使用 App().Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen 阻塞直到 Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting http server")
	return s.app.Listen(addr)
}

// Shutdown 等待處理中的請求完成
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
