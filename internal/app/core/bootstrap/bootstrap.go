// Package bootstrap 依設定組裝儲存、帳本、通知與 use case
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	boltadapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/bolt"
	memoryadapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/memory"
	mysqladapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/mysql"
	natsadapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/nats"
	postgresadapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/metrics"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-nox-ledger/internal/config"
	"github.com/JoeShih716/go-nox-ledger/pkg/mysql"
	"github.com/JoeShih716/go-nox-ledger/pkg/postgres"
	"github.com/JoeShih716/go-nox-ledger/pkg/wal"
)

// App 組裝完成的服務
type App struct {
	Services usecase.Services
	Metrics  *metrics.Metrics

	logger  zerolog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// stores 儲存後端提供的 port
type stores struct {
	ledger        usecase.Ledger
	accounts      usecase.AccountRepository
	transactions  usecase.TransactionRepository
	notifications usecase.NotificationRepository
}

// New 依設定建立 App，失敗時已開啟的資源會被關閉
//
// 參數:
//
//	ctx: 只用於連線與 migration
//	cfg: 已補完預設值的設定
//	logger: 根 Logger
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{Metrics: metrics.New(), logger: logger}
	if err := app.build(ctx, cfg); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context, cfg config.Config) error {
	logger := app.logger

	st, err := app.openStores(ctx, cfg)
	if err != nil {
		return err
	}
	credentials, err := app.openCredentials(cfg)
	if err != nil {
		return err
	}
	feed, err := app.openFeed(cfg)
	if err != nil {
		return err
	}

	dispatcher := usecase.NewDispatcher(st.accounts, st.notifications, feed, app.Metrics, logger, cfg.Notifications.QueueSize)
	dispatcher.Start()
	app.onClose("dispatcher", dispatcher.Stop)

	app.Services = usecase.Services{
		Auth:          usecase.NewAuthUseCase(st.accounts, credentials, nil, cfg.Auth.SessionTTL, cfg.Auth.BcryptCost, logger),
		Core:          usecase.NewCoreUseCase(st.ledger, st.accounts, dispatcher, app.Metrics, logger),
		Directory:     usecase.NewDirectoryUseCase(st.accounts, st.transactions, app.Metrics),
		History:       usecase.NewHistoryUseCase(st.accounts, st.transactions),
		Notifications: usecase.NewNotificationUseCase(st.notifications, feed),
	}
	return nil
}

func (app *App) onClose(name string, fn func() error) {
	app.closers = append(app.closers, namedCloser{name: name, close: fn})
}

// Close 以開啟的相反順序釋放資源：先停 dispatcher，最後關資料庫
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		c := app.closers[i]
		if err := c.close(); err != nil {
			app.logger.Error().Err(err).Str("resource", c.name).Msg("close failed")
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return app.openMemory(cfg)
	case config.DriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		app.onClose("mysql", client.Close)

		store := mysqladapter.NewStore(client)
		if cfg.Store.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate mysql: %w", err)
			}
		}
		return &stores{
			ledger:        mysqladapter.NewMySQLLedger(client, app.logger),
			accounts:      store,
			transactions:  store,
			notifications: store,
		}, nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres, app.logger)
		if err != nil {
			return nil, err
		}
		app.onClose("postgres", func() error { pool.Close(); return nil })

		store := postgresadapter.NewStore(pool)
		if cfg.Store.Migrate {
			applied, err := store.Migrate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			app.logger.Info().Strs("applied", applied).Msg("postgres migrations")
		}
		return &stores{
			ledger:        postgresadapter.NewLedger(pool, app.logger),
			accounts:      store,
			transactions:  store,
			notifications: store,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (app *App) openMemory(cfg config.Config) (*stores, error) {
	var w *wal.WAL
	if cfg.Store.WALPath != "" {
		var err error
		w, err = wal.NewWAL(cfg.Store.WALPath)
		if err != nil {
			return nil, fmt.Errorf("open wal: %w", err)
		}
		app.onClose("wal", w.Close)
	}
	store, err := memoryadapter.NewStore(w)
	if err != nil {
		return nil, err
	}

	var ledger usecase.Ledger
	switch cfg.Store.Ledger {
	case config.LedgerLMAX:
		lmax := memoryadapter.NewLMAXLedger(store, cfg.Store.LMAXBuffer)
		lmax.Start()
		app.onClose("lmax_ledger", lmax.Stop)
		ledger = lmax
	default:
		ledger = memoryadapter.NewMutexLedger(store)
	}
	app.logger.Info().Str("ledger", cfg.Store.Ledger).Str("wal", cfg.Store.WALPath).Msg("memory ledger ready")

	return &stores{
		ledger:        ledger,
		accounts:      store,
		transactions:  store,
		notifications: memoryadapter.NewNotificationStore(),
	}, nil
}

func (app *App) openCredentials(cfg config.Config) (usecase.CredentialStore, error) {
	if cfg.Auth.Store != config.AuthStoreBolt {
		return memoryadapter.NewCredentialStore(), nil
	}
	store, err := boltadapter.Open(cfg.Auth.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", cfg.Auth.BoltPath, err)
	}
	app.onClose("bolt", store.Close)
	return store, nil
}

func (app *App) openFeed(cfg config.Config) (usecase.NotificationFeed, error) {
	if cfg.Notifications.Feed != config.FeedNATS {
		return memoryadapter.NewHub(), nil
	}
	conn, err := natsadapter.Connect(cfg.Notifications.NATSURL, app.logger)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	app.onClose("nats", func() error { return conn.Drain() })
	return natsadapter.NewFeed(conn, cfg.Notifications.SubjectPrefix, app.logger), nil
}
