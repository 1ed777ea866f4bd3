// Package config 載入服務設定：YAML 檔，接著 .env 與 NOX_* 環境變數覆寫，最後補上預設值
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-nox-ledger/pkg/mysql"
	"github.com/JoeShih716/go-nox-ledger/pkg/postgres"
)

// 儲存後端
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// 記憶體帳本實作
const (
	LedgerMutex = "mutex"
	LedgerLMAX  = "lmax"
)

// 通知推播通道
const (
	FeedMemory = "memory"
	FeedNATS   = "nats"
)

// 憑證儲存
const (
	AuthStoreMemory = "memory"
	AuthStoreBolt   = "bolt"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Store         StoreConfig         `yaml:"store"`
	MySQL         mysql.Config        `yaml:"mysql"`
	Postgres      postgres.Config     `yaml:"postgres"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type StoreConfig struct {
	// Driver: memory | mysql | postgres
	Driver string `yaml:"driver"`
	// Ledger: mutex | lmax (只用於 memory)
	Ledger string `yaml:"ledger"`
	// WALPath 空字串代表不寫 WAL (只用於 memory)
	WALPath    string `yaml:"wal_path"`
	LMAXBuffer int    `yaml:"lmax_buffer"`
	// Migrate 啟動時建立資料表
	Migrate bool `yaml:"migrate"`
}

type AuthConfig struct {
	// Store: memory | bolt
	Store      string        `yaml:"store"`
	BoltPath   string        `yaml:"bolt_path"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type NotificationsConfig struct {
	// Feed: memory | nats
	Feed          string `yaml:"feed"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	QueueSize     int    `yaml:"queue_size"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 讀取設定
//
// 參數:
//
//	path: YAML 設定檔路徑，檔案不存在時只使用環境變數與預設值
//
// 回傳:
//
//	Config: 補完預設值的設定
//	error: 檔案格式錯誤或設定值不合法
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env 可以不存在 (正式環境直接使用系統環境變數)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	cfg = cfg.withDefaults()
	return cfg, cfg.Validate()
}

// applyEnv 以 NOX_* 環境變數覆寫設定
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("NOX_GRPC_ADDR", &cfg.Server.GRPCAddr)
	str("NOX_HTTP_ADDR", &cfg.Server.HTTPAddr)
	str("NOX_LOG_LEVEL", &cfg.Log.Level)
	flag("NOX_LOG_PRETTY", &cfg.Log.Pretty)

	str("NOX_STORE_DRIVER", &cfg.Store.Driver)
	str("NOX_STORE_LEDGER", &cfg.Store.Ledger)
	str("NOX_WAL_PATH", &cfg.Store.WALPath)
	flag("NOX_STORE_MIGRATE", &cfg.Store.Migrate)

	str("NOX_MYSQL_HOST", &cfg.MySQL.Host)
	num("NOX_MYSQL_PORT", &cfg.MySQL.Port)
	str("NOX_MYSQL_USER", &cfg.MySQL.User)
	str("NOX_MYSQL_PASSWORD", &cfg.MySQL.Password)
	str("NOX_MYSQL_DB_NAME", &cfg.MySQL.DBName)
	str("NOX_POSTGRES_DSN", &cfg.Postgres.DSN)

	str("NOX_AUTH_STORE", &cfg.Auth.Store)
	str("NOX_AUTH_BOLT_PATH", &cfg.Auth.BoltPath)
	dur("NOX_SESSION_TTL", &cfg.Auth.SessionTTL)
	num("NOX_BCRYPT_COST", &cfg.Auth.BcryptCost)

	str("NOX_NOTIFICATIONS_FEED", &cfg.Notifications.Feed)
	str("NOX_NATS_URL", &cfg.Notifications.NATSURL)
	flag("NOX_METRICS_ENABLED", &cfg.Metrics.Enabled)

	return errors.Join(errs...)
}

// withDefaults 補全未設定的欄位
func (c Config) withDefaults() Config {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.Ledger == "" {
		c.Store.Ledger = LedgerMutex
	}
	if c.Store.LMAXBuffer == 0 {
		c.Store.LMAXBuffer = 4096
	}
	if c.Auth.Store == "" {
		c.Auth.Store = AuthStoreMemory
	}
	if c.Auth.BoltPath == "" {
		c.Auth.BoltPath = "auth.db"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Notifications.Feed == "" {
		c.Notifications.Feed = FeedMemory
	}
	if c.Notifications.QueueSize == 0 {
		c.Notifications.QueueSize = 1024
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	return c
}

// Validate 檢查列舉值與必要欄位
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
		if c.Store.Ledger != LedgerMutex && c.Store.Ledger != LedgerLMAX {
			return fmt.Errorf("store.ledger must be %q or %q, got %q", LedgerMutex, LedgerLMAX, c.Store.Ledger)
		}
	case DriverMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return fmt.Errorf("mysql.host and mysql.db_name are required for the mysql driver")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Auth.Store {
	case AuthStoreMemory, AuthStoreBolt:
	default:
		return fmt.Errorf("unknown auth.store %q", c.Auth.Store)
	}

	switch c.Notifications.Feed {
	case FeedMemory:
	case FeedNATS:
		if c.Notifications.NATSURL == "" {
			return fmt.Errorf("notifications.nats_url is required for the nats feed")
		}
	default:
		return fmt.Errorf("unknown notifications.feed %q", c.Notifications.Feed)
	}
	return nil
}
