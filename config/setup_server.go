package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix : префикс переменных окружения, перекрывающих config.yaml
const EnvPrefix = "SIGN_"

type AppConfig struct {
	Server        ServerConfig       `yaml:"server" env:", prefix=SERVER_"`
	Database      DatabaseConfig     `yaml:"database" env:", prefix=DATABASE_"`
	Redis         RedisConfig        `yaml:"redis" env:", prefix=REDIS_"`
	Storage       StorageConfig      `yaml:"storage" env:", prefix=STORAGE_"`
	JWT           JWTConfig          `yaml:"jwt" env:", prefix=JWT_"`
	Quota         QuotaConfig        `yaml:"quota" env:", prefix=QUOTA_"`
	Upload        UploadConfig       `yaml:"upload" env:", prefix=UPLOAD_"`
	Timestamp     TimestampConfig    `yaml:"timestamp" env:", prefix=TIMESTAMP_"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit" env:", prefix=RATE_LIMIT_"`
	Notifications NotificationConfig `yaml:"notifications" env:", prefix=NOTIFICATIONS_"`
	Webhook       WebhookConfig      `yaml:"webhook" env:", prefix=WEBHOOK_"`
	OAuth         OAuthConfig        `yaml:"oauth" env:", prefix=OAUTH_"`
	Cache         CacheConfig        `yaml:"cache" env:", prefix=CACHE_"`
	Log           LogConfig          `yaml:"log" env:", prefix=LOG_"`
}

// DefaultConfig : значения, которые config.yaml и окружение могут перекрыть
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:         ":8080",
			BaseURL:      "http://localhost:8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Database: DatabaseConfig{RunMigrations: true},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Storage:  StorageConfig{Backend: "local", RootDir: "uploads"},
		JWT: JWTConfig{
			AccessTokenTTL:  Duration{15 * time.Minute},
			RefreshTokenTTL: Days(7),
			Issuer:          "Signature-web-server",
		},
		Quota:         QuotaConfig{FreeDocumentsLimit: 5},
		Upload:        UploadConfig{MaxBytes: 16 << 20},
		Timestamp:     TimestampConfig{Timeout: Duration{5 * time.Second}},
		RateLimit:     RateLimitConfig{Requests: 10, Window: Duration{time.Minute}},
		Notifications: NotificationConfig{QueueKey: "notifications:signature_requests", Timeout: Duration{3 * time.Second}},
		Webhook:       WebhookConfig{Timeout: Duration{5 * time.Second}},
		OAuth: OAuthConfig{
			GoogleUserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			Timeout:           Duration{5 * time.Second},
		},
		Cache: CacheConfig{TTL: Duration{10 * time.Minute}},
		Log:   LogConfig{Env: "development"},
	}
}

// LoadConfig : читает yaml (если файл есть) и перекрывает значения переменными SIGN_*
func LoadConfig(ctx context.Context, path string) (*AppConfig, error) {
	return loadConfig(ctx, path, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, path string, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			zap.L().Warn("файл конфигурации не найден, используются значения по умолчанию", zap.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
			}
		}
	}

	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate : проверяет обязательные параметры
func (c *AppConfig) Validate() error {
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("jwt.secret_key должен быть не короче 32 символов")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn не задан")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.RootDir == "" {
			return fmt.Errorf("storage.root_dir не задан")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket не задан")
		}
	default:
		return fmt.Errorf("неизвестный storage.backend: %q", c.Storage.Backend)
	}
	if c.Quota.FreeDocumentsLimit < 0 {
		return fmt.Errorf("quota.free_documents_limit не может быть отрицательным")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes должен быть положительным")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("rate_limit должен задавать положительные requests и window")
	}
	return nil
}

func SetupServer(cfg ServerConfig) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
	}

	return server, router
}

func SetupDatabase(cfg DatabaseConfig) (*Database, error) {
	return NewDatabaseConnection("postgres", cfg.DSN)
}

func SetupRedis(ctx context.Context, cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(ctx, cfg)
}
