package config

type ServerConfig struct {
	Addr         string   `yaml:"addr" env:"ADDR, overwrite"`
	BaseURL      string   `yaml:"base_url" env:"BASE_URL, overwrite"`
	ReadTimeout  Duration `yaml:"read_timeout" env:"READ_TIMEOUT, overwrite"`
	WriteTimeout Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT, overwrite"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn" env:"DSN, overwrite"`
	RunMigrations bool   `yaml:"run_migrations" env:"RUN_MIGRATIONS, overwrite"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR, overwrite"`
	Password string `yaml:"password" env:"PASSWORD, overwrite"`
	DB       int    `yaml:"db" env:"DB, overwrite"`
}

// StorageConfig : где хранятся оригиналы и подписанные файлы
type StorageConfig struct {
	Backend string   `yaml:"backend" env:"BACKEND, overwrite"`
	RootDir string   `yaml:"root_dir" env:"ROOT_DIR, overwrite"`
	S3      S3Config `yaml:"s3" env:", prefix=S3_"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket" env:"BUCKET, overwrite"`
	Region   string `yaml:"region" env:"REGION, overwrite"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT, overwrite"`
	Local    bool   `yaml:"local" env:"LOCAL, overwrite"`
}

type JWTConfig struct {
	SecretKey       string   `yaml:"secret_key" env:"SECRET_KEY, overwrite"`
	AccessTokenTTL  Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL, overwrite"`
	RefreshTokenTTL Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL, overwrite"`
	Issuer          string   `yaml:"issuer" env:"ISSUER, overwrite"`
}

// QuotaConfig : лимит бесплатных подписей, если в settings нет значения
type QuotaConfig struct {
	FreeDocumentsLimit int `yaml:"free_documents_limit" env:"FREE_DOCUMENTS_LIMIT, overwrite"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" env:"MAX_BYTES, overwrite"`
}

// TimestampConfig : RFC 3161 TSA, пустой URL означает локальные часы
type TimestampConfig struct {
	TSAURL    string   `yaml:"tsa_url" env:"TSA_URL, overwrite"`
	PolicyOID string   `yaml:"policy_oid" env:"POLICY_OID, overwrite"`
	Timeout   Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

type RateLimitConfig struct {
	Requests int      `yaml:"requests" env:"REQUESTS, overwrite"`
	Window   Duration `yaml:"window" env:"WINDOW, overwrite"`
}

type NotificationConfig struct {
	QueueKey string   `yaml:"queue_key" env:"QUEUE_KEY, overwrite"`
	Timeout  Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

type WebhookConfig struct {
	URL     string   `yaml:"url" env:"URL, overwrite"`
	Timeout Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

type OAuthConfig struct {
	GoogleUserInfoURL string   `yaml:"google_userinfo_url" env:"GOOGLE_USERINFO_URL, overwrite"`
	Timeout           Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

type CacheConfig struct {
	TTL Duration `yaml:"ttl" env:"TTL, overwrite"`
}

type LogConfig struct {
	Env string `yaml:"env" env:"ENV, overwrite"`
}
