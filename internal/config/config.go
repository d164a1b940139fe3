package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sanisidro/fiscal-api/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Directory DirectoryConfig
	Import    ImportConfig
	Upload    UploadConfig
	ApiKey    ApiKeyConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// PublicURL is the externally visible base URL of this API. The local
	// storage backend builds blob and upload URLs from it.
	PublicURL string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// StorageConfig selects and configures the blob storage backend
type StorageConfig struct {
	// Mode is one of "local", "azure", "s3" or "gcs"
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	S3                    S3Config
	GCS                   GCSConfig
	MaxUploadSizeMB       int64
	// SignedURLTTL is the lifetime of signed upload URLs (seconds)
	SignedURLTTL int
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	UsePathStyle    bool
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicURL       string
}

// DirectoryConfig selects where imported accounts and fiscal documents live
type DirectoryConfig struct {
	// Mode is "sql" (gorm) or "firebase" (Firebase Authentication + Firestore)
	Mode                    string
	FirebaseProjectID       string
	FirebaseCredentialsFile string
}

// ImportConfig controls the CSV account import
type ImportConfig struct {
	EmailDomain    string
	Collection     string
	UpdateExisting bool
	// Enabled turns on the scheduled import of CSV blobs under Prefix
	Enabled      bool
	Cron         string
	Prefix       string
	ReportPrefix string
	// Timeout bounds one scheduled run (seconds)
	Timeout int
	// MaxBodySizeMB caps the JSON body of POST /api/v1/fiscales/import
	MaxBodySizeMB int64
}

// UploadConfig controls client-side uploads
type UploadConfig struct {
	TokenSecret       string
	TokenTTL          int // seconds
	AllowedImageTypes []string
	MaxImageSizeMB    int64
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
	// BlobContentSecurityPolicy replaces the API policy on /blobs/* so
	// uploaded files cannot run script in the API origin
	BlobContentSecurityPolicy string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the rate limit per client IP
	RequestsPerMinute int
	// UploadsPerMinute is a separate per-IP budget for requests that write
	// blobs. Zero disables it.
	UploadsPerMinute int
	WhitelistIPs     []string
	// WhitelistPaths bypass rate limiting for reads (e.g., /health). A
	// trailing /* matches a prefix. Blob writes are never exempt by path.
	WhitelistPaths []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// SignedURLTTLDuration returns the signed upload URL lifetime as duration
func (s *StorageConfig) SignedURLTTLDuration() time.Duration {
	return time.Duration(s.SignedURLTTL) * time.Second
}

// TokenTTLDuration returns the client upload token lifetime as duration
func (u *UploadConfig) TokenTTLDuration() time.Duration {
	return time.Duration(u.TokenTTL) * time.Second
}

// TimeoutDuration returns the scheduled import timeout as duration
func (i *ImportConfig) TimeoutDuration() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}

// IsDevelopment reports whether the app runs in a development environment
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development" || a.Environment == "local" || a.Environment == ""
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Storage.CloudConnectionString == "" {
		cfg.Storage.CloudConnectionString = v.GetString("AZURE_STORAGE_CONNECTION_STRING")
	}
	if cfg.Storage.S3.AccessKeyID == "" {
		cfg.Storage.S3.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	}
	if cfg.Storage.S3.SecretAccessKey == "" {
		cfg.Storage.S3.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	}
	if cfg.Directory.FirebaseCredentialsFile == "" {
		cfg.Directory.FirebaseCredentialsFile = v.GetString("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.Directory.FirebaseProjectID == "" {
		cfg.Directory.FirebaseProjectID = v.GetString("FIREBASE_PROJECT_ID")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used only when USE_AZURE_KEY_VAULT=true and the environment is
// staging or production; otherwise secrets stay as loaded from the environment.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	if err := applySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// secretSource is the subset of secrets.Provider used to resolve config secrets
type secretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

// applySecrets overlays vault secrets on the loaded config. Missing secrets
// keep whatever value the environment supplied; a failing vault is an error.
func applySecrets(ctx context.Context, cfg *Config, provider secretSource) error {
	lookups := []struct {
		secret string
		env    string
		target *string
	}{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.ApiKey.Value},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"s3-access-key-id", "STORAGE_S3_ACCESSKEYID", &cfg.Storage.S3.AccessKeyID},
		{"s3-secret-access-key", "STORAGE_S3_SECRETACCESSKEY", &cfg.Storage.S3.SecretAccessKey},
		{"upload-token-secret", "UPLOAD_TOKENSECRET", &cfg.Upload.TokenSecret},
	}

	for _, l := range lookups {
		value, err := provider.GetSecretOrEnv(ctx, l.secret, l.env)
		if errors.Is(err, secrets.ErrSecretNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load secret %s: %w", l.secret, err)
		}
		if value != "" {
			*l.target = value
		}
	}

	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Fiscal API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicUrl", "http://localhost:8080")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fiscal")
	v.SetDefault("database.user", "fiscal_user")
	v.SetDefault("database.password", "fiscal_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "./fiscal.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "blobs")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.maxUploadSizeMB", 50)
	v.SetDefault("storage.signedUrlTTL", 900) // 15 minutes

	// Directory defaults
	v.SetDefault("directory.mode", "sql")

	// Import defaults
	v.SetDefault("import.emailDomain", "fiscal.app")
	v.SetDefault("import.collection", "fiscales")
	v.SetDefault("import.updateExisting", false)
	v.SetDefault("import.enabled", false)
	v.SetDefault("import.cron", "0 */5 * * * *") // every 5 minutes (with seconds field)
	v.SetDefault("import.prefix", "imports/")
	v.SetDefault("import.reportPrefix", "imports/reports/")
	v.SetDefault("import.timeout", 600)
	v.SetDefault("import.maxBodySizeMB", 16)

	// Upload defaults
	v.SetDefault("upload.tokenTTL", 3600)
	v.SetDefault("upload.allowedImageTypes", []string{"image/jpeg", "image/png", "image/gif", "image/webp"})
	v.SetDefault("upload.maxImageSizeMB", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 30)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults match what the browser helpers send
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "OPTIONS", "PATCH", "DELETE", "POST", "PUT"})
	v.SetDefault("cors.allowedHeaders", []string{
		"X-CSRF-Token", "X-Requested-With", "Accept", "Accept-Version", "Content-Length",
		"Content-MD5", "Content-Type", "Date", "X-Api-Version", "X-API-Key",
	})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.blobContentSecurityPolicy", "default-src 'none'; img-src 'self' data:; media-src 'self'; style-src 'unsafe-inline'; sandbox")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.uploadsPerMinute", 30)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
