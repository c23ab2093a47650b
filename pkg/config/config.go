package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Mongo         MongoConfig
	Store         StoreConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Listings      ListingsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Housekeeping  HousekeepingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.DocumentDriver == DocumentDriverPostgres && !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.NeedsMongo() && cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("%s is required when a mongo driver is selected", EnvMongoURI)
	}
	if cfg.Store.BlobDriver == BlobDriverGCS && cfg.GCS.BucketName == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvGCSBucket, EnvBlobDriver, BlobDriverGCS)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGROLEASE_APP_ENV" required:"true"`
	Port         string `envconfig:"AGROLEASE_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"AGROLEASE_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"AGROLEASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGROLEASE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// HTTPConfig tunes the API server and its browser-facing surface.
type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"AGROLEASE_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"AGROLEASE_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"AGROLEASE_HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"AGROLEASE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"AGROLEASE_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type ServiceConfig struct {
	Kind string `envconfig:"AGROLEASE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGROLEASE_DB_DSN"`
	Driver string `envconfig:"AGROLEASE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGROLEASE_DB_HOST"`
	LegacyPort     int    `envconfig:"AGROLEASE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGROLEASE_DB_USER"`
	LegacyPassword string `envconfig:"AGROLEASE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGROLEASE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGROLEASE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGROLEASE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGROLEASE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGROLEASE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGROLEASE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type MongoConfig struct {
	URI            string        `envconfig:"AGROLEASE_MONGO_URI"`
	Database       string        `envconfig:"AGROLEASE_MONGO_DATABASE" default:"agrolease"`
	ConnectTimeout time.Duration `envconfig:"AGROLEASE_MONGO_CONNECT_TIMEOUT" default:"10s"`
	BlobBucket     string        `envconfig:"AGROLEASE_MONGO_BLOB_BUCKET" default:"blobs"`
}

// StoreConfig selects the gateway adapters backing documents and blobs.
type StoreConfig struct {
	DocumentDriver string `envconfig:"AGROLEASE_DOCSTORE_DRIVER" default:"postgres"`
	BlobDriver     string `envconfig:"AGROLEASE_BLOBSTORE_DRIVER" default:"gcs"`
}

func (s StoreConfig) NeedsSQL() bool {
	return s.DocumentDriver == DocumentDriverPostgres || s.DocumentDriver == DocumentDriverSQLite
}

func (s StoreConfig) NeedsMongo() bool {
	return s.DocumentDriver == DocumentDriverMongo || s.BlobDriver == BlobDriverGridFS
}

func (s StoreConfig) validate() error {
	switch s.DocumentDriver {
	case DocumentDriverPostgres, DocumentDriverSQLite, DocumentDriverMongo, DocumentDriverMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDocumentDriver, s.DocumentDriver)
	}
	switch s.BlobDriver {
	case BlobDriverGCS, BlobDriverGridFS, BlobDriverMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvBlobDriver, s.BlobDriver)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AGROLEASE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGROLEASE_REDIS_ADDR"`
	Password     string        `envconfig:"AGROLEASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGROLEASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGROLEASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGROLEASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGROLEASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGROLEASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGROLEASE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGROLEASE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGROLEASE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AGROLEASE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AGROLEASE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGROLEASE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGROLEASE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGROLEASE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGROLEASE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGROLEASE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGROLEASE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGROLEASE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGROLEASE_AUTO_MIGRATE" default:"false"`
	Outbox      bool `envconfig:"AGROLEASE_FEATURE_OUTBOX" default:"true"`
}

type ListingsConfig struct {
	MaxImageMB       int    `envconfig:"AGROLEASE_MAX_IMAGE_MB" default:"10"`
	PlaceholderImage string `envconfig:"AGROLEASE_PLACEHOLDER_IMAGE_URL" default:"https://images.unsplash.com/photo-1500382017468-9049fed747ef?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80"`
}

// MaxImageBytes returns the upload ceiling for listing images.
func (l ListingsConfig) MaxImageBytes() int64 {
	if l.MaxImageMB <= 0 {
		return 10 << 20
	}
	return int64(l.MaxImageMB) << 20
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGROLEASE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AGROLEASE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGROLEASE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"AGROLEASE_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"AGROLEASE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type PubSubConfig struct {
	LeaseTopic        string `envconfig:"AGROLEASE_PUBSUB_LEASE_TOPIC" default:"agrolease-lease-events"`
	LeaseSubscription string `envconfig:"AGROLEASE_PUBSUB_LEASE_SUBSCRIPTION" default:"agrolease-lease-events-sub"`
	ListingTopic      string `envconfig:"AGROLEASE_PUBSUB_LISTING_TOPIC" default:"agrolease-listing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AGROLEASE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AGROLEASE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AGROLEASE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type HousekeepingConfig struct {
	IntervalMinutes     int `envconfig:"AGROLEASE_HOUSEKEEPING_INTERVAL_MINUTES" default:"60"`
	OutboxRetentionDays int `envconfig:"AGROLEASE_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int `envconfig:"AGROLEASE_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
