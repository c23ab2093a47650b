package config

const (
	EnvPrefix = "AGROLEASE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "AGROLEASE_APP_ENV"
	EnvPort                   = "AGROLEASE_APP_PORT"
	EnvDBDSN                  = "AGROLEASE_DB_DSN"
	EnvDBHost                 = "AGROLEASE_DB_HOST"
	EnvDBUser                 = "AGROLEASE_DB_USER"
	EnvDBName                 = "AGROLEASE_DB_NAME"
	EnvMongoURI               = "AGROLEASE_MONGO_URI"
	EnvDocumentDriver         = "AGROLEASE_DOCSTORE_DRIVER"
	EnvBlobDriver             = "AGROLEASE_BLOBSTORE_DRIVER"
	EnvRedisURL               = "AGROLEASE_REDIS_URL"
	EnvJWTSecret              = "AGROLEASE_JWT_SECRET"
	EnvJWTIssuer              = "AGROLEASE_JWT_ISSUER"
	EnvJWTExpMins             = "AGROLEASE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AGROLEASE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "AGROLEASE_GCP_PROJECT_ID"
	EnvGCSBucket              = "AGROLEASE_GCS_BUCKET_NAME"
	EnvPubSubLeaseTopic       = "AGROLEASE_PUBSUB_LEASE_TOPIC"
	EnvUseSQLite              = "AGROLEASE_USE_SQLITE"
	EnvCORSOrigins            = "AGROLEASE_CORS_ORIGINS"
)

const (
	DocumentDriverPostgres = "postgres"
	DocumentDriverSQLite   = "sqlite"
	DocumentDriverMongo    = "mongo"
	DocumentDriverMemory   = "memory"

	BlobDriverGCS    = "gcs"
	BlobDriverGridFS = "gridfs"
	BlobDriverMemory = "memory"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
