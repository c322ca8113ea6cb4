package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	StorageDriverGCS    = "gcs"
	StorageDriverMemory = "memory"
)

const (
	EnvAppEnv        = "CATALOG_APP_ENV"
	EnvPort          = "CATALOG_APP_PORT"
	EnvDBDSN         = "CATALOG_DB_DSN"
	EnvDBDriver      = "CATALOG_DB_DRIVER"
	EnvDBHost        = "CATALOG_DB_HOST"
	EnvDBUser        = "CATALOG_DB_USER"
	EnvDBName        = "CATALOG_DB_NAME"
	EnvRedisURL      = "CATALOG_REDIS_URL"
	EnvGCSBucket     = "CATALOG_GCS_BUCKET_NAME"
	EnvStorageDriver = "CATALOG_STORAGE_DRIVER"
	EnvAdminSecret   = "CATALOG_ADMIN_JWT_SECRET"
	EnvCORSOrigins   = "CATALOG_CORS_ALLOWED_ORIGINS"
	EnvMaxUploadMB   = "CATALOG_MEDIA_MAX_UPLOAD_MB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
