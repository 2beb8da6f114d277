package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort      = 8080
	defaultAdminPort = 8081
	defaultEnv       = "development"
	productionEnv    = "production"
	defaultTimezone  = "Asia/Seoul"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "routepick"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultJWTIssuer       = "routepick"
	defaultDevJWTSecret    = "routepick-development-secret-change-me-0123456789"
	defaultAccessTokenTTL  = 3600
	defaultRefreshTokenTTL = 30 * 24 * 3600

	BackendMemory = "memory"
	BackendRedis  = "redis"

	StorageLocal = "local"
	StorageS3    = "s3"

	defaultUploadDir       = "uploads/profiles"
	defaultUploadPublicURL = "/api/files/profiles"
	defaultMaxUploadMB     = 5

	defaultMailSubject = "[RoutePick] Email verification code"

	defaultBarkServer = "https://api.day.app"
	defaultAlertTitle = "RoutePick"
)
