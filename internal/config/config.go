package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	AdminPort      int                   `yaml:"admin_port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Timezone       string                `yaml:"timezone"`
	JWT            JWTConfig             `yaml:"jwt"`
	Security       SecurityConfig        `yaml:"security"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
	Session        SessionConfig         `yaml:"session"`
	Mail           MailConfig            `yaml:"mail"`
	Storage        StorageConfig         `yaml:"storage"`
	Alert          AlertConfig           `yaml:"alert"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
	Migrate   bool              `yaml:"migrate"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
	Scheme   string `yaml:"scheme"`
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Uploads string `yaml:"uploads"`
}

// JWTConfig configures access/refresh token signing.
type JWTConfig struct {
	Secret                 string `yaml:"secret"`
	Issuer                 string `yaml:"issuer"`
	AccessTokenTTLSeconds  int    `yaml:"access_token_ttl_seconds"`
	RefreshTokenTTLSeconds int    `yaml:"refresh_token_ttl_seconds"`
}

// LockoutPolicyConfig is the failed-authentication policy of one application.
type LockoutPolicyConfig struct {
	MaxFailedAttempts      int `yaml:"max_failed_attempts"`
	LockDurationMinutes    int `yaml:"lock_duration_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

type SecurityConfig struct {
	API   LockoutPolicyConfig `yaml:"api"`
	Admin LockoutPolicyConfig `yaml:"admin"`
}

// LimitConfig is one fixed-window rate limit.
type LimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type RateLimitConfig struct {
	Backend   string      `yaml:"backend"` // "memory" | "redis"
	IP        LimitConfig `yaml:"ip"`
	Email     LimitConfig `yaml:"email"`
	Global    LimitConfig `yaml:"global"`
	AuthAPI   LimitConfig `yaml:"auth_api"`
	AuthAdmin LimitConfig `yaml:"auth_admin"`
}

type SessionConfig struct {
	Backend                  string `yaml:"backend"` // "memory" | "redis"
	TTLMinutes               int    `yaml:"ttl_minutes"`
	RegistrationTokenMinutes int    `yaml:"registration_token_minutes"`
	SweepIntervalMinutes     int    `yaml:"sweep_interval_minutes"`
}

// MailConfig holds mail provider settings.
type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
	Subject   string `yaml:"subject"`
}

type StorageConfig struct {
	Driver    string             `yaml:"driver"` // "local" | "s3"
	MaxSizeMB int                `yaml:"max_size_mb"`
	Local     LocalStorageConfig `yaml:"local"`
	S3        S3StorageConfig    `yaml:"s3"`
}

type LocalStorageConfig struct {
	Dir          string `yaml:"dir"`
	PublicPrefix string `yaml:"public_prefix"`
}

type S3StorageConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// AlertConfig configures Bark push alerts for locked IPs. An empty key disables them.
type AlertConfig struct {
	BarkKey         string `yaml:"bark_key"`
	BarkServer      string `yaml:"bark_server"`
	Title           string `yaml:"title"`
	ThrottleMinutes int    `yaml:"throttle_minutes"`
}

type rawAppConfig struct {
	Port               int                `yaml:"port"`
	AdminPort          int                `yaml:"admin_port"`
	DSN                string             `yaml:"dsn"`
	DatabaseURL        string             `yaml:"database_url"`
	RedisURL           string             `yaml:"redis_url"`
	Database           rawDatabaseConfig  `yaml:"database"`
	Redis              rawRedisConfig     `yaml:"redis"`
	DBHost             string             `yaml:"db_host"`
	DBPort             int                `yaml:"db_port"`
	DBUser             string             `yaml:"db_user"`
	DBPassword         string             `yaml:"db_password"`
	DBName             string             `yaml:"db_name"`
	RedisHost          string             `yaml:"redis_host"`
	RedisPort          int                `yaml:"redis_port"`
	RedisPassword      string             `yaml:"redis_password"`
	RedisDB            *int               `yaml:"redis_db"`
	Env                string             `yaml:"env"`
	Profile            string             `yaml:"profile"`
	Paths              RuntimePathsConfig `yaml:"paths"`
	LogDir             string             `yaml:"log_dir"`
	UploadDir          string             `yaml:"upload_dir"`
	AllowedOrigins     []string           `yaml:"allowed_origins"`
	CORSAllowedOrigins []string           `yaml:"cors_allowed_origins"`
	JWTSecret          string             `yaml:"jwt_secret"`
	Timezone           string             `yaml:"timezone"`
	TZ                 string             `yaml:"tz"`
	JWT                JWTConfig          `yaml:"jwt"`
	Security           SecurityConfig     `yaml:"security"`
	RateLimit          RateLimitConfig    `yaml:"rate_limit"`
	Session            SessionConfig      `yaml:"session"`
	Mail               MailConfig         `yaml:"mail"`
	Storage            StorageConfig      `yaml:"storage"`
	Alert              AlertConfig        `yaml:"alert"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
	Migrate   *bool             `yaml:"migrate"`
}

type rawRedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
	Scheme   string `yaml:"scheme"`
}

// Load reads the YAML file at configPath, applies defaults and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content into an AppConfig. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := Default()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	applyRawAppConfig(&cfg, raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no value is supplied.
func Default() AppConfig {
	cfg := AppConfig{
		Port:      defaultPort,
		AdminPort: defaultAdminPort,
		Env:       defaultEnv,
		Timezone:  defaultTimezone,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		JWT: JWTConfig{
			Issuer:                 defaultJWTIssuer,
			AccessTokenTTLSeconds:  defaultAccessTokenTTL,
			RefreshTokenTTLSeconds: defaultRefreshTokenTTL,
		},
		Security: SecurityConfig{
			API:   LockoutPolicyConfig{MaxFailedAttempts: 5, LockDurationMinutes: 30, CleanupIntervalMinutes: 60},
			Admin: LockoutPolicyConfig{MaxFailedAttempts: 3, LockDurationMinutes: 60, CleanupIntervalMinutes: 30},
		},
		RateLimit: RateLimitConfig{
			Backend:   BackendMemory,
			IP:        LimitConfig{MaxRequests: 3, WindowSeconds: 60},
			Email:     LimitConfig{MaxRequests: 5, WindowSeconds: 3600},
			Global:    LimitConfig{MaxRequests: 10, WindowSeconds: 60},
			AuthAPI:   LimitConfig{MaxRequests: 5, WindowSeconds: 60},
			AuthAdmin: LimitConfig{MaxRequests: 3, WindowSeconds: 60},
		},
		Session: SessionConfig{
			Backend:                  BackendMemory,
			TTLMinutes:               5,
			RegistrationTokenMinutes: 10,
			SweepIntervalMinutes:     5,
		},
		Mail: MailConfig{
			Port:    587,
			Subject: defaultMailSubject,
		},
		Alert: AlertConfig{
			BarkServer:      defaultBarkServer,
			Title:           defaultAlertTitle,
			ThrottleMinutes: 10,
		},
		Storage: StorageConfig{
			Driver:    StorageLocal,
			MaxSizeMB: defaultMaxUploadMB,
			Local: LocalStorageConfig{
				Dir:          defaultUploadDir,
				PublicPrefix: defaultUploadPublicURL,
			},
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if raw.AdminPort != 0 {
		cfg.AdminPort = raw.AdminPort
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Profile); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Uploads); v != "" {
		cfg.Paths.Uploads = v
	}
	if v := strings.TrimSpace(raw.UploadDir); v != "" {
		cfg.Paths.Uploads = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.JWT = mergeJWT(cfg.JWT, raw.JWT)
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWT.Secret = v
	}
	cfg.Security.API = mergeLockoutPolicy(cfg.Security.API, raw.Security.API)
	cfg.Security.Admin = mergeLockoutPolicy(cfg.Security.Admin, raw.Security.Admin)
	cfg.RateLimit = mergeRateLimit(cfg.RateLimit, raw.RateLimit)
	cfg.Session = mergeSession(cfg.Session, raw.Session)
	cfg.Mail = mergeMail(cfg.Mail, raw.Mail)
	cfg.Storage = mergeStorage(cfg.Storage, raw.Storage)
	cfg.Alert = mergeAlert(cfg.Alert, raw.Alert)

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Env = normalizeEnv(cfg.Env)
	if cfg.IsDev() && cfg.JWT.Secret == "" {
		cfg.JWT.Secret = defaultDevJWTSecret
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	db := raw.Database

	cfg.DSN = firstNonEmpty(raw.DatabaseURL, raw.DSN, db.URL, db.DSN, cfg.DSN)
	cfg.Host = firstNonEmpty(raw.DBHost, db.Host, cfg.Host)
	cfg.User = firstNonEmpty(raw.DBUser, db.Username, db.User, cfg.User)
	cfg.Password = firstNonEmpty(raw.DBPassword, db.Password, cfg.Password)
	cfg.Name = firstNonEmpty(raw.DBName, db.DBName, db.Name, cfg.Name)
	cfg.Charset = firstNonEmpty(db.Charset, cfg.Charset)
	cfg.Loc = firstNonEmpty(db.Loc, cfg.Loc)
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if raw.DBPort != 0 {
		cfg.Port = raw.DBPort
	}
	if db.ParseTime != nil {
		cfg.ParseTime = *db.ParseTime
	}
	if db.Migrate != nil {
		cfg.Migrate = *db.Migrate
	}
	if db.Params != nil {
		cfg.Params = copyStringMap(db.Params)
	}

	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	rc := raw.Redis

	cfg.URL = firstNonEmpty(raw.RedisURL, rc.URL, cfg.URL)
	cfg.Host = firstNonEmpty(raw.RedisHost, rc.Host, cfg.Host)
	cfg.Username = firstNonEmpty(rc.Username, cfg.Username)
	cfg.Password = firstNonEmpty(raw.RedisPassword, rc.Password, cfg.Password)
	cfg.Scheme = firstNonEmpty(rc.Scheme, cfg.Scheme)
	if rc.Port != 0 {
		cfg.Port = rc.Port
	}
	if raw.RedisPort != 0 {
		cfg.Port = raw.RedisPort
	}
	if rc.DB != nil {
		cfg.DB = *rc.DB
	}
	if raw.RedisDB != nil {
		cfg.DB = *raw.RedisDB
	}
	if rc.TLS != nil {
		cfg.TLS = *rc.TLS
	}

	return normalizeRedisConfig(cfg)
}

func (c *AppConfig) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d, expected 1-65535", c.Port))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid admin_port %d, expected 1-65535", c.AdminPort))
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 bytes"))
	}
	if c.JWT.AccessTokenTTLSeconds <= 0 || c.JWT.RefreshTokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("jwt token ttl must be positive"))
	}
	for name, p := range map[string]LockoutPolicyConfig{"security.api": c.Security.API, "security.admin": c.Security.Admin} {
		if p.MaxFailedAttempts <= 0 || p.LockDurationMinutes <= 0 || p.CleanupIntervalMinutes <= 0 {
			errs = append(errs, fmt.Errorf("%s values must be positive", name))
		}
	}
	for name, l := range map[string]LimitConfig{
		"rate_limit.ip":         c.RateLimit.IP,
		"rate_limit.email":      c.RateLimit.Email,
		"rate_limit.global":     c.RateLimit.Global,
		"rate_limit.auth_api":   c.RateLimit.AuthAPI,
		"rate_limit.auth_admin": c.RateLimit.AuthAdmin,
	} {
		if l.MaxRequests <= 0 || l.WindowSeconds <= 0 {
			errs = append(errs, fmt.Errorf("%s values must be positive", name))
		}
	}
	if !validBackend(c.RateLimit.Backend) {
		errs = append(errs, fmt.Errorf("invalid rate_limit.backend %q", c.RateLimit.Backend))
	}
	if !validBackend(c.Session.Backend) {
		errs = append(errs, fmt.Errorf("invalid session.backend %q", c.Session.Backend))
	}
	if c.Session.TTLMinutes <= 0 || c.Session.RegistrationTokenMinutes <= 0 || c.Session.SweepIntervalMinutes <= 0 {
		errs = append(errs, errors.New("session values must be positive"))
	}
	switch c.Storage.Driver {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("storage.max_size_mb must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	return errors.Join(errs...)
}

func validBackend(v string) bool {
	return v == BackendMemory || v == BackendRedis
}

// IsDev reports whether the development profile is active.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// IsProduction reports whether the production profile is active.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, productionEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// UploadDir is where the local storage driver writes profile images.
func (c *AppConfig) UploadDir() string {
	if c == nil {
		return ResolveRuntimePath("", defaultUploadDir)
	}
	return ResolveRuntimePath(firstNonEmpty(c.Paths.Uploads, c.Storage.Local.Dir), defaultUploadDir)
}

func (c JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

func (c JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSeconds) * time.Second
}

func (c LockoutPolicyConfig) LockDuration() time.Duration {
	return time.Duration(c.LockDurationMinutes) * time.Minute
}

func (c LockoutPolicyConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c LimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c SessionConfig) RegistrationTokenTTL() time.Duration {
	return time.Duration(c.RegistrationTokenMinutes) * time.Minute
}

func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

func (c AlertConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleMinutes) * time.Minute
}

func (c StorageConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}
