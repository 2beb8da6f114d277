package config

import "strings"

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Host = firstNonEmpty(cfg.Host, defaultDBHost)
	cfg.User = firstNonEmpty(cfg.User, cfg.Username, defaultDBUser)
	cfg.Password = firstNonEmpty(cfg.Password, defaultDBPassword)
	cfg.Name = firstNonEmpty(cfg.Name, cfg.DBName, defaultDBName)
	cfg.Charset = firstNonEmpty(cfg.Charset, defaultDBCharset)
	cfg.Loc = firstNonEmpty(cfg.Loc, defaultDBLoc)
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	if cfg.Scheme == "" {
		if cfg.TLS {
			cfg.Scheme = "rediss"
		} else {
			cfg.Scheme = "redis"
		}
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	switch trimmed {
	case "":
		return defaultEnv
	case "dev", "local":
		return defaultEnv
	case "prod":
		return productionEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Logs = strings.TrimSpace(paths.Logs)
	paths.Uploads = strings.TrimSpace(paths.Uploads)
	return paths
}

func normalizeBackend(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func mergeJWT(cfg, raw JWTConfig) JWTConfig {
	cfg.Secret = firstNonEmpty(raw.Secret, cfg.Secret)
	cfg.Issuer = firstNonEmpty(raw.Issuer, cfg.Issuer)
	if raw.AccessTokenTTLSeconds != 0 {
		cfg.AccessTokenTTLSeconds = raw.AccessTokenTTLSeconds
	}
	if raw.RefreshTokenTTLSeconds != 0 {
		cfg.RefreshTokenTTLSeconds = raw.RefreshTokenTTLSeconds
	}
	return cfg
}

func mergeLockoutPolicy(cfg, raw LockoutPolicyConfig) LockoutPolicyConfig {
	if raw.MaxFailedAttempts != 0 {
		cfg.MaxFailedAttempts = raw.MaxFailedAttempts
	}
	if raw.LockDurationMinutes != 0 {
		cfg.LockDurationMinutes = raw.LockDurationMinutes
	}
	if raw.CleanupIntervalMinutes != 0 {
		cfg.CleanupIntervalMinutes = raw.CleanupIntervalMinutes
	}
	return cfg
}

func mergeLimit(cfg, raw LimitConfig) LimitConfig {
	if raw.MaxRequests != 0 {
		cfg.MaxRequests = raw.MaxRequests
	}
	if raw.WindowSeconds != 0 {
		cfg.WindowSeconds = raw.WindowSeconds
	}
	return cfg
}

func mergeRateLimit(cfg, raw RateLimitConfig) RateLimitConfig {
	if v := normalizeBackend(raw.Backend); v != "" {
		cfg.Backend = v
	}
	cfg.IP = mergeLimit(cfg.IP, raw.IP)
	cfg.Email = mergeLimit(cfg.Email, raw.Email)
	cfg.Global = mergeLimit(cfg.Global, raw.Global)
	cfg.AuthAPI = mergeLimit(cfg.AuthAPI, raw.AuthAPI)
	cfg.AuthAdmin = mergeLimit(cfg.AuthAdmin, raw.AuthAdmin)
	return cfg
}

func mergeSession(cfg, raw SessionConfig) SessionConfig {
	if v := normalizeBackend(raw.Backend); v != "" {
		cfg.Backend = v
	}
	if raw.TTLMinutes != 0 {
		cfg.TTLMinutes = raw.TTLMinutes
	}
	if raw.RegistrationTokenMinutes != 0 {
		cfg.RegistrationTokenMinutes = raw.RegistrationTokenMinutes
	}
	if raw.SweepIntervalMinutes != 0 {
		cfg.SweepIntervalMinutes = raw.SweepIntervalMinutes
	}
	return cfg
}

func mergeMail(cfg, raw MailConfig) MailConfig {
	cfg.Enable = cfg.Enable || raw.Enable
	cfg.UseResend = cfg.UseResend || raw.UseResend
	cfg.Host = firstNonEmpty(raw.Host, cfg.Host)
	cfg.User = firstNonEmpty(raw.User, cfg.User)
	cfg.Pass = firstNonEmpty(raw.Pass, cfg.Pass)
	cfg.From = firstNonEmpty(raw.From, cfg.From)
	cfg.ReplyTo = firstNonEmpty(raw.ReplyTo, cfg.ReplyTo)
	cfg.ResendKey = firstNonEmpty(raw.ResendKey, cfg.ResendKey)
	cfg.Subject = firstNonEmpty(raw.Subject, cfg.Subject)
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	return cfg
}

func mergeStorage(cfg, raw StorageConfig) StorageConfig {
	if v := strings.ToLower(strings.TrimSpace(raw.Driver)); v != "" {
		cfg.Driver = v
	}
	if raw.MaxSizeMB != 0 {
		cfg.MaxSizeMB = raw.MaxSizeMB
	}
	cfg.Local.Dir = firstNonEmpty(raw.Local.Dir, cfg.Local.Dir)
	cfg.Local.PublicPrefix = strings.TrimRight(firstNonEmpty(raw.Local.PublicPrefix, cfg.Local.PublicPrefix), "/")

	s3 := raw.S3
	cfg.S3.Endpoint = firstNonEmpty(s3.Endpoint, cfg.S3.Endpoint)
	cfg.S3.Region = firstNonEmpty(s3.Region, cfg.S3.Region, "us-east-1")
	cfg.S3.Bucket = firstNonEmpty(s3.Bucket, cfg.S3.Bucket)
	cfg.S3.AccessKeyID = firstNonEmpty(s3.AccessKeyID, cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = firstNonEmpty(s3.SecretAccessKey, cfg.S3.SecretAccessKey)
	cfg.S3.Prefix = strings.Trim(firstNonEmpty(s3.Prefix, cfg.S3.Prefix), "/")
	cfg.S3.PublicBaseURL = strings.TrimRight(firstNonEmpty(s3.PublicBaseURL, cfg.S3.PublicBaseURL), "/")
	cfg.S3.PathStyle = cfg.S3.PathStyle || s3.PathStyle
	return cfg
}

func mergeAlert(cfg, raw AlertConfig) AlertConfig {
	cfg.BarkKey = firstNonEmpty(raw.BarkKey, cfg.BarkKey)
	cfg.BarkServer = strings.TrimRight(firstNonEmpty(raw.BarkServer, cfg.BarkServer), "/")
	cfg.Title = firstNonEmpty(raw.Title, cfg.Title)
	if raw.ThrottleMinutes > 0 {
		cfg.ThrottleMinutes = raw.ThrottleMinutes
	}
	return cfg
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
