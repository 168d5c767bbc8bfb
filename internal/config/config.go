package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	MongoURI string
	DBName   string

	JWTSecret            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	OAuthAssertionSecret string

	RedisAddr      string
	RedisPassword  string
	LoginRateLimit int

	UploadDir   string
	AdminUIDir  string
	PublicUIDir string

	MaxMasterAdmins int
	MaxAdmins       int
	AuditQueueSize  int
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Env:      getEnvOrDefault("APP_ENV", "dev"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),

		MongoURI: getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnvOrDefault("DB_NAME", "storefront"),

		JWTSecret:            getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:       getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL:      getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		OAuthAssertionSecret: getEnvOrDefault("OAUTH_ASSERTION_SECRET", ""),

		RedisAddr:      getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:  getEnvOrDefault("REDIS_PASSWORD", ""),
		LoginRateLimit: getIntEnv("LOGIN_RATE_LIMIT", 10),

		UploadDir:   getEnvOrDefault("UPLOAD_DIR", "./public"),
		AdminUIDir:  getEnvOrDefault("ADMIN_UI_DIR", "./web/admin"),
		PublicUIDir: getEnvOrDefault("PUBLIC_UI_DIR", "./web/public"),

		MaxMasterAdmins: getIntEnv("MAX_MASTER_ADMINS", 2),
		MaxAdmins:       getIntEnv("MAX_ADMINS", 10),
		AuditQueueSize:  getIntEnv("AUDIT_QUEUE_SIZE", 256),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "prod"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue)) * unit
}
