package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	Port        string
	FrontendURL string
	BackendURL  string
	JWTSecret   string
	// CookieDomain scopes the auth cookie; empty means the request host.
	CookieDomain string

	DBDriver string // mongo | memory
	MongoURI string
	MongoDB  string

	RedisAddress    string
	RedisPassword   string
	IssueLimitQueue string
	IssueDailyLimit int
	RateLimitWindow time.Duration
	RateLimitMax    int

	StorageDriver  string // local | minio
	UploadDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	EmailHost     string
	EmailPort     string
	EmailUser     string
	EmailPassword string
	EmailFrom     string
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

// Load reads the configuration from the environment.
func Load() Config {
	port := env("PORT", "5000")
	return Config{
		Env:          env("GO_ENV", "development"),
		Port:         port,
		FrontendURL:  env("FRONTEND_URL", "http://localhost:3000"),
		BackendURL:   env("BACKEND_URL", "http://localhost:"+port),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		CookieDomain: os.Getenv("DOMAIN"),

		DBDriver: env("DB_DRIVER", "mongo"),
		MongoURI: os.Getenv("MONGODB_URI"),
		MongoDB:  env("MONGODB_DB", "civicsync"),

		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		IssueLimitQueue: env("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		IssueDailyLimit: envInt("ISSUE_DAILY_LIMIT", 10),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 15*60*1000)) * time.Millisecond,
		RateLimitMax:    envInt("RATE_LIMIT_MAX_REQUESTS", 100),

		StorageDriver:  env("STORAGE_DRIVER", "local"),
		UploadDir:      env("UPLOAD_DIR", "uploads"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    env("MINIO_BUCKET", "civicsync"),
		MinioUseSSL:    envBool("MINIO_USE_SSL", false),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),

		EmailHost:     os.Getenv("EMAIL_HOST"),
		EmailPort:     env("EMAIL_PORT", "587"),
		EmailUser:     os.Getenv("EMAIL_USER"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
