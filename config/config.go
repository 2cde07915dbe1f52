package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	Name          string
	Version       string
	LogLevel      string
	MigrationsDir string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	JWT         JWTConfig
	S3          S3Config
	Booking     BookingConfig
	Files       FilesConfig
	RateLimit   RateLimitConfig
	Admin       AdminConfig
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderMB    int
	AllowedOrigins []string
}

type PostgresConfig struct {
	Host               string
	Port               string
	Username           string
	Password           string
	DBName             string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	MaxLifetime        time.Duration
}

type JWTConfig struct {
	SigningKey      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// BookingConfig holds the admission and slot rules used when a visit is booked.
type BookingConfig struct {
	MaxActiveVisits  int
	VisitDuration    time.Duration
	ConflictPolicy   string
	DefaultVisitType string
	Location         *time.Location
}

type FilesConfig struct {
	MaxSummaryFiles int
	MaxFileSizeMB   int
	PresignExpiry   time.Duration
}

type RateLimitConfig struct {
	BookingPerMinute int
	BookingBurst     int
}

type AdminConfig struct {
	Email    string
	Password string
}

func NewConfig() (*Config, error) {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	httpReadTimeout, err := time.ParseDuration(getEnv("HTTP_READ_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}

	httpWriteTimeout, err := time.ParseDuration(getEnv("HTTP_WRITE_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}

	postgresMaxLifetime, err := time.ParseDuration(getEnv("POSTGRES_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, err
	}

	jwtAccessTokenTTL, err := time.ParseDuration(getEnv("JWT_ACCESS_TOKEN_TTL", "15m"))
	if err != nil {
		return nil, err
	}

	jwtRefreshTokenTTL, err := time.ParseDuration(getEnv("JWT_REFRESH_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, err
	}

	visitDuration, err := time.ParseDuration(getEnv("BOOKING_VISIT_DURATION", "30m"))
	if err != nil {
		return nil, err
	}
	if visitDuration <= 0 {
		return nil, fmt.Errorf("BOOKING_VISIT_DURATION должна быть положительной: %s", visitDuration)
	}

	location, err := time.LoadLocation(getEnv("BOOKING_TIMEZONE", "Europe/Warsaw"))
	if err != nil {
		return nil, fmt.Errorf("неизвестный часовой пояс: %w", err)
	}

	presignExpiry, err := time.ParseDuration(getEnv("FILES_PRESIGN_EXPIRY", "15m"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:   getEnv("APP_ENV", "development"),
		Name:          getEnv("APP_NAME", "medcenter"),
		Version:       getEnv("APP_VERSION", "1.0.0"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		HTTP: HTTPConfig{
			Port:           getEnv("HTTP_PORT", "8080"),
			ReadTimeout:    httpReadTimeout,
			WriteTimeout:   httpWriteTimeout,
			MaxHeaderMB:    getEnvAsInt("HTTP_MAX_HEADER_MB", 1),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Postgres: PostgresConfig{
			Host:               getEnv("POSTGRES_HOST", "localhost"),
			Port:               getEnv("POSTGRES_PORT", "5432"),
			Username:           getEnv("POSTGRES_USER", "postgres"),
			Password:           getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:             getEnv("POSTGRES_DB", "medcenter"),
			SSLMode:            getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConnections:     getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("POSTGRES_MAX_IDLE_CONNECTIONS", 5),
			MaxLifetime:        postgresMaxLifetime,
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "your_secret_key"),
			AccessTokenTTL:  jwtAccessTokenTTL,
			RefreshTokenTTL: jwtRefreshTokenTTL,
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", "medcenter"),
			UseSSL:          getEnv("S3_USE_SSL", "true") == "true",
		},
		Booking: BookingConfig{
			MaxActiveVisits:  getEnvAsInt("BOOKING_MAX_ACTIVE_VISITS", 3),
			VisitDuration:    visitDuration,
			ConflictPolicy:   getEnv("BOOKING_CONFLICT_POLICY", "reject"),
			DefaultVisitType: getEnv("BOOKING_DEFAULT_VISIT_TYPE", "Wizyta kontrolna"),
			Location:         location,
		},
		Files: FilesConfig{
			MaxSummaryFiles: getEnvAsInt("FILES_MAX_SUMMARY_FILES", 5),
			MaxFileSizeMB:   getEnvAsInt("FILES_MAX_SIZE_MB", 10),
			PresignExpiry:   presignExpiry,
		},
		RateLimit: RateLimitConfig{
			BookingPerMinute: getEnvAsInt("RATE_LIMIT_BOOKING_PER_MINUTE", 10),
			BookingBurst:     getEnvAsInt("RATE_LIMIT_BOOKING_BURST", 5),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@medcenter.local"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value := 0
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return defaultValue
	}
	return values
}
