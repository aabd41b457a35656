package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB      DBConfig
	JWT     JWTConfig
	Server  ServerConfig
	Storage StorageConfig
	MinIO   MinIOConfig
	Mail    MailConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port          string
	FrontendURL   string
	AllowedOrigin string
}

// StorageConfig selects where uploaded file content lives. Backend is either
// "local" (UploadDir on disk) or "minio".
type StorageConfig struct {
	Backend          string
	UploadDir        string
	MaxContentLength int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "fileapp"),
			Password: getEnv("DB_PASSWORD", "fileapp_secret"),
			Name:     getEnv("DB_NAME", "fileapp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET_KEY", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
			AllowedOrigin: getEnv("ALLOWED_ORIGIN", getEnv("FRONTEND_URL", "http://localhost:3000")),
		},
		Storage: StorageConfig{
			Backend:          getEnv("STORAGE_BACKEND", "local"),
			UploadDir:        getEnv("UPLOAD_FOLDER", "uploads"),
			MaxContentLength: getEnvAsInt("MAX_CONTENT_LENGTH", 100*1024*1024),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "fileapp"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "fileapp_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "fileapp"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_SERVER", "smtp.gmail.com"),
			Port:     getEnvAsInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", getEnv("MAIL_USERNAME", "noreply@fileapp.local")),
			UseTLS:   getEnvAsBool("MAIL_USE_TLS", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
