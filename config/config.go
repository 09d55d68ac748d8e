package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Port        string
	MetricsPort string
}

type DatabaseConfig struct {
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	// PublicBaseURL overrides the derived public URL prefix, e.g. a CDN origin.
	PublicBaseURL string
}

type AuthConfig struct {
	JWTSecret string
}

type UploadConfig struct {
	// MaxFileSize is the declared-size ceiling in bytes.
	MaxFileSize      int64
	AllowedMimeTypes []string
	PresignExpiry    time.Duration
}

type KafkaConfig struct {
	Brokers      string
	ResultsTopic string
	GroupID      string
}

// DefaultAllowedMimeTypes covers the asset kinds the generation pipeline accepts.
var DefaultAllowedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/quicktime",
	"application/pdf",
}

const defaultMaxFileSizeMB = 50

func LoadConfig() *Config {
	// .env is optional outside local development
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			MetricsPort: getEnv("METRICS_PORT", "2112"),
		},
		Database: DatabaseConfig{
			DBUser:     os.Getenv("DB_USER"),
			DBPassword: os.Getenv("DB_PASSWORD"),
			DBName:     os.Getenv("DB_NAME"),
			DBHost:     getEnv("DB_HOST", "localhost"),
			DBPort:     getEnv("DB_PORT", "5432"),
		},
		MinIO: MinIOConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:          getEnvBool("MINIO_USE_SSL", false),
			BucketName:      getEnv("MINIO_BUCKET_NAME", "materials"),
			PublicBaseURL:   os.Getenv("MINIO_PUBLIC_BASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Upload: UploadConfig{
			MaxFileSize:      int64(getEnvInt("UPLOAD_MAX_FILE_SIZE_MB", defaultMaxFileSizeMB)) << 20,
			AllowedMimeTypes: getEnvList("UPLOAD_ALLOWED_MIME_TYPES", DefaultAllowedMimeTypes),
			PresignExpiry:    time.Duration(getEnvInt("UPLOAD_PRESIGN_EXPIRY_MINUTES", 15)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:      os.Getenv("KAFKA_BROKERS"),
			ResultsTopic: getEnv("KAFKA_RESULTS_TOPIC", "material.results"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "material-service"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
