package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "healthnet/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	AdminJWTSecret string
	Log            LogConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	SMS            SMSConfig
	Verification   VerificationConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is empty-URL tolerant: the batch lease falls back to an
// in-process leaser when Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Partitions int32
}

type SMSConfig struct {
	GatewayURL      string
	AccountKey      string
	AccessToken     string
	ConversationKey string
	Timeout         time.Duration
	MessagesFile    string
}

type VerificationConfig struct {
	BatchInterval    time.Duration
	BatchConcurrency int
	BatchPageSize    int
	LeaseTTL         time.Duration
}

// FromEnv builds the configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment values
// take precedence.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:           getenv("HEALTHNET_ADDR", ":8080"),
		AdminJWTSecret: getenv("ADMIN_JWT_SECRET", "dev-secret-key-change-in-production"),
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:             getenv("DATABASE_URL", ""),
			MaxOpenConns:    getenvInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getenvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getenvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getenv("REDIS_URL", ""),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getenvList("KAFKA_BROKERS"),
			AuditTopic: getenv("AUDIT_TOPIC", "healthnet.audit"),
			Partitions: int32(getenvInt("AUDIT_TOPIC_PARTITIONS", 3)),
		},
		SMS: SMSConfig{
			GatewayURL:      getenv("SMS_GATEWAY_URL", ""),
			AccountKey:      getenv("SMS_ACCOUNT_KEY", ""),
			AccessToken:     getenv("SMS_ACCESS_TOKEN", ""),
			ConversationKey: getenv("SMS_CONVERSATION_KEY", ""),
			Timeout:         getenvDuration("SMS_TIMEOUT", 10*time.Second),
			MessagesFile:    getenv("SMS_MESSAGES_FILE", ""),
		},
		Verification: VerificationConfig{
			BatchInterval:    getenvDuration("VERIFICATION_BATCH_INTERVAL", 10*time.Minute),
			BatchConcurrency: getenvInt("VERIFICATION_BATCH_CONCURRENCY", 4),
			BatchPageSize:    getenvInt("VERIFICATION_BATCH_PAGE_SIZE", 200),
			LeaseTTL:         getenvDuration("VERIFICATION_LEASE_TTL", 30*time.Second),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getenvList splits a comma separated value, dropping blanks and repeats.
// Entries are lowercased, so it only suits case-insensitive values such as
// broker addresses.
func getenvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	return pstrings.DedupeAndTrimLower(strings.Split(val, ","))
}
