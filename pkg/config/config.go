package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	TCPServer   TCPServerConfig
	HTTPServer  HTTPServerConfig
	Aggregation AggregationConfig
	SMTP        SMTPConfig
	Perception  PerceptionConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers        []string
	TopicTelemetry string
	TopicAlerts    string
	NumPartitions  int
}

type TCPServerConfig struct {
	Port              int
	MaxConnections    int
	IdentifyTimeout   time.Duration
	InactivityTimeout time.Duration
}

type HTTPServerConfig struct {
	Addr string
}

type AggregationConfig struct {
	HourlyDelay time.Duration
	DailyTime   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// PerceptionConfig tunes the anomaly detection and prognostics models.
type PerceptionConfig struct {
	Contamination  float64
	Estimators     int
	SampleSize     int
	Seed           int64
	ZBound         float64
	CriticalMargin float64
	BufferCapacity int
	MinTrendPoints int
	FailureScore   float64
	RULCapHours    float64
	WarnPct        float64
	CriticalPct    float64
	ClearAfter     int
	WorkerShards   int
	BootstrapRows  int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "perception_user"),
			Password: getEnv("DB_PASSWORD", "perception_pass"),
			DBName:   getEnv("DB_NAME", "perception_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicTelemetry: getEnv("KAFKA_TOPIC_TELEMETRY", "engine.telemetry.raw"),
			TopicAlerts:    getEnv("KAFKA_TOPIC_ALERTS", "engine.alerts"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		TCPServer: TCPServerConfig{
			Port:              getEnvAsInt("TCP_PORT", 8080),
			MaxConnections:    getEnvAsInt("TCP_MAX_CONNECTIONS", 10000),
			IdentifyTimeout:   getEnvAsDuration("TCP_IDENTIFY_TIMEOUT", 10*time.Second),
			InactivityTimeout: getEnvAsDuration("TCP_INACTIVITY_TIMEOUT", 2*time.Minute),
		},
		HTTPServer: HTTPServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8090"),
		},
		Aggregation: AggregationConfig{
			HourlyDelay: getEnvAsDuration("AGGREGATION_HOURLY_DELAY", 5*time.Minute),
			DailyTime:   getEnv("AGGREGATION_DAILY_TIME", "00:05"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "perception-server@example.com"),
			To:       getEnv("SMTP_TO", "chief-engineer@example.com"),
		},
		Perception: PerceptionConfig{
			Contamination:  getEnvAsFloat("PERCEPTION_CONTAMINATION", 0.1),
			Estimators:     getEnvAsInt("PERCEPTION_ESTIMATORS", 100),
			SampleSize:     getEnvAsInt("PERCEPTION_SAMPLE_SIZE", 0),
			Seed:           int64(getEnvAsInt("PERCEPTION_SEED", 42)),
			ZBound:         getEnvAsFloat("PERCEPTION_Z_BOUND", 3),
			CriticalMargin: getEnvAsFloat("PERCEPTION_CRITICAL_MARGIN", 0.08),
			BufferCapacity: getEnvAsInt("PERCEPTION_BUFFER_CAPACITY", 1000),
			MinTrendPoints: getEnvAsInt("PERCEPTION_MIN_TREND_POINTS", 10),
			FailureScore:   getEnvAsFloat("PERCEPTION_FAILURE_SCORE", 0.7),
			RULCapHours:    getEnvAsFloat("PERCEPTION_RUL_CAP_HOURS", 10000),
			WarnPct:        getEnvAsFloat("PERCEPTION_WARN_PCT", 60),
			CriticalPct:    getEnvAsFloat("PERCEPTION_CRITICAL_PCT", 85),
			ClearAfter:     getEnvAsInt("PERCEPTION_CLEAR_AFTER", 3),
			WorkerShards:   getEnvAsInt("PERCEPTION_WORKER_SHARDS", 8),
			BootstrapRows:  getEnvAsInt("PERCEPTION_BOOTSTRAP_ROWS", 1000),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
