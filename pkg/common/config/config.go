package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Inputs
	PatientsPath     string `yaml:"patients_path"`
	CodesPath        string `yaml:"codes_path"`
	ResultsPath      string `yaml:"results_path"`
	InputEncoding    string `yaml:"input_encoding"`
	ProfileCodeIndex int    `yaml:"profile_code_column"`

	// Outputs
	OutputPath string        `yaml:"output_path"`
	Sinks      []string      `yaml:"sinks"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	KafkaTopic string        `yaml:"kafka_topic"`

	// Server
	ServerPort     string        `yaml:"server_port"`
	ServerHost     string        `yaml:"server_host"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxRequestBody int64         `yaml:"max_request_body"`
	RateLimitRPS   int           `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`

	// Database
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Redis
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Kafka
	KafkaBrokers []string `yaml:"kafka_brokers"`

	LogLevel string `yaml:"log_level"`
}

func Load() *Config {
	return &Config{
		PatientsPath:     getEnv("COLLATE_PATIENTS_PATH", "data/patients.json"),
		CodesPath:        getEnv("COLLATE_CODES_PATH", "data/labresults-codes.csv"),
		ResultsPath:      getEnv("COLLATE_RESULTS_PATH", "data/labresults.csv"),
		InputEncoding:    getEnv("COLLATE_INPUT_ENCODING", "utf-8"),
		ProfileCodeIndex: getIntEnv("COLLATE_PROFILE_CODE_COLUMN", 4),

		OutputPath: getEnv("COLLATE_OUTPUT_PATH", "data/output.json"),
		Sinks:      getStringSliceEnv("COLLATE_SINKS", []string{"file"}),
		CacheTTL:   getDuration("COLLATE_CACHE_TTL", 24*time.Hour),
		KafkaTopic: getEnv("COLLATE_KAFKA_TOPIC", "collated-lab-results"),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 32*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 10),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "synaptica"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:       getEnv("POSTGRES_DB", "synaptica"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// LoadFile overlays the YAML job file at path onto base. Keys absent from
// the file keep their base values.
func LoadFile(path string, base *Config) (*Config, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := *base
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// HasSink reports whether name is among the configured sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// UsesPostgres is true when any configured sink needs the database.
func (c *Config) UsesPostgres() bool {
	return c.HasSink("postgres")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
