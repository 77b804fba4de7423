// Package config loads application configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

var ErrInvalid = errors.New("invalid configuration")

type HTTP struct {
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	LivenessEndpoint  string
	MetricsEndpoint   string
}

type Log struct {
	Level  string
	Format string
}

type Storage struct {
	Driver          string
	Slot            string
	FilePath        string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	PostgresDSN     string
}

type Kafka struct {
	// Brokers is empty when event publishing is disabled.
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type Config struct {
	HTTP    HTTP
	Log     Log
	Storage Storage
	Kafka   Kafka

	// Location defines the calendar day considered "today" for date validation.
	Location  *time.Location
	RoomTypes []string
}

const defaultEnvFile = ".env"

// Load reads the configuration and reports every invalid or missing value at once.
func Load() (*Config, error) {
	return LoadFile(defaultEnvFile)
}

// LoadFile is Load with an explicit dotenv file. A missing file is skipped; one that
// exists but cannot be parsed is reported with the other problems.
func LoadFile(envFile string) (*Config, error) {
	var problems []string

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		problems = append(problems, fmt.Sprintf("read %s: %v", envFile, err))
	}

	durationEnv := func(key, fallback string) time.Duration {
		raw := getEnv(key, fallback)

		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be a positive duration, got %q", key, raw))
		}

		return d
	}

	conf := &Config{
		HTTP: HTTP{
			Host:              getEnv("HTTP_HOST", "localhost"),
			Port:              getEnv("HTTP_PORT", "8092"),
			ReadHeaderTimeout: durationEnv("HTTP_READ_HEADER_TIMEOUT", "20s"),
			ShutdownTimeout:   durationEnv("SHUTDOWN_TIMEOUT", "4s"),
			LivenessEndpoint:  getEnv("LIVENESS_ENDPOINT", "/liveness"),
			MetricsEndpoint:   getEnv("METRICS_ENDPOINT", "/metrics"),
		},
		Log: Log{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: Storage{
			Driver:          strings.ToLower(getEnv("STORAGE_DRIVER", DriverFile)),
			Slot:            getEnv("STORAGE_SLOT", "bookings"),
			FilePath:        getEnv("STORAGE_FILE_PATH", "data/bookings.json"),
			MongoURI:        os.Getenv("MONGO_URI"),
			MongoDatabase:   getEnv("MONGO_DATABASE", "hotelbooking"),
			MongoCollection: getEnv("MONGO_COLLECTION", "slots"),
			PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		},
		Kafka: Kafka{
			Brokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("KAFKA_TOPIC", "booking-events"),
			BatchTimeout: durationEnv("KAFKA_BATCH_TIMEOUT", "10ms"),
		},
		RoomTypes: splitCSV(getEnv("ROOM_TYPES", "standard,deluxe,suite")),
	}

	tz := getEnv("TIMEZONE", "UTC")

	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q is not a known location", tz))
	}

	conf.Location = loc

	if len(conf.RoomTypes) == 0 {
		problems = append(problems, "ROOM_TYPES must list at least one room type")
	}

	switch conf.Storage.Driver {
	case DriverMemory, DriverFile:
	case DriverMongo:
		if conf.Storage.MongoURI == "" {
			problems = append(problems, "MONGO_URI is required for the mongo storage driver")
		}
	case DriverPostgres:
		if conf.Storage.PostgresDSN == "" {
			problems = append(problems, "POSTGRES_DSN is required for the postgres storage driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_DRIVER %q is not one of memory, file, mongo, postgres", conf.Storage.Driver))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return conf, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}

func splitCSV(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}

	return out
}
