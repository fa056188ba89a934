package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
	BackendFirebase  = "firebase"
	BackendRedis     = "redis"

	AuthModeFirebase = "firebase"
	AuthModeSession  = "session"

	defaultSessionSecret = "change-me"
	minSessionSecretLen  = 32
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject         string
	FirebaseDatabaseURL     string
	FirebaseCredentialsJSON string
	FirebaseCredentialsPath string
	StorageBucket           string

	DocumentBackend string
	RealtimeBackend string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	AuthMode      string
	SessionSecret string
	SessionCookie string
	SessionTTL    time.Duration

	WeeklyMessageCap int

	AllowedOrigins []string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		FirebaseProject:         getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),
		DocumentBackend:         strings.ToLower(getEnv("DOCUMENT_BACKEND", BackendFirestore)),
		RealtimeBackend:         strings.ToLower(getEnv("REALTIME_BACKEND", BackendFirebase)),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:                 getEnv("MONGO_DB", "homelink"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvAsInt("REDIS_DB", 0),
		KafkaTopic:              getEnv("KAFKA_TOPIC", "homelink.messages"),
		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", AuthModeFirebase)),
		SessionSecret:           getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionCookie:           getEnv("SESSION_COOKIE", "session"),
		SessionTTL:              time.Duration(getEnvAsInt64("SESSION_TTL_SECONDS", 7*24*60*60)) * time.Second,
		WeeklyMessageCap:        getEnvAsInt("WEEKLY_MESSAGE_CAP", 3),
		KafkaBrokers:            getEnvAsList("KAFKA_BROKERS"),
		AllowedOrigins:          getEnvAsList("ALLOWED_ORIGINS"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DocumentBackend {
	case BackendFirestore, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unsupported DOCUMENT_BACKEND %q", c.DocumentBackend)
	}

	switch c.RealtimeBackend {
	case BackendFirebase, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported REALTIME_BACKEND %q", c.RealtimeBackend)
	}

	switch c.AuthMode {
	case AuthModeFirebase, AuthModeSession:
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}

	if c.RealtimeBackend == BackendFirebase && c.FirebaseDatabaseURL == "" {
		return fmt.Errorf("FIREBASE_DATABASE_URL is required for the firebase realtime backend")
	}

	// Anyone holding the secret can mint sessions for any role.
	if c.AuthMode == AuthModeSession && !c.IsDevelopment() {
		if c.SessionSecret == defaultSessionSecret || len(c.SessionSecret) < minSessionSecretLen {
			return fmt.Errorf("SESSION_SECRET must be set to at least %d characters outside development", minSessionSecretLen)
		}
	}

	if c.WeeklyMessageCap < 0 {
		return fmt.Errorf("WEEKLY_MESSAGE_CAP must not be negative")
	}

	return nil
}

// NeedsFirebase reports whether any configured component talks to Firebase.
func (c *Config) NeedsFirebase() bool {
	return c.DocumentBackend == BackendFirestore ||
		c.RealtimeBackend == BackendFirebase ||
		c.AuthMode == AuthModeFirebase ||
		c.StorageBucket != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
