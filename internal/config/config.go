package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Flow API server
	Port       string
	DBDriver   string
	DBPath     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	UploadDir  string

	// Editor and CLI
	APIURL           string
	APIToken         string
	OrganizationID   string
	UserID           string
	AutosaveDelay    time.Duration
	PropagationDelay time.Duration
	ReferenceRetries int
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./flows.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "flows"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),

		APIURL:           getEnv("FLOW_API_URL", "http://localhost:8080"),
		APIToken:         getEnv("FLOW_API_TOKEN", ""),
		OrganizationID:   getEnv("ORGANIZATION_ID", ""),
		UserID:           getEnv("USER_ID", ""),
		AutosaveDelay:    getDuration("AUTOSAVE_DELAY", 1500*time.Millisecond),
		PropagationDelay: getDuration("PROPAGATION_DELAY", 300*time.Millisecond),
		ReferenceRetries: getInt("REFERENCE_RETRIES", 2),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("Warning: invalid %s %q, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}
