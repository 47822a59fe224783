package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database (leaderboard / stats)
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match timing
	AdmissionWindowSecs int
	WordTurnSecs        int
	SweeperTurnSecs     int
	SingleGameClockSecs int
	OfflineQueueTTLSecs int

	// Grid-reveal defaults
	DefaultBoardSize int
	DefaultMineRisk  float64

	// Word-chain defaults
	StartingMinWordLength int
	DictionaryPath        string

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/stackswars?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match timing
		AdmissionWindowSecs: getEnvInt("ADMISSION_WINDOW_SECONDS", 15),
		WordTurnSecs:        getEnvInt("WORD_TURN_SECONDS", 15),
		SweeperTurnSecs:     getEnvInt("SWEEPER_TURN_SECONDS", 30),
		SingleGameClockSecs: getEnvInt("SINGLE_GAME_CLOCK_SECONDS", 60),
		OfflineQueueTTLSecs: getEnvInt("OFFLINE_QUEUE_TTL_SECONDS", 120),

		// Grid-reveal defaults
		DefaultBoardSize: getEnvInt("DEFAULT_BOARD_SIZE", 8),
		DefaultMineRisk:  getEnvFloat("DEFAULT_MINE_RISK", 0.15),

		// Word-chain defaults
		StartingMinWordLength: getEnvInt("STARTING_MIN_WORD_LENGTH", 4),
		DictionaryPath:        getEnv("DICTIONARY_PATH", "data/dictionary.json"),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
