package main

import (
	"os"

	"github.com/joho/godotenv"

	"mongo-user-service/config"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *config.Config {
	// A missing .env file is fine; the defaults below cover development.
	_ = godotenv.Load()

	config := &config.Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "mongodb://localhost:27017"),
		DatabaseName:       getEnv("DATABASE_NAME", "UserDemo_Dev"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", "your-dev-secret-key"),
		TokenSigningKey:    getEnv("TOKEN_SIGNING_KEY", "your-dev-token-signing-key"),
		CollectionUserName: "users",
	}

	return config
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
