package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/db"
	"github.com/quickienotes/quickie/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "quickie-server.db")
	jwtSecret := getEnv("JWT_SECRET", "")
	baseURL := getEnv("BASE_URL", "http://localhost:"+port)

	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// Sessions last 30 days; the client drops its cached token on expiry.
	jwtExpiration := 30 * 24 * time.Hour

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	jwtManager := auth.NewJWTManager(jwtSecret, jwtExpiration)

	srv := server.New(database, jwtManager, baseURL)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Database: %s", dbPath)

	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
