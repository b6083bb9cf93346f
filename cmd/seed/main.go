// seed inserts dev users into the local database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"os"

	"github.com/authlink/authlink/internal/infrastructure/postgres"
)

type userSpec struct {
	email    string
	password string
}

var users = []userSpec{
	{"seed@test.local", "seed-password"},
	{"weaverryan@test.local", "another-password"},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	for _, spec := range users {
		// Dev-only hash. Real deployments never create users this way.
		hash := fmt.Sprintf("%x", sha256.Sum256([]byte(spec.password)))

		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			spec.email, hash,
		).Scan(&id)
		if err != nil {
			log.Fatalf("upsert user %s: %v", spec.email, err)
		}
		fmt.Printf("  User: %-25s ID: %s\n", spec.email, id)
	}

	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 — request a login link:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/login-link \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\"}'\n", users[0].email)
	fmt.Println()
	fmt.Println("    # Copy the link from the server log (local env logs instead of emailing), then:")
	fmt.Println()
	fmt.Println("    curl -s 'http://localhost:8080/auth/login-link/check?user=...&expires=...&hash=...'")
	fmt.Println("    # → {\"token\":\"eyJ...\"}")
	fmt.Println()
	fmt.Println("  Step 2 — call a protected route with the session token:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/auth/me -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3 — replay the same link. With LOGIN_LINK_MAX_USES=1 the second")
	fmt.Println("  attempt returns 401 \"Login link has expired, request a new one\".")
}
