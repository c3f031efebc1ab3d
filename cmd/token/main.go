// Command token mints a bearer token for local testing of the API.
//
//	go run ./cmd/token -user 7 -role applicant
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/learnwell/microlearn-api/internal/config"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/service/auth"
)

func main() {
	userID := flag.Int64("user", 0, "user ID to put in the token")
	roleName := flag.String("role", string(domain.RoleApplicant), "role: admin or applicant")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*userID, *roleName); err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
}

func run(userID int64, roleName string) error {
	if userID <= 0 {
		return domain.ErrInvalidUserID
	}
	role, err := domain.ParseRole(roleName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	token, err := jwtService.GenerateToken(context.Background(), userID, role)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
