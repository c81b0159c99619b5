// Command tokengen prints a signed handshake token for local testing.
//
//	JWT_SECRET=... go run ./cmd/tokengen -user 7 -ttl 1h
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/gochat-relay/internal/auth"
)

type config struct {
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id to embed in the token")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()

	var cfg config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if *userID <= 0 {
		return errors.New("-user must be a positive id")
	}

	token, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(*userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
