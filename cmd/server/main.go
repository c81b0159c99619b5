package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/gochat-relay/internal/auth"
	"github.com/Tyrowin/gochat-relay/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay together and blocks until a signal or a listener failure.
func run() error {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	hub := server.NewHub(log, cfg.TypingIdentity())

	var authenticator server.Authenticator
	if cfg.AuthEnabled() {
		authenticator = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		log.Warn("JWT_SECRET is not set; join requests are trusted as claimed")
	}

	srv := server.New(cfg, hub, authenticator, log)
	srv.StartHub()

	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.ShutdownServer(ctx, httpServer)
			},
			"hub": func(context.Context) error {
				return hub.Shutdown(cfg.ShutdownTimeout)
			},
		},
	)

	select {
	case err := <-errChan:
		_ = hub.Shutdown(cfg.ShutdownTimeout)
		return err
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
	}

	log.Info("Program stopped cleanly")
	return nil
}
