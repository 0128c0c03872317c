// Command server runs the feeddiff HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"feeddiff/internal/app"
	"feeddiff/internal/config"
	"feeddiff/internal/infrastructure"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	if err := run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, nil)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
