package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.WithField("version", version.String()).Info("запускаем storefront")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.ConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("приложение завершилось с ошибкой")
		os.Exit(1)
	}
}
