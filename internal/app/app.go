package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/scheduler"
	transport "github.com/vladislavdragonenkov/storefront/internal/transport/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run запускает приложение и блокируется до отмены ctx или фатальной
// ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, version.String(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Нулевая задержка автоперехода отключает планировщик.
	var statusScheduler domain.StatusScheduler = scheduler.NewNoop()
	if cfg.StatusUpdateDelay > 0 {
		inProcess := scheduler.NewInProcess(deps.Store, logger.WithField("component", "status_scheduler"))
		defer inProcess.Close()
		statusScheduler = inProcess
	} else {
		logger.Info("задержка автоперехода 0, планировщик статусов отключён")
	}

	manager := checkout.NewManager(
		deps.Store,
		deps.Timeline,
		statusScheduler,
		checkout.Config{Mode: cfg.Mode, StatusUpdateDelay: cfg.StatusUpdateDelay},
		logger.WithField("component", "checkout"),
	)

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var wg sync.WaitGroup

	// Outbox публикуется только при настроенном Kafka: без брокеров
	// события копятся в pending и уходят после рестарта с брокерами.
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlq := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox_worker")),
			outbox.WithDLQPublisher(dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()

		notifierConsumer := initEventNotifier(workerCtx, cfg.KafkaBrokers, kafkaProducer, logger)
		defer closeNotifier(notifierConsumer, logger)
	} else {
		logger.Info("kafka brokers не заданы, публикация outbox отключена")
	}

	cleanup := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency_cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(workerCtx)
	}()

	server := transport.NewServer(cfg.HTTPAddr, transport.Deps{
		Checkout:    manager,
		Auth:        deps.Auth,
		Tokens:      deps.Tokens,
		Products:    deps.Products,
		Idempotency: deps.Idempotency,
		Health:      deps.Health,
		Logger:      logger.WithField("component", "http"),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown with error")
		}
		stopWorkers()
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		stopWorkers()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
