package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/notifier"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой или если произошла ошибка.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initEventNotifier запускает consumer-группу уведомлений поверх topics
// заказов и остатков. Producer нужен для отправки необработанных сообщений
// в DLQ; без него уведомления не запускаются.
func initEventNotifier(ctx context.Context, brokers string, producer *kafka.Producer, logger *log.Entry) *kafka.Consumer {
	if producer == nil {
		return nil
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(brokers, ","),
		"storefront-notifier",
		[]string{kafka.TopicOrderEvents, kafka.TopicStockEvents},
		notifier.Handler(logger.WithField("component", "event_notifier")),
		producer,
		3,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, continuing without notifier")
		return nil
	}
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start kafka consumer, continuing without notifier")
		return nil
	}
	return consumer
}

// closeNotifier останавливает consumer уведомлений если он запущен.
func closeNotifier(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
