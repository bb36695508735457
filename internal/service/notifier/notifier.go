// Package notifier принимает события заказов и остатков из Kafka и пишет
// их в журнал уведомлений. Фактическая доставка уведомлений (почта, push)
// подключается поверх этого обработчика.
package notifier

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// Handler возвращает обработчик сообщений consumer-группы. Ошибка разбора
// возвращается наверх: consumer после исчерпания попыток отправит
// сообщение в DLQ.
func Handler(logger *log.Entry) kafka.MessageHandler {
	if logger == nil {
		logger = log.New().WithField("component", "event_notifier")
	}

	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		switch message.Topic {
		case kafka.TopicStockEvents:
			event, err := kafka.ParseStockEvent(message)
			if err != nil {
				return err
			}
			logger.WithFields(log.Fields{
				"product_id": event.ProductID,
				"delta":      event.Delta,
				"remaining":  event.Remaining,
			}).Info("stock adjusted")
		default:
			event, err := kafka.ParseOrderEvent(message)
			if err != nil {
				return err
			}
			logger.WithFields(log.Fields{
				"event_type": event.EventType,
				"order_id":   event.OrderID,
				"user_id":    event.UserID,
				"status":     event.Status,
			}).Info("order event received")
		}
		return nil
	}
}
