package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/gemilang/stone-orders/internal/kafka"
	"github.com/gemilang/stone-orders/internal/orders"
)

// Publisher is the producer side we need; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// KafkaNotifier publishes the completion envelope through the async producer;
// the producer's inbox makes Publish effectively fire-and-forget. It satisfies
// orders.CompletionNotifier.
type KafkaNotifier struct {
	Producer Publisher
	Service  string
}

var _ Publisher = (*kafkax.Producer)(nil)

func (n *KafkaNotifier) OrderCompleted(ctx context.Context, orderID int64, c orders.CustomerContact) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: string(orders.PartitionKey(orderID)),
		Payload: kafkax.MustMarshal(orders.OrderCompletedPayload{
			OrderID:        orderID,
			CustomerID:     c.ID,
			RecipientName:  c.Name,
			RecipientEmail: c.Email,
		}),
	}
	n.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCompleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
