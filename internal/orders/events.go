package orders

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	EventOrderCompleted = "OrderCompleted"

	TopicOrderCompleted = "order.completed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // e.g. OrderCompleted
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "stone-orders-api"
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCompletedPayload struct {
	OrderID        int64  `json:"order_id"`
	CustomerID     int64  `json:"customer_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
}

// Partition key = order_id: semua event untuk satu order tetap berurutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
