package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/rabbitmq"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type Type string

const (
	VocalsIsolated  Type = "vocals_isolated"
	IsolationFailed Type = "isolation_failed"
)

type Event struct {
	Type        Type      `json:"type"`
	RequestID   string    `json:"request_id"`
	OutputKind  string    `json:"output_kind,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Time        time.Time `json:"time"`
}

// Notifier announces finished requests. Delivery is best effort and never
// affects the outcome of the request being announced.
//
//counterfeiter:generate . Notifier
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

var _ Notifier = NoopNotifier{}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) {}

var _ Notifier = QueueNotifier{}

type QueueNotifier struct {
	publisher rabbitmq.Publisher
}

func NewQueueNotifier(publisher rabbitmq.Publisher) QueueNotifier {
	return QueueNotifier{publisher: publisher}
}

func (q QueueNotifier) Notify(ctx context.Context, event Event) {
	logger := log.WithFields(log.Fields{
		"request_id": event.RequestID,
		"event_type": event.Type,
	})

	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal event")
		return
	}

	err = q.publisher.Publish(ctx, amqp091.Publishing{
		Type:      string(event.Type),
		Timestamp: event.Time,
		Body:      body,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to publish event")
		return
	}

	logger.Debug("Published event")
}
