package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront account events.
var (
	TopicUserRegistered        = pkgkafka.Topic("user", "registered")
	TopicUserUpdated           = pkgkafka.Topic("user", "updated")
	TopicDefaultAddressChanged = pkgkafka.Topic("address", "default_changed")
)

// Aggregate types.
const (
	AggregateTypeUser    = "user"
	AggregateTypeAddress = "address"
)

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DefaultAddressChangedData is the payload for an address.default_changed event.
type DefaultAddressChangedData struct {
	UserID    int64  `json:"user_id"`
	AddressID int64  `json:"address_id"`
	City      string `json:"city"`
}

// Publisher sends one event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events. A Producer built with a nil
// Publisher drops every event, which is how the service runs with Kafka
// disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events reach a broker.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
	return p.publish(ctx, TopicUserRegistered, strconv.FormatInt(user.ID, 10), AggregateTypeUser, data)
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
	}
	return p.publish(ctx, TopicUserUpdated, strconv.FormatInt(user.ID, 10), AggregateTypeUser, data)
}

// PublishDefaultAddressChanged publishes an address.default_changed event.
// The event is keyed by the owner so a user's changes stay ordered.
func (p *Producer) PublishDefaultAddressChanged(ctx context.Context, address *domain.Address) error {
	data := DefaultAddressChangedData{
		UserID:    address.UserID,
		AddressID: address.ID,
		City:      address.City,
	}
	return p.publish(ctx, TopicDefaultAddressChanged, strconv.FormatInt(address.UserID, 10), AggregateTypeAddress, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		p.logger.DebugContext(ctx, "kafka disabled, dropping event", slog.String("topic", topic))
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
