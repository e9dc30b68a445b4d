package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	pkgkafka "github.com/hautex/visual-fashion-finder/pkg/kafka"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
)

// TopicSearchCompleted is the default topic for search.completed events.
var TopicSearchCompleted = pkgkafka.Topic("search", "completed")

// EventTypeSearchCompleted is the event_type header of search events.
const EventTypeSearchCompleted = "search.completed"

// SubjectTypeSearch is the subject type of search events.
const SubjectTypeSearch = "search"

// SourceFashionFinder identifies events published by this service.
const SourceFashionFinder = "fashion-finder"

// SearchCompletedData is the payload of a search.completed event. It
// describes the request, never the uploaded image.
type SearchCompletedData struct {
	RequestID      string   `json:"request_id"`
	Engine         string   `json:"engine"`
	Query          string   `json:"query,omitempty"`
	Category       string   `json:"category"`
	Color          string   `json:"color"`
	ResultCount    int      `json:"result_count"`
	Degraded       bool     `json:"degraded"`
	FallbackStages []string `json:"fallback_stages,omitempty"`
	Mock           bool     `json:"mock"`
	DurationMs     int64    `json:"duration_ms"`
}

// NewSearchCompletedData summarizes an outcome for publishing.
func NewSearchCompletedData(requestID, engineName string, outcome *domain.SearchOutcome, mock bool, durationMs int64) SearchCompletedData {
	return SearchCompletedData{
		RequestID:      requestID,
		Engine:         engineName,
		Query:          outcome.Query,
		Category:       outcome.Features.Category,
		Color:          outcome.Features.Color.Primary,
		ResultCount:    len(outcome.Products),
		Degraded:       outcome.Degraded,
		FallbackStages: outcome.FallbackStages,
		Mock:           mock,
		DurationMs:     durationMs,
	}
}

// Producer publishes search events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	topic  string
	logger *slog.Logger
}

// NewProducer creates a search event producer. An empty topic uses
// TopicSearchCompleted.
func NewProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = TopicSearchCompleted
	}
	return &Producer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

// PublishSearchCompleted publishes a search.completed event keyed by the
// request id.
func (p *Producer) PublishSearchCompleted(ctx context.Context, data SearchCompletedData) error {
	event, err := pkgkafka.NewEvent(EventTypeSearchCompleted, data.RequestID, SubjectTypeSearch, SourceFashionFinder, data)
	if err != nil {
		return fmt.Errorf("create search.completed event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	event.WithMetadata("engine", data.Engine)

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish search.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published search.completed event",
		slog.String("request_id", data.RequestID),
		slog.Int("result_count", data.ResultCount),
		slog.Bool("degraded", data.Degraded),
	)
	return nil
}

// NoopProducer discards events. It is used when no brokers are configured.
type NoopProducer struct{}

// PublishSearchCompleted does nothing.
func (NoopProducer) PublishSearchCompleted(context.Context, SearchCompletedData) error {
	return nil
}
