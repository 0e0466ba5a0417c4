package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/observability"
)

// Publisher emits tagged observations to downstream consumers.
type Publisher interface {
	PublishObservations(ctx context.Context, obs []aviation.Observation) error
	Close() error
}

// messageWriter is the subset of *kafkago.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes one message per observation to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewKafkaPublisher creates a producer for topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string, metrics *observability.Metrics, log *slog.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return NewKafkaPublisherWithWriter(w, metrics, log)
}

// NewKafkaPublisherWithWriter constructs a KafkaPublisher around an injectable writer (used in tests).
func NewKafkaPublisherWithWriter(w messageWriter, metrics *observability.Metrics, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{writer: w, metrics: metrics, log: log}
}

// PublishObservations serializes obs and writes them in a single batch.
// Messages are keyed by station so one station's observations stay ordered.
func (p *KafkaPublisher) PublishObservations(ctx context.Context, obs []aviation.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := serializeObservation(obs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d observations: %w", len(msgs), err)
	}

	if p.metrics != nil {
		p.metrics.ObservationsPublished.Add(float64(len(msgs)))
	}
	p.log.Debug("observations published", "count", len(msgs))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// serializeObservation marshals an observation into a Kafka message.
func serializeObservation(o aviation.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation for %s: %w", o.Station, err)
	}
	return kafkago.Message{
		Key:   []byte(o.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(o.Source)},
			{Key: "observed_at", Value: []byte(o.ObservedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

// Nop discards everything. It is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishObservations(context.Context, []aviation.Observation) error { return nil }
func (Nop) Close() error                                                      { return nil }
