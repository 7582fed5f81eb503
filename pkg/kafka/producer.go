package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// SchemaVersion is stamped into every published message header.
const SchemaVersion = "1.0"

// Producer publishes resolution events to Kafka.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish marshals the event payload and writes it keyed so all events about
// one player land on one partition in order.
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload any) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "schema_version", Value: []byte(SchemaVersion)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"key":        key,
		}).Error("Failed to publish event")
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "success").Inc()
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": eventType,
		"key":        key,
	}).Debug("Published event")

	return nil
}
