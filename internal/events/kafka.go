package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/observability"
)

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// DefaultTopic receives plan events when none is configured
const DefaultTopic = "training-plans"

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	var brokerList []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokerList = append(brokerList, b)
		}
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return Config{Brokers: brokerList, Topic: topic}
}

// Enabled reports whether any broker is configured
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes plan events to a Kafka topic keyed by athlete, so one
// athlete's events stay ordered on a partition
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for cfg
func NewKafkaPublisher(cfg Config, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// PublishPlanGenerated implements Publisher
func (p *KafkaPublisher) PublishPlanGenerated(ctx context.Context, evt *PlanGenerated) error {
	if evt == nil {
		return fmt.Errorf("plan event is nil")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal plan event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.AthleteID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
			{Key: "plan_id", Value: []byte(evt.PlanID.String())},
			{Key: "race_id", Value: []byte(evt.RaceID.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		observability.EventsPublished.WithLabelValues(p.topic, "error").Inc()
		p.logger.Error("failed to publish plan event",
			zap.String("topic", p.topic),
			zap.Stringer("plan_id", evt.PlanID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish plan event: %w", err)
	}

	observability.EventsPublished.WithLabelValues(p.topic, "ok").Inc()
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
