package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aidin1998/bookanalyzer/internal/emission"
	"github.com/Aidin1998/bookanalyzer/pkg/logger"
)

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// quoteMessage is the JSON payload published per quote. Value is null for NA.
type quoteMessage struct {
	Timestamp int64   `json:"timestamp"`
	Line      string  `json:"line"`
	Value     *string `json:"value"`
	NA        bool    `json:"na"`
}

// KafkaSink publishes each quote as a JSON message keyed by its line, so a
// line's quotes keep their order within one partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaSink(cfg KafkaConfig, log *zap.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaSink(w, cfg.Topic, log)
}

func newKafkaSink(w messageWriter, topic string, log *zap.Logger) *KafkaSink {
	return &KafkaSink{writer: w, topic: topic, logger: logger.OrNop(log)}
}

func (s *KafkaSink) Write(ctx context.Context, q emission.Quote) error {
	msg := quoteMessage{Timestamp: q.Timestamp, Line: string(q.Line), NA: q.NA}
	if !q.NA {
		v := q.FormatValue()
		msg.Value = &v
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(q.Line), Value: payload}); err != nil {
		s.logger.Error("Failed to publish quote",
			zap.String("topic", s.topic),
			zap.Int64("timestamp", q.Timestamp),
			zap.Error(err))
		return fmt.Errorf("publish quote to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
