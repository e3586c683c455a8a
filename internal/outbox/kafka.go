package outbox

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is a thin wrapper around a segmentio/kafka-go Writer that
// routes each message by the outbox row's topic column.
type KafkaWriter struct {
	w *kafka.Writer
}

type KafkaConfig struct {
	Brokers      []string
	BatchTimeout time.Duration // default 100ms
}

func NewKafkaWriter(c KafkaConfig) *KafkaWriter {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 100 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: bt,
		RequiredAcks: kafka.RequireAll,
	}

	return &KafkaWriter{w: w}
}

func (k *KafkaWriter) Write(ctx context.Context, topic, key string, value []byte) error {
	return k.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (k *KafkaWriter) Close() error { return k.w.Close() }
