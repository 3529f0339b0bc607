package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka appends envelopes to one topic keyed by bus topic, so every bus
// topic keeps its order within a partition.
type Kafka struct {
	writer messageWriter
}

var _ Publisher = (*Kafka)(nil)

// NewKafkaWriter builds a writer for brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafka(writer messageWriter) *Kafka {
	return &Kafka{writer: writer}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Send(ctx context.Context, e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Topic),
		Value: data,
		Time:  time.Unix(0, e.TsPub),
	})
}

func (k *Kafka) Close() error { return k.writer.Close() }
