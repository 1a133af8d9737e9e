package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes records to a Kafka topic keyed by user id, so one
// user's activity stays ordered within a partition.
type KafkaSink struct {
	w messageWriter
}

// NewKafkaSink returns a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 20 * time.Millisecond,
		Compression:  kafka.Snappy,
	}}
}

// Write publishes records as one batch, keyed by user id.
func (s *KafkaSink) Write(ctx context.Context, records []Record) error {
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal activity %s: %w", r.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.UserID),
			Value: payload,
			Time:  r.At,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(r.Kind)},
				{Key: "version", Value: []byte(strconv.Itoa(SchemaVersion))},
			},
		})
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write activity to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
