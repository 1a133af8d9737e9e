package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSSink publishes each record on "<subject>.<kind>".
type NATSSink struct {
	conn    publisher
	subject string
}

// DialNATS connects to url and returns a sink publishing under subject.
func DialNATS(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("eventportal-activity"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Write publishes each record on its kind subject and waits for the flush.
func (s *NATSSink) Write(ctx context.Context, records []Record) error {
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal activity %s: %w", r.ID, err)
		}
		if err := s.conn.Publish(s.subject+"."+string(r.Kind), payload); err != nil {
			return fmt.Errorf("publish activity: %w", err)
		}
	}
	return s.conn.FlushWithContext(ctx)
}

// Close drains the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
