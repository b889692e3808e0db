package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"comment-scout/pkg/models"
)

const natsFlushTimeout = 5 * time.Second

// NATSSink publishes each record as a JSON message on a subject
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the server at url
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if subject == "" {
		subject = "comments.matched"
	}
	conn, err := nats.Connect(url, nats.Name("comment-scout"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (n *NATSSink) Name() string { return "nats" }

// Publish sends one message per record and waits for the server to
// acknowledge the batch
func (n *NATSSink) Publish(ctx context.Context, records []models.CommentRecord) error {
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := n.conn.Publish(n.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsFlushTimeout)
		defer cancel()
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATSSink) Close() error {
	return n.conn.Drain()
}
