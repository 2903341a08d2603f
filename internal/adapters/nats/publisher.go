package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
)

var (
	_ ports.FixPublisher          = (*Publisher)(nil)
	_ ports.NotificationPublisher = (*Publisher)(nil)
)

// Subjects names the event subjects the Publisher writes to.
type Subjects struct {
	Fix    string
	Nearby string
}

// Publisher broadcasts accepted fixes and nearby notifications over NATS
// JetStream.
type Publisher struct {
	subjects Subjects
	publish  func(subject string, data []byte) error
}

// NewPublisher enables JetStream on conn and ensures the event stream exists.
func NewPublisher(conn *nats.Conn, subjects Subjects) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "PICPLACE_FIXES",
			Subjects:  []string{subjects.Fix},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			MaxMsgs:   10000,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "PICPLACE_NEARBY",
			Subjects:  []string{subjects.Nearby},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, so try an update.
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{
		subjects: subjects,
		publish: func(subject string, data []byte) error {
			_, err := js.Publish(subject, data)
			return err
		},
	}, nil
}

// PublishFix implements ports.FixPublisher.
func (p *Publisher) PublishFix(ctx context.Context, fix domain.LocationFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return p.send(ctx, p.subjects.Fix, data)
}

// PublishNotification implements ports.NotificationPublisher.
func (p *Publisher) PublishNotification(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.send(ctx, p.subjects.Nearby, data)
}

func (p *Publisher) send(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
