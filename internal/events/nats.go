// Package events announces newly inserted jobs on a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

// DefaultSubject is where new jobs are published for the email matcher.
const DefaultSubject = "jobs.new"

// conn is the slice of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes each inserted job as a JSON message.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher connects to url. The connection reconnects forever in the
// background; only the initial dial can fail.
func NewNATSPublisher(url, subject string, timeout time.Duration, logger *zap.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	nc, err := nats.Connect(url,
		nats.Name("jobsync"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, subject: subject, logger: logger}, nil
}

// PublishJobs sends one message per job and flushes. It stops at the first
// failure.
func (p *NATSPublisher) PublishJobs(ctx context.Context, jobs []model.CanonicalJob) error {
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshaling job %s: %w", job.IdentityKey, err)
		}
		if err := p.conn.Publish(p.subject, data); err != nil {
			p.logger.Error("failed to publish job",
				zap.String("identity_key", job.IdentityKey),
				zap.Error(err))
			return fmt.Errorf("publishing to %s: %w", p.subject, err)
		}
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", p.subject, err)
	}
	p.logger.Debug("published jobs",
		zap.Int("count", len(jobs)),
		zap.String("subject", p.subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
