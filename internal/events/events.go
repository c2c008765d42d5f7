// Package events announces finished generations to other services over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vbonduro/dreamspace/internal/domain"
)

type Publisher interface {
	PublishGeneration(ctx context.Context, r *domain.GenerationResult) error
}

// GenerationEvent is the message body published for each finished generation.
type GenerationEvent struct {
	GenerationID string                  `json:"generation_id"`
	ProjectID    string                  `json:"project_id,omitempty"`
	Status       domain.GenerationStatus `json:"status"`
	OutputRef    string                  `json:"generated_image_ref,omitempty"`
	Error        string                  `json:"error,omitempty"`
	DurationMS   int64                   `json:"duration_ms"`
	At           time.Time               `json:"at"`
}

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("dreamspace"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) PublishGeneration(ctx context.Context, r *domain.GenerationResult) error {
	payload, err := Encode(r)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(p.subject, r.Status), payload); err != nil {
		return fmt.Errorf("publish generation event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}

// Subject is "<base>.<status>", e.g. "dreamspace.generations.completed".
func Subject(base string, status domain.GenerationStatus) string {
	return base + "." + string(status)
}

func Encode(r *domain.GenerationResult) ([]byte, error) {
	payload, err := json.Marshal(GenerationEvent{
		GenerationID: r.GenerationID,
		ProjectID:    r.ProjectID,
		Status:       r.Status,
		OutputRef:    r.OutputRef,
		Error:        r.Error,
		DurationMS:   r.Duration.Milliseconds(),
		At:           r.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generation event: %w", err)
	}
	return payload, nil
}

// Noop discards events. It is used when no NATS URL is configured.
type Noop struct{}

func (Noop) PublishGeneration(context.Context, *domain.GenerationResult) error { return nil }
