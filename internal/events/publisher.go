// Package events provides NATS JetStream publishing for upsell audit events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"upsell-service/internal/models"
)

const (
	streamName    = "UPSELL_EVENTS"
	subjectPrefix = "upsell."
)

// Publisher publishes upsell and catalog events for the audit trail.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// UpsellGeneratedEvent records one suggestion generation request.
type UpsellGeneratedEvent struct {
	EventType       string           `json:"eventType"`
	EventID         string           `json:"eventId"`
	TenantID        string           `json:"tenantId"`
	Timestamp       time.Time        `json:"timestamp"`
	Placement       models.Placement `json:"placement"`
	SuggestionCount int              `json:"suggestionCount"`
	TopStrategy     string           `json:"topStrategy,omitempty"`
	TopProductID    string           `json:"topProductId,omitempty"`
	CandidateCount  int              `json:"candidateCount"`
}

// MenuImportedEvent records a menu import run.
type MenuImportedEvent struct {
	EventType    string    `json:"eventType"`
	EventID      string    `json:"eventId"`
	TenantID     string    `json:"tenantId"`
	Timestamp    time.Time `json:"timestamp"`
	FileName     string    `json:"fileName"`
	RowsImported int       `json:"rowsImported"`
	RowsFailed   int       `json:"rowsFailed"`
	ActorID      string    `json:"actorId,omitempty"`
}

// NewPublisher connects to NATS and ensures the upsell stream exists.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("upsell-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnf("[NATS] Disconnected: %v", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] Connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "upsell-events"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.ensureStream(ctx); err != nil {
		publisher.logger.WithError(err).Warn("Failed to ensure upsell stream (may already exist)")
	}

	return publisher, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	return err
}

// PublishUpsellGenerated publishes an upsell.generated event.
func (p *Publisher) PublishUpsellGenerated(ctx context.Context, tenantID string, result *models.UpsellResult, candidateCount int) error {
	event := UpsellGeneratedEvent{
		EventType:       "upsell.generated",
		EventID:         uuid.New().String(),
		TenantID:        tenantID,
		Timestamp:       time.Now().UTC(),
		Placement:       result.Placement,
		SuggestionCount: len(result.Suggestions),
		CandidateCount:  candidateCount,
	}
	if len(result.Suggestions) > 0 {
		event.TopStrategy = string(result.Suggestions[0].Strategy)
		event.TopProductID = result.Suggestions[0].Product.ID.String()
	}
	return p.publish(event.EventType, event, logrus.Fields{
		"tenantID":    tenantID,
		"placement":   result.Placement,
		"suggestions": len(result.Suggestions),
	})
}

// PublishMenuImported publishes an upsell.menu_imported event.
func (p *Publisher) PublishMenuImported(ctx context.Context, tenantID, fileName string, imported, failed int, actorID string) error {
	event := MenuImportedEvent{
		EventType:    "upsell.menu_imported",
		EventID:      uuid.New().String(),
		TenantID:     tenantID,
		Timestamp:    time.Now().UTC(),
		FileName:     fileName,
		RowsImported: imported,
		RowsFailed:   failed,
		ActorID:      actorID,
	}
	return p.publish(event.EventType, event, logrus.Fields{
		"tenantID": tenantID,
		"imported": imported,
		"failed":   failed,
	})
}

// publish serializes and publishes an event asynchronously so request
// handling never blocks on the broker.
func (p *Publisher) publish(subject string, event interface{}, fields logrus.Fields) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.js.Publish(pubCtx, subject, data); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish event")
		} else {
			p.logger.WithFields(fields).WithField("eventType", subject).Info("Event published")
		}
	}()

	return nil
}
