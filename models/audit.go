package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"github.com/sirupsen/logrus"
)

type AuditEvent struct {
	BusinessId    string      `json:"business_id"`
	Actor         string      `json:"actor"`
	UserId        int         `json:"user_id,omitempty"`
	Action        AuditAction `json:"action"`
	EntityType    string      `json:"entity_type"`
	EntityId      int         `json:"entity_id"`
	Description   string      `json:"description"`
	CorrelationId string      `json:"correlation_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// AuditNotifier receives an event after each successful ledger write.
// Failures never undo the write.
type AuditNotifier interface {
	Notify(ctx context.Context, event AuditEvent) error
}

// LogAuditNotifier writes events as structured log lines.
type LogAuditNotifier struct {
	logger *logrus.Logger
}

func NewLogAuditNotifier(logger *logrus.Logger) *LogAuditNotifier {
	return &LogAuditNotifier{logger: logger}
}

func (n *LogAuditNotifier) Notify(_ context.Context, event AuditEvent) error {
	n.logger.WithFields(logrus.Fields{
		"business_id":    event.BusinessId,
		"actor":          event.Actor,
		"action":         event.Action,
		"entity_type":    event.EntityType,
		"entity_id":      event.EntityId,
		"correlation_id": event.CorrelationId,
	}).Info(event.Description)
	return nil
}

// PubSubAuditNotifier publishes events to a Pub/Sub topic in the background.
type PubSubAuditNotifier struct {
	topic   string
	timeout time.Duration
	logger  *logrus.Logger
	publish func(ctx context.Context, topic string, msg config.AuditMessage) (string, error)
}

func NewPubSubAuditNotifier(topic string, logger *logrus.Logger) *PubSubAuditNotifier {
	return &PubSubAuditNotifier{
		topic:   topic,
		timeout: 10 * time.Second,
		logger:  logger,
		publish: config.PublishAuditEvent,
	}
}

func (n *PubSubAuditNotifier) Notify(ctx context.Context, event AuditEvent) error {
	msg := config.AuditMessage{
		BusinessId:    event.BusinessId,
		Actor:         event.Actor,
		Action:        string(event.Action),
		EntityType:    event.EntityType,
		EntityId:      event.EntityId,
		Description:   event.Description,
		OccurredAt:    event.OccurredAt,
		CorrelationId: event.CorrelationId,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	go func() {
		defer cancel()
		if _, err := n.publish(pubCtx, n.topic, msg); err != nil {
			config.LogError(n.logger, "audit.go", "PubSubAuditNotifier.Notify", "publishing audit event", msg, err)
		}
	}()
	return nil
}

// AuditNotifiers fans an event out to every notifier.
type AuditNotifiers []AuditNotifier

func (ns AuditNotifiers) Notify(ctx context.Context, event AuditEvent) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
