// Package events handles event emission for resolution and review outcomes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/kafka"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher is the transport the emitter writes to
type Publisher interface {
	PublishResolutionEvent(ctx context.Context, event *kafka.ResolutionEvent) error
}

// Emitter publishes resolution lifecycle events. All emission is best-effort
// from the caller's perspective; failures are logged and returned but callers
// never fail a request over them.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitResolutionCompleted emits a resolution.completed event
func (e *Emitter) EmitResolutionCompleted(ctx context.Context, tenantID string, source models.SourceRef, out *models.MatchProductOutput) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResolutionCompleted")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"status":         out.Status,
		"confidence":     out.Confidence,
		"match_method":   out.MatchMethod,
	})

	event := &kafka.ResolutionEvent{
		EventType:  "resolution.completed",
		TenantID:   tenantID,
		SourceType: string(source.SourceType),
		SourceID:   source.SourceID,
		Data:       data,
	}
	if out.MatchedEntityType != nil {
		event.EntityType = string(*out.MatchedEntityType)
	}
	if out.MatchedEntityID != nil {
		event.EntityID = *out.MatchedEntityID
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit resolution.completed event")
		return err
	}
	return nil
}

// EmitReviewDecided emits a review.decided event
func (e *Emitter) EmitReviewDecided(ctx context.Context, item *models.ReviewQueueItem, action models.ReviewAction, mapping *models.SupplierProductMapping) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewDecided")
	defer span.End()

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"queue_item_id":  item.ID,
		"action":         action,
	}
	if mapping != nil {
		payload["mapping_id"] = mapping.ID
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ResolutionEvent{
		EventType:  "review.decided",
		TenantID:   item.TenantID,
		SourceType: string(item.SourceType),
		SourceID:   item.SourceID,
		Data:       data,
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review.decided event")
		return err
	}
	return nil
}

// EmitProductCreated emits a product.created event for a new master
func (e *Emitter) EmitProductCreated(ctx context.Context, master *models.WineMaster) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProductCreated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"canonical_name": master.CanonicalName,
	})

	event := &kafka.ResolutionEvent{
		EventType:  "product.created",
		TenantID:   master.TenantID,
		EntityType: string(models.EntityTypeMaster),
		EntityID:   master.ID,
		Data:       data,
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.created event")
		return err
	}
	return nil
}
