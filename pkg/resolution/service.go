// Package resolution orchestrates the identifier chain and the canonical
// text fallback into a single resolve operation.
package resolution

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// IdentifierResolver is the hierarchical strategy chain
type IdentifierResolver interface {
	Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error)
}

// TextMatcher is the canonical fallback matcher
type TextMatcher interface {
	Match(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error)
}

// ResultStore is the append-only match result log
type ResultStore interface {
	Create(ctx context.Context, result *models.MatchResultRecord) (*models.MatchResultRecord, error)
}

// QueueStore enqueues outcomes for human review
type QueueStore interface {
	Create(ctx context.Context, item *models.ReviewQueueItem) (*models.ReviewQueueItem, error)
}

// SourceStore mirrors the originating record's denormalized match status
type SourceStore interface {
	UpdateMatchStatus(ctx context.Context, record *models.SourceRecord) error
}

// EventEmitter publishes resolution lifecycle events
type EventEmitter interface {
	EmitResolutionCompleted(ctx context.Context, tenantID string, source models.SourceRef, out *models.MatchProductOutput) error
}

// EntityMirror syncs matched entities into the graph read model
type EntityMirror interface {
	SyncEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) error
}

// Config holds resolution service settings
type Config struct {
	ReviewQueueEnabled bool
}

// Service runs resolutions end to end
type Service struct {
	resolver IdentifierResolver
	matcher  TextMatcher
	results  ResultStore
	queue    QueueStore
	sources  SourceStore
	emitter  EventEmitter
	mirror   EntityMirror
	guard    *OutputGuard
	cfg      Config
	logger   ectologger.Logger
}

// NewService creates a resolution service. emitter and mirror may be nil;
// their work is best-effort.
func NewService(resolver IdentifierResolver, matcher TextMatcher, results ResultStore, queue QueueStore, sources SourceStore, emitter EventEmitter, mirror EntityMirror, cfg Config, logger ectologger.Logger) *Service {
	return &Service{
		resolver: resolver,
		matcher:  matcher,
		results:  results,
		queue:    queue,
		sources:  sources,
		emitter:  emitter,
		mirror:   mirror,
		guard:    NewOutputGuard(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolve runs the full pipeline for one input: identifier chain, canonical
// fallback, result logging, review enqueueing, and the output guard.
func (s *Service) Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Service.Resolve")
	defer span.End()

	if err := validate(in); err != nil {
		return nil, err
	}

	out, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		s.recordResult(ctx, in, &models.MatchProductOutput{
			Status:      models.MatchStatusPendingReview,
			MatchMethod: models.MatchMethodNoMatch,
			Explanation: "identifier resolution aborted: " + err.Error(),
		})
		return nil, err
	}

	if out == nil {
		out, err = s.matcher.Match(ctx, in)
		if err != nil {
			s.recordResult(ctx, in, &models.MatchProductOutput{
				Status:      models.MatchStatusPendingReview,
				MatchMethod: models.MatchMethodNoMatch,
				Explanation: "canonical matching aborted: " + err.Error(),
			})
			return nil, err
		}
	}

	s.recordResult(ctx, in, out)
	s.updateSourceStatus(ctx, in, out)

	if out.NeedsReview() && s.cfg.ReviewQueueEnabled {
		s.enqueueReview(ctx, in, out)
	}

	if s.mirror != nil && out.MatchedEntityType != nil && out.MatchedEntityID != nil && !out.NeedsReview() {
		if err := s.mirror.SyncEntity(ctx, in.TenantID, *out.MatchedEntityType, *out.MatchedEntityID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to mirror matched entity to graph")
		}
	}

	if err := s.guard.Check(out); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_id": in.Source.SourceID,
		}).Error("Security violation: forbidden field in resolution output")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "resolution output failed security check")
	}

	if s.emitter != nil {
		if err := s.emitter.EmitResolutionCompleted(ctx, in.TenantID, in.Source, out); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit resolution event")
		}
	}

	return out, nil
}

func validate(in *models.MatchProductInput) error {
	if in.TenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}
	if in.Source.SourceID == "" || in.Source.SourceType == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source type and id are required")
	}
	hasText := in.TextFallback != nil && in.TextFallback.Name != nil && *in.TextFallback.Name != ""
	if in.Identifiers.Empty() && !hasText {
		return httperror.NewHTTPError(http.StatusBadRequest, "at least one identifier or a text fallback name is required")
	}
	return nil
}

// recordResult writes the single MatchResult row for this resolution call.
// A write failure must not abort an otherwise successful resolution.
func (s *Service) recordResult(ctx context.Context, in *models.MatchProductInput, out *models.MatchProductOutput) {
	candidates, err := json.Marshal(out.Candidates)
	if err != nil {
		candidates = []byte("[]")
	}

	if _, err := s.results.Create(ctx, &models.MatchResultRecord{
		TenantID:          in.TenantID,
		SourceType:        in.Source.SourceType,
		SourceID:          in.Source.SourceID,
		Status:            out.Status,
		Confidence:        out.Confidence,
		MatchMethod:       out.MatchMethod,
		MatchedEntityType: out.MatchedEntityType,
		MatchedEntityID:   out.MatchedEntityID,
		Explanation:       out.Explanation,
		Candidates:        candidates,
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to write match result log entry")
	}
}

func (s *Service) updateSourceStatus(ctx context.Context, in *models.MatchProductInput, out *models.MatchProductOutput) {
	record := &models.SourceRecord{
		TenantID:   in.TenantID,
		SourceType: in.Source.SourceType,
		SourceID:   in.Source.SourceID,
	}
	if out.NeedsReview() {
		record.MatchStatus = models.SourceMatchStatusPending
	} else {
		record.MatchStatus = models.SourceMatchStatusAutoMatched
		if out.MatchedEntityType != nil {
			t := string(*out.MatchedEntityType)
			record.MatchedEntityType = &t
		}
		record.MatchedEntityID = out.MatchedEntityID
	}

	if err := s.sources.UpdateMatchStatus(ctx, record); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to update source record match status")
	}
}

func (s *Service) enqueueReview(ctx context.Context, in *models.MatchProductInput, out *models.MatchProductOutput) {
	candidates, err := json.Marshal(out.Candidates)
	if err != nil {
		candidates = []byte("[]")
	}
	snapshot, err := json.Marshal(models.ReviewSnapshot{
		Identifiers:  in.Identifiers,
		TextFallback: in.TextFallback,
	})
	if err != nil {
		snapshot = []byte("{}")
	}

	item := &models.ReviewQueueItem{
		TenantID:    in.TenantID,
		SourceType:  in.Source.SourceType,
		SourceID:    in.Source.SourceID,
		SupplierID:  in.SupplierID,
		SupplierSku: in.SupplierSku,
		MatchStatus: out.Status,
		Confidence:  out.Confidence,
		Candidates:  candidates,
		Snapshot:    snapshot,
	}

	if _, err := s.queue.Create(ctx, item); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to enqueue review item")
	}
}
