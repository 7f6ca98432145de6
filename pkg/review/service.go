// Package review applies human decisions to queued resolution outcomes.
package review

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/normalizers"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// QueueStore is the review queue persistence the service consumes
type QueueStore interface {
	Get(ctx context.Context, tenantID string, id string) (*models.ReviewQueueItem, error)
	Resolve(ctx context.Context, tenantID string, id string, action models.ReviewAction, note *string, resolvedBy *string) (bool, error)
}

// MappingStore persists supplier product mappings
type MappingStore interface {
	Upsert(ctx context.Context, m *models.SupplierProductMapping) (*models.SupplierProductMapping, error)
	GetBySupplierSku(ctx context.Context, tenantID string, supplierID string, supplierSku string) (*models.SupplierProductMapping, error)
}

// MasterStore creates masters for create_new_product decisions
type MasterStore interface {
	Create(ctx context.Context, master *models.WineMaster) (*models.WineMaster, error)
}

// IdentifierStore registers identifiers carried on the source line
type IdentifierStore interface {
	Register(ctx context.Context, ident *models.ProductIdentifier) (*models.ProductIdentifier, error)
}

// SourceStore mirrors the originating record's denormalized match status
type SourceStore interface {
	UpdateMatchStatus(ctx context.Context, record *models.SourceRecord) error
}

// Auditor appends the decision audit entry
type Auditor interface {
	Record(ctx context.Context, tenantID string, eventType models.AuditEventType, entityType, entityID string, userID *string, meta models.AuditMetadata) (*models.AuditLogEntry, error)
}

// EventEmitter publishes review lifecycle events
type EventEmitter interface {
	EmitReviewDecided(ctx context.Context, item *models.ReviewQueueItem, action models.ReviewAction, mapping *models.SupplierProductMapping) error
	EmitProductCreated(ctx context.Context, master *models.WineMaster) error
}

// MappingMirror syncs decisions into the graph read model
type MappingMirror interface {
	SyncEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) error
	SyncMapping(ctx context.Context, mapping *models.SupplierProductMapping) error
}

// Service applies review decisions
type Service struct {
	queue       QueueStore
	mappings    MappingStore
	masters     MasterStore
	identifiers IdentifierStore
	sources     SourceStore
	auditor     Auditor
	emitter     EventEmitter
	mirror      MappingMirror
	logger      ectologger.Logger
}

// NewService creates a review service. emitter and mirror may be nil.
func NewService(queue QueueStore, mappings MappingStore, masters MasterStore, identifiers IdentifierStore, sources SourceStore, auditor Auditor, emitter EventEmitter, mirror MappingMirror, logger ectologger.Logger) *Service {
	return &Service{
		queue:       queue,
		mappings:    mappings,
		masters:     masters,
		identifiers: identifiers,
		sources:     sources,
		auditor:     auditor,
		emitter:     emitter,
		mirror:      mirror,
		logger:      logger,
	}
}

// ApplyDecision applies a reviewer decision to a queue item. The mapping
// mutation runs first; the pending to resolved transition is the final step,
// claimed with an atomic conditional update. A failed mutation leaves the
// item pending so the decision can be retried, and the keyed mapping upsert
// makes the retry idempotent. A caller that loses the claim race, or any call
// after the first, gets the frozen first result.
func (s *Service) ApplyDecision(ctx context.Context, tenantID string, queueItemID string, req *models.ApplyDecisionRequest) (*models.ApplyDecisionResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.ApplyDecision")
	defer span.End()

	if !req.Action.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	if req.Action.RequiresSelection() && (req.SelectedID == nil || *req.SelectedID == "") {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "selected_id is required for "+string(req.Action))
	}

	item, err := s.queue.Get(ctx, tenantID, queueItemID)
	if err != nil {
		return nil, err
	}

	if item.Status == models.ReviewStatusResolved {
		return s.frozenResponse(ctx, item)
	}

	if req.Action != models.ReviewActionReject && (item.SupplierID == nil || item.SupplierSku == nil) {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "queue item has no supplier key to map")
	}

	mapping, before, err := s.applyAction(ctx, item, req)
	if err != nil {
		return nil, err
	}

	won, err := s.queue.Resolve(ctx, tenantID, queueItemID, req.Action, req.Comment, req.ReviewedBy)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another decision landed first; its result is frozen. Our upsert for
		// the same supplier key was a benign duplicate write.
		item, err = s.queue.Get(ctx, tenantID, queueItemID)
		if err != nil {
			return nil, err
		}
		return s.frozenResponse(ctx, item)
	}

	auditID := s.recordAudit(ctx, item, req, before, mapping)

	if s.mirror != nil && mapping != nil {
		if err := s.mirror.SyncMapping(ctx, mapping); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to mirror mapping to graph")
		}
	}
	if s.emitter != nil {
		if err := s.emitter.EmitReviewDecided(ctx, item, req.Action, mapping); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit review.decided event")
		}
	}

	return &models.ApplyDecisionResponse{
		QueueItemID:  item.ID,
		Status:       models.ReviewStatusResolved,
		Action:       req.Action,
		Mapping:      mapping,
		AuditEventID: auditID,
		Message:      "decision applied",
	}, nil
}

// frozenResponse reconstructs the first decision's result for repeat callers
func (s *Service) frozenResponse(ctx context.Context, item *models.ReviewQueueItem) (*models.ApplyDecisionResponse, error) {
	action := models.ReviewAction("")
	if item.ResolutionAction != nil {
		action = models.ReviewAction(*item.ResolutionAction)
	}

	var mapping *models.SupplierProductMapping
	if action != models.ReviewActionReject && item.SupplierID != nil && item.SupplierSku != nil {
		var err error
		mapping, err = s.mappings.GetBySupplierSku(ctx, item.TenantID, *item.SupplierID, *item.SupplierSku)
		if err != nil {
			return nil, err
		}
	}

	return &models.ApplyDecisionResponse{
		QueueItemID: item.ID,
		Status:      models.ReviewStatusResolved,
		Action:      action,
		Mapping:     mapping,
		Message:     "queue item already resolved, returning original result",
	}, nil
}

// applyAction performs the decision's mutation for a pending item. Returns the
// resulting mapping (nil for reject) and the prior mapping for the audit
// entry's before state.
func (s *Service) applyAction(ctx context.Context, item *models.ReviewQueueItem, req *models.ApplyDecisionRequest) (*models.SupplierProductMapping, *models.SupplierProductMapping, error) {
	if req.Action == models.ReviewActionReject {
		return nil, nil, nil
	}

	before, err := s.mappings.GetBySupplierSku(ctx, item.TenantID, *item.SupplierID, *item.SupplierSku)
	if err != nil {
		return nil, nil, err
	}

	mapping := &models.SupplierProductMapping{
		TenantID:    item.TenantID,
		SupplierID:  *item.SupplierID,
		SupplierSku: *item.SupplierSku,
		Confidence:  1.0,
	}

	sourceStatus := models.SourceMatchStatusAutoMatched
	var linkedType string
	var linkedID string

	switch req.Action {
	case models.ReviewActionApproveMatch:
		mapping.MasterProductID = req.SelectedID
		mapping.Method = models.MappingMethodHumanReview
		mapping.Reasons = pq.StringArray{"approved by reviewer"}
		linkedType, linkedID = string(models.EntityTypeMaster), *req.SelectedID

	case models.ReviewActionApproveFamily:
		mapping.ProductFamilyID = req.SelectedID
		mapping.Method = models.MappingMethodHumanReviewFamily
		mapping.Reasons = pq.StringArray{"approved against product family"}
		linkedType, linkedID = "family", *req.SelectedID

	case models.ReviewActionCreateNewProduct:
		master, err := s.createProduct(ctx, item, req)
		if err != nil {
			return nil, nil, err
		}
		mapping.MasterProductID = &master.ID
		mapping.Method = models.MappingMethodCreateNewProduct
		mapping.Reasons = pq.StringArray{"created new product from source line"}
		// NO_MATCH: the catalog had no pre-existing entry for this line.
		sourceStatus = models.SourceMatchStatusNoMatch
		linkedType, linkedID = string(models.EntityTypeMaster), master.ID
	}

	mapping, err = s.mappings.Upsert(ctx, mapping)
	if err != nil {
		return nil, nil, err
	}

	record := &models.SourceRecord{
		TenantID:          item.TenantID,
		SourceType:        item.SourceType,
		SourceID:          item.SourceID,
		MatchStatus:       sourceStatus,
		MatchedEntityType: &linkedType,
		MatchedEntityID:   &linkedID,
	}
	if err := s.sources.UpdateMatchStatus(ctx, record); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to update source record after decision")
	}

	return mapping, before, nil
}

// createProduct seeds a master from the snapshot the source line was
// submitted with, registering its GTIN when the line carried one.
func (s *Service) createProduct(ctx context.Context, item *models.ReviewQueueItem, req *models.ApplyDecisionRequest) (*models.WineMaster, error) {
	var snapshot models.ReviewSnapshot
	if len(item.Snapshot) > 0 {
		if err := json.Unmarshal(item.Snapshot, &snapshot); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to parse queue item snapshot")
		}
	}

	master := &models.WineMaster{
		TenantID:      item.TenantID,
		CanonicalName: "unnamed product " + item.SourceID,
	}
	if tf := snapshot.TextFallback; tf != nil {
		if tf.Name != nil && *tf.Name != "" {
			master.CanonicalName = *tf.Name
		}
		master.Producer = tf.Producer
		master.Country = tf.Country
		master.Region = tf.Region
		master.Appellation = tf.Appellation
	}

	master, err := s.masters.Create(ctx, master)
	if err != nil {
		return nil, err
	}

	if ids := snapshot.Identifiers; ids != nil && ids.GTIN != nil {
		gtin := normalizers.DigitsOnly(*ids.GTIN)
		if gtin != "" {
			_, err := s.identifiers.Register(ctx, &models.ProductIdentifier{
				TenantID:   item.TenantID,
				IDType:     models.IdentifierTypeGTIN,
				IDValue:    gtin,
				IssuerID:   "",
				EntityType: models.EntityTypeMaster,
				EntityID:   master.ID,
			})
			if err != nil {
				// Already registered elsewhere; the new master still stands.
				s.logger.WithContext(ctx).WithError(err).Warn("Failed to register GTIN for new product")
			}
		}
	}

	if s.mirror != nil {
		if err := s.mirror.SyncEntity(ctx, item.TenantID, models.EntityTypeMaster, master.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to mirror new master to graph")
		}
	}
	if s.emitter != nil {
		if err := s.emitter.EmitProductCreated(ctx, master); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit product.created event")
		}
	}

	return master, nil
}

// recordAudit appends the decision audit entry after the mutation committed.
// Audit failures are logged, never fatal: the mapping is the record of truth.
func (s *Service) recordAudit(ctx context.Context, item *models.ReviewQueueItem, req *models.ApplyDecisionRequest, before, after *models.SupplierProductMapping) *string {
	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}

	entityType := "review_queue_item"
	entityID := item.ID
	if after != nil {
		entityType = "supplier_product_mapping"
		entityID = after.ID
	}

	meta := models.AuditMetadata{
		Action:  string(req.Action),
		Comment: comment,
	}
	if before != nil {
		meta.BeforeState = before
	}
	if after != nil {
		meta.AfterState = after
	}

	entry, err := s.auditor.Record(ctx, item.TenantID, models.AuditEventReviewDecision, entityType, entityID, req.ReviewedBy, meta)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to write audit entry for decision")
		return nil
	}
	return &entry.ID
}
