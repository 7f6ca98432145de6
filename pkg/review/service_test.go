package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/vine/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

type fakeQueue struct {
	items map[string]*models.ReviewQueueItem
	// simulates a concurrent decision landing between Get and Resolve
	loseRaceWith *models.ReviewAction
}

func newFakeQueue(items ...*models.ReviewQueueItem) *fakeQueue {
	f := &fakeQueue{items: map[string]*models.ReviewQueueItem{}}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeQueue) Get(ctx context.Context, tenantID string, id string) (*models.ReviewQueueItem, error) {
	item, ok := f.items[id]
	if !ok || item.TenantID != tenantID {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "review queue item not found")
	}
	copied := *item
	return &copied, nil
}

func (f *fakeQueue) Resolve(ctx context.Context, tenantID string, id string, action models.ReviewAction, note *string, resolvedBy *string) (bool, error) {
	item, ok := f.items[id]
	if !ok {
		return false, nil
	}
	if f.loseRaceWith != nil {
		concurrent := string(*f.loseRaceWith)
		item.Status = models.ReviewStatusResolved
		item.ResolutionAction = &concurrent
		f.loseRaceWith = nil
		return false, nil
	}
	if item.Status != models.ReviewStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	actionStr := string(action)
	item.Status = models.ReviewStatusResolved
	item.ResolutionAction = &actionStr
	item.ResolutionNote = note
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now
	return true, nil
}

type fakeMappings struct {
	byKey   map[string]*models.SupplierProductMapping
	upserts int
	// returned (and cleared) by the next Upsert call
	failNext error
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{byKey: map[string]*models.SupplierProductMapping{}}
}

func (f *fakeMappings) Upsert(ctx context.Context, m *models.SupplierProductMapping) (*models.SupplierProductMapping, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	key := m.TenantID + "|" + m.SupplierID + "|" + m.SupplierSku
	if existing, ok := f.byKey[key]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		m.ID = uuid.NewString()
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = time.Now().UTC()
	copied := *m
	f.byKey[key] = &copied
	f.upserts++
	return m, nil
}

func (f *fakeMappings) GetBySupplierSku(ctx context.Context, tenantID string, supplierID string, supplierSku string) (*models.SupplierProductMapping, error) {
	if m, ok := f.byKey[tenantID+"|"+supplierID+"|"+supplierSku]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

type fakeMasters struct {
	created []*models.WineMaster
}

func (f *fakeMasters) Create(ctx context.Context, master *models.WineMaster) (*models.WineMaster, error) {
	master.ID = uuid.NewString()
	f.created = append(f.created, master)
	return master, nil
}

type fakeIdentifiers struct {
	registered []*models.ProductIdentifier
}

func (f *fakeIdentifiers) Register(ctx context.Context, ident *models.ProductIdentifier) (*models.ProductIdentifier, error) {
	ident.ID = uuid.NewString()
	f.registered = append(f.registered, ident)
	return ident, nil
}

type fakeSources struct {
	updates []*models.SourceRecord
}

func (f *fakeSources) UpdateMatchStatus(ctx context.Context, record *models.SourceRecord) error {
	f.updates = append(f.updates, record)
	return nil
}

type fakeAuditor struct {
	entries []*models.AuditLogEntry
}

func (f *fakeAuditor) Record(ctx context.Context, tenantID string, eventType models.AuditEventType, entityType, entityID string, userID *string, meta models.AuditMetadata) (*models.AuditLogEntry, error) {
	raw, _ := json.Marshal(meta)
	entry := &models.AuditLogEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Metadata:   raw,
		CreatedAt:  time.Now().UTC(),
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

type fixture struct {
	svc      *Service
	queue    *fakeQueue
	mappings *fakeMappings
	masters  *fakeMasters
	idents   *fakeIdentifiers
	sources  *fakeSources
	auditor  *fakeAuditor
}

func newFixture(items ...*models.ReviewQueueItem) *fixture {
	f := &fixture{
		queue:    newFakeQueue(items...),
		mappings: newFakeMappings(),
		masters:  &fakeMasters{},
		idents:   &fakeIdentifiers{},
		sources:  &fakeSources{},
		auditor:  &fakeAuditor{},
	}
	f.svc = NewService(f.queue, f.mappings, f.masters, f.idents, f.sources, f.auditor, nil, nil, testLogger())
	return f
}

func pendingItem() *models.ReviewQueueItem {
	return &models.ReviewQueueItem{
		ID:          uuid.NewString(),
		TenantID:    "tenant-1",
		SourceType:  models.SourceTypeSupplierImportRow,
		SourceID:    "row-1",
		SupplierID:  strPtr("supplier-7"),
		SupplierSku: strPtr("SKU-99"),
		Status:      models.ReviewStatusPending,
		MatchStatus: models.MatchStatusSuggested,
		Confidence:  0.6,
		Candidates:  json.RawMessage(`[]`),
		Snapshot:    json.RawMessage(`{}`),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestApplyDecision_ApproveMatch(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)
	masterID := uuid.NewString()

	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveMatch,
		SelectedID: &masterID,
		Comment:    strPtr("looks right"),
		ReviewedBy: strPtr("reviewer-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReviewStatusResolved, resp.Status)
	assert.Equal(t, models.ReviewActionApproveMatch, resp.Action)
	assert.Equal(t, "decision applied", resp.Message)
	require.NotNil(t, resp.Mapping)
	assert.Equal(t, masterID, *resp.Mapping.MasterProductID)
	assert.Nil(t, resp.Mapping.ProductFamilyID)
	assert.Equal(t, models.MappingMethodHumanReview, resp.Mapping.Method)
	assert.Equal(t, 1.0, resp.Mapping.Confidence)

	require.Len(t, f.sources.updates, 1)
	assert.Equal(t, models.SourceMatchStatusAutoMatched, f.sources.updates[0].MatchStatus)
	assert.Equal(t, masterID, *f.sources.updates[0].MatchedEntityID)

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, models.AuditEventReviewDecision, f.auditor.entries[0].EventType)
	assert.Equal(t, "reviewer-1", *f.auditor.entries[0].UserID)
	require.NotNil(t, resp.AuditEventID)
	assert.Equal(t, f.auditor.entries[0].ID, *resp.AuditEventID)
}

func TestApplyDecision_Idempotent(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)
	masterID := uuid.NewString()

	first, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveMatch,
		SelectedID: &masterID,
	})
	require.NoError(t, err)

	// the second call must not mutate anything and returns the frozen result,
	// even with a different action
	otherID := uuid.NewString()
	second, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveFamily,
		SelectedID: &otherID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReviewActionApproveMatch, second.Action)
	assert.Equal(t, "queue item already resolved, returning original result", second.Message)
	require.NotNil(t, second.Mapping)
	assert.Equal(t, first.Mapping.ID, second.Mapping.ID)
	assert.Equal(t, masterID, *second.Mapping.MasterProductID)

	assert.Equal(t, 1, f.mappings.upserts)
	assert.Len(t, f.sources.updates, 1)
	assert.Len(t, f.auditor.entries, 1)
}

func TestApplyDecision_Reject(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)

	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:  models.ReviewActionReject,
		Comment: strPtr("not a real product"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReviewStatusResolved, resp.Status)
	assert.Nil(t, resp.Mapping)

	// reject leaves the mapping table and source record untouched
	assert.Equal(t, 0, f.mappings.upserts)
	assert.Empty(t, f.sources.updates)
	assert.Len(t, f.auditor.entries, 1)
}

func TestApplyDecision_ApproveFamily(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)
	familyID := uuid.NewString()

	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveFamily,
		SelectedID: &familyID,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Mapping)
	assert.Nil(t, resp.Mapping.MasterProductID)
	assert.Equal(t, familyID, *resp.Mapping.ProductFamilyID)
	assert.Equal(t, models.MappingMethodHumanReviewFamily, resp.Mapping.Method)
}

func TestApplyDecision_CreateNewProduct(t *testing.T) {
	item := pendingItem()
	snapshot, err := json.Marshal(models.ReviewSnapshot{
		Identifiers: &models.InputIdentifiers{GTIN: strPtr("1234567890123")},
		TextFallback: &models.TextFallback{
			Name:     strPtr("Domaine Inconnu Rouge"),
			Producer: strPtr("Domaine Inconnu"),
			Region:   strPtr("Languedoc"),
		},
	})
	require.NoError(t, err)
	item.Snapshot = snapshot
	f := newFixture(item)

	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action: models.ReviewActionCreateNewProduct,
	})
	require.NoError(t, err)

	require.Len(t, f.masters.created, 1)
	created := f.masters.created[0]
	assert.Equal(t, "Domaine Inconnu Rouge", created.CanonicalName)
	assert.Equal(t, "Domaine Inconnu", *created.Producer)

	require.NotNil(t, resp.Mapping)
	assert.Equal(t, created.ID, *resp.Mapping.MasterProductID)
	assert.Equal(t, models.MappingMethodCreateNewProduct, resp.Mapping.Method)

	// the line's GTIN is registered against the new master
	require.Len(t, f.idents.registered, 1)
	assert.Equal(t, models.IdentifierTypeGTIN, f.idents.registered[0].IDType)
	assert.Equal(t, "1234567890123", f.idents.registered[0].IDValue)
	assert.Equal(t, created.ID, f.idents.registered[0].EntityID)

	// the catalog had no pre-existing entry, so the source reads NO_MATCH
	require.Len(t, f.sources.updates, 1)
	assert.Equal(t, models.SourceMatchStatusNoMatch, f.sources.updates[0].MatchStatus)
}

func TestApplyDecision_Validation(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)

	t.Run("invalid action", func(t *testing.T) {
		_, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
			Action: models.ReviewAction("approve_everything"),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("approve without selection", func(t *testing.T) {
		_, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
			Action: models.ReviewActionApproveMatch,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := f.svc.ApplyDecision(context.Background(), "tenant-1", uuid.NewString(), &models.ApplyDecisionRequest{
			Action: models.ReviewActionReject,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestApplyDecision_NoSupplierKey(t *testing.T) {
	item := pendingItem()
	item.SupplierID = nil
	item.SupplierSku = nil
	f := newFixture(item)
	masterID := uuid.NewString()

	_, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveMatch,
		SelectedID: &masterID,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))

	// reject needs no mapping, so the missing key is fine
	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action: models.ReviewActionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusResolved, resp.Status)
}

func TestApplyDecision_LosesClaimRace(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)
	concurrentAction := models.ReviewActionReject
	f.queue.loseRaceWith = &concurrentAction
	masterID := uuid.NewString()

	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveMatch,
		SelectedID: &masterID,
	})
	require.NoError(t, err)

	// the loser gets the winner's frozen result; its keyed upsert is a benign
	// duplicate write and no audit entry is recorded for the losing decision
	assert.Equal(t, models.ReviewActionReject, resp.Action)
	assert.Equal(t, "queue item already resolved, returning original result", resp.Message)
	assert.Equal(t, 1, f.mappings.upserts)
	assert.Empty(t, f.auditor.entries)
}

func TestApplyDecision_RetryAfterStorageError(t *testing.T) {
	item := pendingItem()
	f := newFixture(item)
	f.mappings.failNext = errors.New("connection reset by peer")
	masterID := uuid.NewString()
	req := &models.ApplyDecisionRequest{
		Action:     models.ReviewActionApproveMatch,
		SelectedID: &masterID,
	}

	_, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, req)
	require.Error(t, err)

	// the failed mutation must not consume the decision: the item stays
	// pending and nothing was recorded
	stored, err := f.queue.Get(context.Background(), "tenant-1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, stored.Status)
	assert.Equal(t, 0, f.mappings.upserts)
	assert.Empty(t, f.auditor.entries)

	// an identical retry succeeds end to end
	resp, err := f.svc.ApplyDecision(context.Background(), "tenant-1", item.ID, req)
	require.NoError(t, err)

	assert.Equal(t, models.ReviewStatusResolved, resp.Status)
	require.NotNil(t, resp.Mapping)
	assert.Equal(t, masterID, *resp.Mapping.MasterProductID)
	assert.Equal(t, 1, f.mappings.upserts)
	assert.Len(t, f.auditor.entries, 1)
}
