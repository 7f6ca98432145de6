package resolver

import (
	"context"
	"net/http"
	"testing"

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
func intPtr(i int) *int       { return &i }

type identKey struct {
	idType models.IdentifierType
	value  string
	issuer string
}

type fakeIdentifiers struct {
	items map[identKey]*models.ProductIdentifier
	// when set, the next Register installs this identifier instead and
	// reports a unique violation, simulating a concurrent winner
	concurrent *models.ProductIdentifier
	registered []*models.ProductIdentifier
}

func newFakeIdentifiers() *fakeIdentifiers {
	return &fakeIdentifiers{items: map[identKey]*models.ProductIdentifier{}}
}

func (f *fakeIdentifiers) put(ident *models.ProductIdentifier) {
	f.items[identKey{ident.IDType, ident.IDValue, ident.IssuerID}] = ident
}

func (f *fakeIdentifiers) Lookup(ctx context.Context, tenantID string, idType models.IdentifierType, idValue string, issuerID string) (*models.ProductIdentifier, error) {
	if ident, ok := f.items[identKey{idType, idValue, issuerID}]; ok && ident.TenantID == tenantID {
		return ident, nil
	}
	return nil, nil
}

func (f *fakeIdentifiers) Register(ctx context.Context, ident *models.ProductIdentifier) (*models.ProductIdentifier, error) {
	key := identKey{ident.IDType, ident.IDValue, ident.IssuerID}
	if f.concurrent != nil {
		f.items[key] = f.concurrent
		f.concurrent = nil
		return nil, httperror.NewHTTPError(http.StatusConflict, "identifier already registered")
	}
	if _, ok := f.items[key]; ok {
		return nil, httperror.NewHTTPError(http.StatusConflict, "identifier already registered")
	}
	ident.ID = uuid.NewString()
	f.items[key] = ident
	f.registered = append(f.registered, ident)
	return ident, nil
}

type fakeMasters struct {
	created []*models.WineMaster
}

func (f *fakeMasters) Create(ctx context.Context, master *models.WineMaster) (*models.WineMaster, error) {
	master.ID = uuid.NewString()
	f.created = append(f.created, master)
	return master, nil
}

type fakeSkus struct {
	created []*models.WineSku
	byID    map[string]*models.WineSku
}

func newFakeSkus() *fakeSkus {
	return &fakeSkus{byID: map[string]*models.WineSku{}}
}

func (f *fakeSkus) Create(ctx context.Context, sku *models.WineSku) (*models.WineSku, error) {
	sku.ID = uuid.NewString()
	f.created = append(f.created, sku)
	f.byID[sku.ID] = sku
	return sku, nil
}

func (f *fakeSkus) FindByMasterVintageBottle(ctx context.Context, tenantID string, masterID string, vintage *int, bottleML *int) (*models.WineSku, error) {
	for _, sku := range f.byID {
		if sku.MasterProductID != masterID {
			continue
		}
		if vintage != nil && (sku.Vintage == nil || *sku.Vintage != *vintage) {
			continue
		}
		if bottleML != nil && (sku.BottleML == nil || *sku.BottleML != *bottleML) {
			continue
		}
		return sku, nil
	}
	return nil, nil
}

func (f *fakeSkus) ListByMaster(ctx context.Context, tenantID string, masterID string, limit int) ([]models.WineSku, error) {
	out := []models.WineSku{}
	for _, sku := range f.created {
		if sku.MasterProductID == masterID && len(out) < limit {
			out = append(out, *sku)
		}
	}
	return out, nil
}

func gtinInput(gtin string) *models.MatchProductInput {
	return &models.MatchProductInput{
		TenantID: "tenant-1",
		Source:   models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-1"},
		Identifiers: &models.InputIdentifiers{
			GTIN: strPtr(gtin),
		},
	}
}

func TestChain_GTINRegistered(t *testing.T) {
	idents := newFakeIdentifiers()
	skuID := uuid.NewString()
	idents.put(&models.ProductIdentifier{
		TenantID:   "tenant-1",
		IDType:     models.IdentifierTypeGTIN,
		IDValue:    "3760049580013",
		EntityType: models.EntityTypeSku,
		EntityID:   skuID,
	})
	chain := NewChain(idents, &fakeMasters{}, newFakeSkus(), true, testLogger())

	out, err := chain.Resolve(context.Background(), gtinInput("3760049-58 0013"))
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusAutoMatch, out.Status)
	assert.Equal(t, 1.0, out.Confidence)
	assert.Equal(t, models.MatchMethodGTINExact, out.MatchMethod)
	assert.Equal(t, models.EntityTypeSku, *out.MatchedEntityType)
	assert.Equal(t, skuID, *out.MatchedEntityID)
}

func TestChain_GTINAutoCreate(t *testing.T) {
	idents := newFakeIdentifiers()
	masters := &fakeMasters{}
	skus := newFakeSkus()
	chain := NewChain(idents, masters, skus, true, testLogger())

	in := gtinInput("1234567890123")
	in.TextFallback = &models.TextFallback{
		Name:     strPtr("Chateau Nouveau"),
		Producer: strPtr("Nouveau Estates"),
		Vintage:  intPtr(2019),
		BottleML: intPtr(750),
	}

	out, err := chain.Resolve(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusAutoMatchWithGuards, out.Status)
	assert.Equal(t, 1.0, out.Confidence)
	assert.Equal(t, models.MatchMethodGTINExact, out.MatchMethod)

	require.Len(t, masters.created, 1)
	assert.Equal(t, "Chateau Nouveau", masters.created[0].CanonicalName)
	require.Len(t, skus.created, 1)
	assert.Equal(t, 2019, *skus.created[0].Vintage)
	assert.Equal(t, 750, *skus.created[0].BottleML)

	// identifier registered against the sku, not the master
	require.Len(t, idents.registered, 1)
	assert.Equal(t, models.EntityTypeSku, idents.registered[0].EntityType)
	assert.Equal(t, skus.created[0].ID, idents.registered[0].EntityID)
	assert.Equal(t, models.EntityTypeSku, *out.MatchedEntityType)
	assert.Equal(t, skus.created[0].ID, *out.MatchedEntityID)
}

func TestChain_GTINAutoCreateDisabled(t *testing.T) {
	idents := newFakeIdentifiers()
	masters := &fakeMasters{}
	chain := NewChain(idents, masters, newFakeSkus(), false, testLogger())

	out, err := chain.Resolve(context.Background(), gtinInput("1234567890123"))
	require.NoError(t, err)

	// no strategy claims the input; the caller falls through to text matching
	assert.Nil(t, out)
	assert.Empty(t, masters.created)
	assert.Empty(t, idents.registered)
}

func TestChain_GTINConcurrentCreate(t *testing.T) {
	idents := newFakeIdentifiers()
	existingID := uuid.NewString()
	idents.concurrent = &models.ProductIdentifier{
		TenantID:   "tenant-1",
		IDType:     models.IdentifierTypeGTIN,
		IDValue:    "1234567890123",
		EntityType: models.EntityTypeMaster,
		EntityID:   existingID,
	}
	chain := NewChain(idents, &fakeMasters{}, newFakeSkus(), true, testLogger())

	out, err := chain.Resolve(context.Background(), gtinInput("1234567890123"))
	require.NoError(t, err)
	require.NotNil(t, out)

	// the race loser resolves against the concurrent winner's entity
	assert.Equal(t, models.MatchStatusAutoMatch, out.Status)
	assert.Equal(t, existingID, *out.MatchedEntityID)
}

func TestChain_GTINWinsOverLWIN(t *testing.T) {
	idents := newFakeIdentifiers()
	gtinEntity := uuid.NewString()
	lwinEntity := uuid.NewString()
	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeGTIN, IDValue: "1234567890123",
		EntityType: models.EntityTypeSku, EntityID: gtinEntity,
	})
	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeLWIN, IDValue: "1012361",
		EntityType: models.EntityTypeMaster, EntityID: lwinEntity,
	})
	chain := NewChain(idents, &fakeMasters{}, newFakeSkus(), true, testLogger())

	in := gtinInput("1234567890123")
	in.Identifiers.LWIN = strPtr("1012361")

	out, err := chain.Resolve(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchMethodGTINExact, out.MatchMethod)
	assert.Equal(t, gtinEntity, *out.MatchedEntityID)
}

func TestChain_LWINRegisteredMaster(t *testing.T) {
	idents := newFakeIdentifiers()
	masterID := uuid.NewString()
	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeLWIN, IDValue: "1012361",
		EntityType: models.EntityTypeMaster, EntityID: masterID,
	})
	chain := NewChain(idents, &fakeMasters{}, newFakeSkus(), true, testLogger())

	in := &models.MatchProductInput{
		TenantID:    "tenant-1",
		Source:      models.SourceRef{SourceType: models.SourceTypeOfferLine, SourceID: "offer-1"},
		Identifiers: &models.InputIdentifiers{LWIN: strPtr("1012361")},
	}

	out, err := chain.Resolve(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	// no vintage/bottle supplied, so the master hit stands as-is
	assert.Equal(t, models.MatchStatusAutoMatch, out.Status)
	assert.Equal(t, 1.0, out.Confidence)
	assert.Equal(t, models.MatchMethodLWINExact, out.MatchMethod)
	assert.Equal(t, models.EntityTypeMaster, *out.MatchedEntityType)
	assert.Equal(t, masterID, *out.MatchedEntityID)
}

func TestChain_LWINNarrowsToSku(t *testing.T) {
	idents := newFakeIdentifiers()
	skus := newFakeSkus()
	masterID := uuid.NewString()
	sku, err := skus.Create(context.Background(), &models.WineSku{
		TenantID: "tenant-1", MasterProductID: masterID, Vintage: intPtr(2015), BottleML: intPtr(750),
	})
	require.NoError(t, err)

	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeLWIN, IDValue: "1012361",
		EntityType: models.EntityTypeMaster, EntityID: masterID,
	})
	chain := NewChain(idents, &fakeMasters{}, skus, true, testLogger())

	in := &models.MatchProductInput{
		TenantID:     "tenant-1",
		Source:       models.SourceRef{SourceType: models.SourceTypeOfferLine, SourceID: "offer-1"},
		Identifiers:  &models.InputIdentifiers{LWIN: strPtr("1012361")},
		TextFallback: &models.TextFallback{Vintage: intPtr(2015), BottleML: intPtr(750)},
	}

	out, err := chain.Resolve(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusAutoMatch, out.Status)
	assert.Equal(t, models.EntityTypeSku, *out.MatchedEntityType)
	assert.Equal(t, sku.ID, *out.MatchedEntityID)
}

func TestChain_LWINMasterWithoutVariantSuggests(t *testing.T) {
	idents := newFakeIdentifiers()
	skus := newFakeSkus()
	masterID := uuid.NewString()
	for _, vintage := range []int{2014, 2016} {
		_, err := skus.Create(context.Background(), &models.WineSku{
			TenantID: "tenant-1", MasterProductID: masterID, Vintage: intPtr(vintage), BottleML: intPtr(750),
		})
		require.NoError(t, err)
	}

	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeLWIN, IDValue: "1012361",
		EntityType: models.EntityTypeMaster, EntityID: masterID,
	})
	chain := NewChain(idents, &fakeMasters{}, skus, true, testLogger())

	in := &models.MatchProductInput{
		TenantID:     "tenant-1",
		Source:       models.SourceRef{SourceType: models.SourceTypeOfferLine, SourceID: "offer-1"},
		Identifiers:  &models.InputIdentifiers{LWIN: strPtr("1012361")},
		TextFallback: &models.TextFallback{Vintage: intPtr(2015), BottleML: intPtr(750)},
	}

	out, err := chain.Resolve(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	// known master, unknown variant: suggest the siblings for disambiguation
	assert.Equal(t, models.MatchStatusSuggested, out.Status)
	assert.Equal(t, 0.8, out.Confidence)
	assert.Equal(t, models.EntityTypeMaster, *out.MatchedEntityType)
	assert.Equal(t, masterID, *out.MatchedEntityID)
	assert.Len(t, out.Candidates, 2)
	for _, c := range out.Candidates {
		assert.Equal(t, models.EntityTypeSku, c.EntityType)
		assert.Equal(t, 0.8, c.Score)
	}
}

func TestChain_ScopedSkus(t *testing.T) {
	idents := newFakeIdentifiers()
	producerEntity := uuid.NewString()
	importerEntity := uuid.NewString()
	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeProducerSku, IDValue: "PSKU-1", IssuerID: "producer-9",
		EntityType: models.EntityTypeMaster, EntityID: producerEntity,
	})
	idents.put(&models.ProductIdentifier{
		TenantID: "tenant-1", IDType: models.IdentifierTypeImporterSku, IDValue: "ISKU-1", IssuerID: "importer-3",
		EntityType: models.EntityTypeSku, EntityID: importerEntity,
	})
	chain := NewChain(idents, &fakeMasters{}, newFakeSkus(), true, testLogger())

	t.Run("producer sku matches at 0.95", func(t *testing.T) {
		in := &models.MatchProductInput{
			TenantID: "tenant-1",
			Source:   models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-1"},
			Identifiers: &models.InputIdentifiers{
				ProducerSku: strPtr("psku-1"),
				ProducerID:  strPtr("producer-9"),
			},
		}
		out, err := chain.Resolve(context.Background(), in)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, models.MatchStatusAutoMatchWithGuards, out.Status)
		assert.Equal(t, 0.95, out.Confidence)
		assert.Equal(t, models.MatchMethodSkuExact, out.MatchMethod)
		assert.Equal(t, producerEntity, *out.MatchedEntityID)
	})

	t.Run("importer sku matches at 0.90", func(t *testing.T) {
		in := &models.MatchProductInput{
			TenantID: "tenant-1",
			Source:   models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-2"},
			Identifiers: &models.InputIdentifiers{
				ImporterSku: strPtr("isku-1"),
				ImporterID:  strPtr("importer-3"),
			},
		}
		out, err := chain.Resolve(context.Background(), in)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, models.MatchStatusAutoMatchWithGuards, out.Status)
		assert.Equal(t, 0.90, out.Confidence)
		assert.Equal(t, importerEntity, *out.MatchedEntityID)
	})

	t.Run("sku without issuer is skipped", func(t *testing.T) {
		in := &models.MatchProductInput{
			TenantID:    "tenant-1",
			Source:      models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-3"},
			Identifiers: &models.InputIdentifiers{ProducerSku: strPtr("psku-1")},
		}
		out, err := chain.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("unregistered sku never auto-creates", func(t *testing.T) {
		in := &models.MatchProductInput{
			TenantID: "tenant-1",
			Source:   models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-4"},
			Identifiers: &models.InputIdentifiers{
				ProducerSku: strPtr("unknown"),
				ProducerID:  strPtr("producer-9"),
			},
		}
		out, err := chain.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestChain_NoIdentifiers(t *testing.T) {
	chain := NewChain(newFakeIdentifiers(), &fakeMasters{}, newFakeSkus(), true, testLogger())

	out, err := chain.Resolve(context.Background(), &models.MatchProductInput{
		TenantID:     "tenant-1",
		Source:       models.SourceRef{SourceType: models.SourceTypeManual, SourceID: "m-1"},
		TextFallback: &models.TextFallback{Name: strPtr("Chateau Margaux")},
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}
