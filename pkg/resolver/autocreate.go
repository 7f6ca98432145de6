package resolver

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// entityCreator performs the guarded auto-create path shared by the GTIN and
// LWIN strategies. It seeds a new master (and SKU when vintage/bottle size
// are known) from the text fallback fields and registers the identifier.
type entityCreator struct {
	identifiers IdentifierStore
	masters     MasterStore
	skus        SkuStore
	logger      ectologger.Logger
}

type createdEntities struct {
	master *models.WineMaster
	sku    *models.WineSku
	// target is the entity the identifier was registered against
	targetType models.EntityType
	targetID   string
	// conflict is true when a concurrent caller registered the identifier
	// first; the caller must re-resolve instead of failing
	conflict bool
}

// create builds a master (+ SKU when withSku), then registers the identifier
// against the SKU when one exists, else the master. A unique violation on the
// registration means another call won the race; the partially created entities
// are left orphaned (no identifier points at them) and the caller re-resolves.
func (c *entityCreator) create(ctx context.Context, in *models.MatchProductInput, idType models.IdentifierType, idValue string, withSku bool) (*createdEntities, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.entityCreator.create")
	defer span.End()

	master := &models.WineMaster{
		TenantID:      in.TenantID,
		CanonicalName: string(idType) + " " + idValue,
	}
	var vintage, bottleML *int
	if tf := in.TextFallback; tf != nil {
		if tf.Name != nil && *tf.Name != "" {
			master.CanonicalName = *tf.Name
		}
		master.Producer = tf.Producer
		master.Country = tf.Country
		master.Region = tf.Region
		master.Appellation = tf.Appellation
		vintage = tf.Vintage
		bottleML = tf.BottleML
	}

	master, err := c.masters.Create(ctx, master)
	if err != nil {
		return nil, err
	}

	result := &createdEntities{
		master:     master,
		targetType: models.EntityTypeMaster,
		targetID:   master.ID,
	}

	if withSku {
		sku, err := c.skus.Create(ctx, &models.WineSku{
			TenantID:        in.TenantID,
			MasterProductID: master.ID,
			Vintage:         vintage,
			BottleML:        bottleML,
		})
		if err != nil {
			return nil, err
		}
		result.sku = sku
		result.targetType = models.EntityTypeSku
		result.targetID = sku.ID
	}

	_, err = c.identifiers.Register(ctx, &models.ProductIdentifier{
		TenantID:   in.TenantID,
		IDType:     idType,
		IDValue:    idValue,
		IssuerID:   "",
		EntityType: result.targetType,
		EntityID:   result.targetID,
	})
	if err != nil {
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict {
			c.logger.WithContext(ctx).WithFields(map[string]any{
				"id_type": idType,
			}).Info("Concurrent auto-create won identifier registration, re-resolving")
			result.conflict = true
			return result, nil
		}
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"id_type":   idType,
		"master_id": master.ID,
	}).Info("Auto-created entity for unregistered identifier")

	return result, nil
}
