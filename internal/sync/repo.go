package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/pkg/db/models"
)

// Repo records sync bookkeeping on product variants.
type Repo struct {
	db *gorm.DB
}

// NewRepo returns a sync repository bound to the provided database.
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// MarkSynced stamps the variant with the time its availability last reached
// the CMS.
func (r *Repo) MarkSynced(ctx context.Context, variantID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("synced_at", at).Error
}
