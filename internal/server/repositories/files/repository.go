package files

import (
	"context"
	"time"

	"github.com/tdnguyen/roomchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.File) (*models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Delete(ctx context.Context, id int64) error
	// SelectSince returns files uploaded strictly after the watermark,
	// ascending by (upload_time, id).
	SelectSince(ctx context.Context, watermark time.Time) ([]*models.File, error)
	// SelectRecent returns the newest files, descending. Callers reverse
	// the slice for chronological rendering.
	SelectRecent(ctx context.Context, limit int) ([]*models.File, error)
	// SelectOlderThan returns files past the retention cutoff so callers
	// can remove the physical blobs before deleting records.
	SelectOlderThan(ctx context.Context, cutoff time.Time) ([]*models.File, error)
	SelectByUser(ctx context.Context, userID int64) ([]*models.File, error)
}
