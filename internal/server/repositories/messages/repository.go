package messages

import (
	"context"
	"time"

	"github.com/tdnguyen/roomchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	// GetByIDForUpdate locks the message row for the duration of the
	// surrounding transaction, serializing read-modify-write cycles on the
	// reaction map.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Message, error)
	UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error
	UpdateReactions(ctx context.Context, id int64, reactions models.ReactionMap) error
	Delete(ctx context.Context, id int64) error
	// SelectSince returns messages with timestamp strictly after the
	// watermark, ascending by (timestamp, id).
	SelectSince(ctx context.Context, watermark time.Time) ([]*models.Message, error)
	// SelectEditedSince returns messages edited after the watermark whose
	// creation is at or before it, i.e. edits to messages the client
	// already has.
	SelectEditedSince(ctx context.Context, watermark time.Time) ([]*models.Message, error)
	// SelectRecent returns the newest messages, descending. Callers reverse
	// the slice for chronological rendering.
	SelectRecent(ctx context.Context, limit int) ([]*models.Message, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
