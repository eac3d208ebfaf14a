package users

import (
	"context"
	"time"

	"github.com/tdnguyen/roomchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByLogin(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	// ClaimSweep atomically records a retention sweep for the admin if none
	// has been recorded yet on the same UTC calendar day. It reports whether
	// the claim succeeded.
	ClaimSweep(ctx context.Context, id int64, now time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListRegular(ctx context.Context) ([]*models.User, error)
}
