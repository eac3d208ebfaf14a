package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tdnguyen/roomchat/internal/logging"
	"github.com/tdnguyen/roomchat/internal/server/blob"
	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
)

// SweepResult reports what a retention sweep removed.
type SweepResult struct {
	Swept           bool
	MessagesDeleted int64
	FilesDeleted    int64
}

// RetentionService removes expired messages and files. A sweep runs at most
// once per admin per UTC calendar day, triggered by that admin's first
// login of the day.
type RetentionService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	blobs            blob.Store
	logger           logging.Logger
	messageRetention time.Duration
	fileRetention    time.Duration
}

func NewRetentionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, blobs blob.Store, logger logging.Logger) *RetentionService {
	return &RetentionService{
		db:               db,
		repomanager:      m,
		blobs:            blobs,
		logger:           logger,
		messageRetention: cfg.MessageRetention,
		fileRetention:    cfg.FileRetention,
	}
}

// MaybeSweep runs the retention sweep if userID is an admin who has not yet
// swept today (UTC). For non-admins and already-claimed days it is a cheap
// no-op. The claim is recorded before any deletion, so two concurrent
// requests by the same admin cannot both sweep.
func (s *RetentionService) MaybeSweep(ctx context.Context, userID int64) (*SweepResult, error) {

	userRepo := s.repomanager.Users(s.db)

	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !user.IsAdmin {
		return &SweepResult{}, nil
	}

	now := time.Now().UTC()

	claimed, err := userRepo.ClaimSweep(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("error claiming sweep: %w", err)
	}
	if !claimed {
		return &SweepResult{}, nil
	}

	result := &SweepResult{Swept: true}

	deleted, err := s.repomanager.Messages(s.db).DeleteOlderThan(ctx, now.Add(-s.messageRetention))
	if err != nil {
		return nil, fmt.Errorf("error sweeping messages: %w", err)
	}
	result.MessagesDeleted = deleted

	fileRepo := s.repomanager.Files(s.db)

	expired, err := fileRepo.SelectOlderThan(ctx, now.Add(-s.fileRetention))
	if err != nil {
		return nil, fmt.Errorf("error selecting expired files: %w", err)
	}

	for _, f := range expired {
		if err := s.blobs.Remove(ctx, f.StorageName); err != nil {
			s.logger.Warn(ctx, "failed to remove expired blob", "storage_name", f.StorageName, "error", err)
		}
		if err := fileRepo.Delete(ctx, f.ID); err != nil {
			return nil, fmt.Errorf("error deleting expired file: %w", err)
		}
		result.FilesDeleted++
	}

	s.logger.Info(ctx, "retention sweep finished",
		"admin_id", userID,
		"messages_deleted", result.MessagesDeleted,
		"files_deleted", result.FilesDeleted)

	return result, nil
}
