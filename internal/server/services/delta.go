package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/models"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
)

// DeltaService answers the polling queries: "what changed since my
// watermark" and "give me the recent history".
type DeltaService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	messageLimit int
	fileLimit    int
}

func NewDeltaService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *DeltaService {
	return &DeltaService{
		db:           db,
		repomanager:  m,
		messageLimit: cfg.HistoryMessageLimit,
		fileLimit:    cfg.HistoryFileLimit,
	}
}

// Delta collects everything new or changed strictly after the watermark.
// A message both created and edited after the watermark shows up only as a
// new message, never as an edit.
func (s *DeltaService) Delta(ctx context.Context, watermark time.Time) (*models.Delta, error) {

	msgRepo := s.repomanager.Messages(s.db)
	fileRepo := s.repomanager.Files(s.db)

	newMessages, err := msgRepo.SelectSince(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("error selecting new messages: %w", err)
	}

	edited, err := msgRepo.SelectEditedSince(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("error selecting edited messages: %w", err)
	}

	newFiles, err := fileRepo.SelectSince(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("error selecting new files: %w", err)
	}

	return &models.Delta{
		Messages: newMessages,
		Files:    newFiles,
		Edited:   edited,
	}, nil
}

// History returns the initial-load view: the newest messages and files up to
// the configured caps, each in chronological order.
func (s *DeltaService) History(ctx context.Context) ([]*models.Message, []*models.File, error) {

	recentMessages, err := s.repomanager.Messages(s.db).SelectRecent(ctx, s.messageLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("error selecting recent messages: %w", err)
	}

	recentFiles, err := s.repomanager.Files(s.db).SelectRecent(ctx, s.fileLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("error selecting recent files: %w", err)
	}

	reverse(recentMessages)
	reverse(recentFiles)

	return recentMessages, recentFiles, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
