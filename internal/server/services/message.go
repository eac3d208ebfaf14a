package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/dbx"
	"github.com/tdnguyen/roomchat/internal/server/models"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
)

type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager) *MessageService {
	return &MessageService{
		db:          db,
		repomanager: m,
	}
}

// Post creates a message. If quotedID is set, the quoted message's author and
// content are snapshotted into the new row at this moment; a quoted id that
// no longer resolves is recorded with empty snapshot fields rather than
// failing the post.
func (s *MessageService) Post(ctx context.Context, userID int64, content string, quotedID *int64) (*models.Message, error) {

	if strings.TrimSpace(content) == "" {
		return nil, common.ErrValidation
	}

	author, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading author: %w", err)
	}

	repo := s.repomanager.Messages(s.db)

	msg := &models.Message{
		UserID:     userID,
		AuthorName: author.Username,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		Reactions:  models.ReactionMap{},
	}

	if quotedID != nil {
		msg.QuotedMessageID = quotedID
		quoted, err := repo.GetByID(ctx, *quotedID)
		if err == nil {
			msg.QuotedAuthor = &quoted.AuthorName
			msg.QuotedContent = &quoted.Content
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("error resolving quoted message: %w", err)
		}
	}

	if msg, err = repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	return msg, nil
}

// Edit replaces a message's content and stamps EditedAt. Only the author may
// edit; admins cannot edit other users' messages.
func (s *MessageService) Edit(ctx context.Context, userID, messageID int64, content string) (*models.Message, error) {

	if strings.TrimSpace(content) == "" {
		return nil, common.ErrValidation
	}

	repo := s.repomanager.Messages(s.db)

	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != userID {
		return nil, common.ErrPermission
	}

	now := time.Now().UTC()
	if err := repo.UpdateContent(ctx, messageID, content, now); err != nil {
		return nil, fmt.Errorf("error updating message: %w", err)
	}

	msg.Content = content
	msg.EditedAt = &now
	return msg, nil
}

// Delete removes a message. The author may delete their own; an admin may
// delete anyone's.
func (s *MessageService) Delete(ctx context.Context, userID, messageID int64) error {

	repo := s.repomanager.Messages(s.db)

	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	if msg.UserID != userID {
		actor, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error loading actor: %w", err)
		}
		if !actor.IsAdmin {
			return common.ErrPermission
		}
	}

	if err := repo.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

// ToggleReaction flips the caller's reaction on a message and returns the
// resulting reaction map. The row is locked for the duration of the
// transaction so concurrent toggles on the same message serialize instead of
// overwriting each other.
func (s *MessageService) ToggleReaction(ctx context.Context, userID, messageID int64, emoji string) (models.ReactionMap, error) {

	if emoji == "" {
		return nil, common.ErrValidation
	}

	var reactions models.ReactionMap

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		locked, err := repo.GetByIDForUpdate(ctx, messageID)
		if err != nil {
			return err
		}

		locked.Reactions.Toggle(userID, emoji)

		if err := repo.UpdateReactions(ctx, messageID, locked.Reactions); err != nil {
			return fmt.Errorf("error updating reactions: %w", err)
		}

		reactions = locked.Reactions
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reactions, nil
}
