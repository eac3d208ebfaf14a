package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/logging"
	"github.com/tdnguyen/roomchat/internal/server/blob"
	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/models"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
)

var (
	imageExtensions   = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	archiveExtensions = map[string]bool{".zip": true, ".rar": true, ".7z": true}
)

// classifyExtension maps a filename to its file type tag, or "" when the
// extension is not on either allow-list.
func classifyExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return models.FileTypeImage
	case archiveExtensions[ext]:
		return models.FileTypeArchive
	default:
		return ""
	}
}

// Upload is a single file within a batch upload request.
type Upload struct {
	Name string
	Data io.Reader
}

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	maxFileSize int64
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, blobs blob.Store, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}
}

// UploadBatch stores a batch of files for the user. Files with disallowed
// extensions, oversized contents, or failing reads/blob writes are skipped,
// not rejected: the batch succeeds as long as at least one file is accepted.
// Each accepted file is stored under a fresh server-generated name; the
// original name is kept as metadata only.
func (s *FileService) UploadBatch(ctx context.Context, userID int64, uploads []Upload) ([]*models.File, error) {

	repo := s.repomanager.Files(s.db)

	var accepted []*models.File

	for _, u := range uploads {
		fileType := classifyExtension(u.Name)
		if fileType == "" {
			continue
		}

		// read one byte past the cap to detect oversize without buffering
		// unbounded input
		data, err := io.ReadAll(io.LimitReader(u.Data, s.maxFileSize+1))
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable upload", "name", u.Name, "error", err)
			continue
		}
		if int64(len(data)) > s.maxFileSize {
			continue
		}

		storageName := randomStorageName(u.Name)

		if err := s.blobs.Save(ctx, storageName, bytes.NewReader(data)); err != nil {
			s.logger.Warn(ctx, "skipping upload after blob write failure", "name", u.Name, "error", err)
			continue
		}

		f, err := repo.Create(ctx, &models.File{
			UserID:       userID,
			StorageName:  storageName,
			OriginalName: filepath.Base(u.Name),
			FileType:     fileType,
			FileSize:     int64(len(data)),
			UploadTime:   time.Now().UTC(),
		})
		if err != nil {
			_ = s.blobs.Remove(ctx, storageName)
			return nil, fmt.Errorf("error recording upload %s: %w", u.Name, err)
		}

		accepted = append(accepted, f)
	}

	if len(accepted) == 0 {
		return nil, common.ErrValidation
	}

	return accepted, nil
}

// DeleteFile removes a file record and its blob. The uploader may delete
// their own files; an admin may delete anyone's. Blob removal is best-effort:
// a missing blob does not resurrect the record.
func (s *FileService) DeleteFile(ctx context.Context, userID, fileID int64) error {

	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	if f.UserID != userID {
		actor, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error loading actor: %w", err)
		}
		if !actor.IsAdmin {
			return common.ErrPermission
		}
	}

	if err := repo.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}

	_ = s.blobs.Remove(ctx, f.StorageName)
	return nil
}

// Open returns the blob contents for an uploaded file by storage name.
func (s *FileService) Open(ctx context.Context, storageName string) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, storageName)
}

func randomStorageName(originalName string) string {
	u := uuid.New()
	return hex.EncodeToString(u[:]) + strings.ToLower(filepath.Ext(originalName))
}
