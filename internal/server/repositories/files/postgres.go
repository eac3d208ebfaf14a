package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/dbx"
	"github.com/tdnguyen/roomchat/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). Physical blobs live in the blob store, keyed by
// storage_name.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectBase = `SELECT f.id, f.user_id, u.username, f.storage_name, f.original_name, f.file_type, f.file_size, f.upload_time
		FROM files f JOIN users u ON u.id = f.user_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.UserID, &f.UploaderName, &f.StorageName, &f.OriginalName, &f.FileType, &f.FileSize, &f.UploadTime)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (user_id, storage_name, original_name, file_type, file_size, upload_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		f.UserID, f.StorageName, f.OriginalName, f.FileType, f.FileSize, f.UploadTime).Scan(&f.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := selectBase + ` WHERE f.id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM files WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SelectSince(ctx context.Context, watermark time.Time) ([]*models.File, error) {
	query := selectBase + `
		WHERE f.upload_time > $1
		ORDER BY f.upload_time ASC, f.id ASC`

	return r.selectMany(ctx, query, watermark)
}

func (r *PostgresRepository) SelectRecent(ctx context.Context, limit int) ([]*models.File, error) {
	query := selectBase + `
		ORDER BY f.upload_time DESC, f.id DESC
		LIMIT $1`

	return r.selectMany(ctx, query, limit)
}

func (r *PostgresRepository) SelectOlderThan(ctx context.Context, cutoff time.Time) ([]*models.File, error) {
	query := selectBase + `
		WHERE f.upload_time < $1
		ORDER BY f.upload_time ASC, f.id ASC`

	return r.selectMany(ctx, query, cutoff)
}

func (r *PostgresRepository) SelectByUser(ctx context.Context, userID int64) ([]*models.File, error) {
	query := selectBase + ` WHERE f.user_id = $1`

	return r.selectMany(ctx, query, userID)
}

func (r *PostgresRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		item, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
