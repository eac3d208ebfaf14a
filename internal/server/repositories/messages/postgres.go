package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/dbx"
	"github.com/tdnguyen/roomchat/internal/server/models"
)

// PostgresRepository implements message storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectBase = `SELECT m.id, m.user_id, u.username, m.content, m.timestamp, m.edited_at, m.reactions,
		m.quoted_message_id, m.quoted_author_username, m.quoted_message_content
		FROM messages m JOIN users u ON u.id = m.user_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*models.Message, error) {
	m := &models.Message{}
	var reactions []byte
	err := row.Scan(&m.ID, &m.UserID, &m.AuthorName, &m.Content, &m.Timestamp, &m.EditedAt, &reactions,
		&m.QuotedMessageID, &m.QuotedAuthor, &m.QuotedContent)
	if err != nil {
		return nil, err
	}
	m.Reactions = models.ReactionMap{}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &m.Reactions); err != nil {
			return nil, fmt.Errorf("reactions decode error: %w", err)
		}
	}
	return m, nil
}

func marshalReactions(m models.ReactionMap) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(m)
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {

	reactions, err := marshalReactions(m.Reactions)
	if err != nil {
		return nil, fmt.Errorf("reactions encode error: %w", err)
	}

	query :=
		`INSERT INTO messages (user_id, content, timestamp, reactions, quoted_message_id, quoted_author_username, quoted_message_content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err = r.db.QueryRowContext(ctx, query,
		m.UserID, m.Content, m.Timestamp, reactions,
		m.QuotedMessageID, m.QuotedAuthor, m.QuotedContent).Scan(&m.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := selectBase + ` WHERE m.id = $1`

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// GetByIDForUpdate selects the bare messages row with FOR UPDATE; the author
// join is skipped so the lock stays on the single row. AuthorName is left
// empty.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Message, error) {
	query :=
		`SELECT id, user_id, content, timestamp, edited_at, reactions,
		 quoted_message_id, quoted_author_username, quoted_message_content
		 FROM messages WHERE id = $1 FOR UPDATE`

	m := &models.Message{}
	var reactions []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.UserID, &m.Content, &m.Timestamp, &m.EditedAt, &reactions,
		&m.QuotedMessageID, &m.QuotedAuthor, &m.QuotedContent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.Reactions = models.ReactionMap{}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &m.Reactions); err != nil {
			return nil, fmt.Errorf("reactions decode error: %w", err)
		}
	}
	return m, nil
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	query := `UPDATE messages SET content = $2, edited_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, content, editedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateReactions(ctx context.Context, id int64, reactions models.ReactionMap) error {
	encoded, err := marshalReactions(reactions)
	if err != nil {
		return fmt.Errorf("reactions encode error: %w", err)
	}

	query := `UPDATE messages SET reactions = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, encoded)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM messages WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) SelectSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	query := selectBase + `
		WHERE m.timestamp > $1
		ORDER BY m.timestamp ASC, m.id ASC`

	return r.selectMany(ctx, query, watermark)
}

func (r *PostgresRepository) SelectEditedSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	query := selectBase + `
		WHERE m.edited_at > $1 AND m.timestamp <= $1
		ORDER BY m.timestamp ASC, m.id ASC`

	return r.selectMany(ctx, query, watermark)
}

func (r *PostgresRepository) SelectRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	query := selectBase + `
		ORDER BY m.timestamp DESC, m.id DESC
		LIMIT $1`

	return r.selectMany(ctx, query, limit)
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM messages WHERE timestamp < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		item, err := scanMessage(rows)
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

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
