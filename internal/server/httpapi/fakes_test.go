package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/dbx"
	"github.com/tdnguyen/roomchat/internal/logging"
	"github.com/tdnguyen/roomchat/internal/server/models"
	filesrepo "github.com/tdnguyen/roomchat/internal/server/repositories/files"
	messagesrepo "github.com/tdnguyen/roomchat/internal/server/repositories/messages"
	usersrepo "github.com/tdnguyen/roomchat/internal/server/repositories/users"
)

// In-memory repositories backing real services for handler tests.

type memUsersRepo struct {
	users map[int64]*models.User
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	u.ID = int64(len(r.users) + 1)
	r.users[u.ID] = u
	return u, nil
}

func (r *memUsersRepo) GetByLogin(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if u, ok := r.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (r *memUsersRepo) UpdateUsername(ctx context.Context, id int64, username string) error {
	if u, ok := r.users[id]; ok {
		u.Username = username
	}
	return nil
}

func (r *memUsersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUsersRepo) ClaimSweep(ctx context.Context, id int64, now time.Time) (bool, error) {
	u, ok := r.users[id]
	if !ok || !u.IsAdmin {
		return false, nil
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if u.LastSweepAt != nil && !u.LastSweepAt.Before(dayStart) {
		return false, nil
	}
	u.LastSweepAt = &now
	return true, nil
}

func (r *memUsersRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

func (r *memUsersRepo) ListRegular(ctx context.Context) ([]*models.User, error) {
	var result []*models.User
	for _, u := range r.users {
		if !u.IsAdmin {
			result = append(result, u)
		}
	}
	return result, nil
}

type memMessagesRepo struct {
	messages map[int64]*models.Message
	nextID   int64
}

func (r *memMessagesRepo) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	r.nextID++
	m.ID = r.nextID
	r.messages[m.ID] = m
	return m, nil
}

func (r *memMessagesRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	if m, ok := r.messages[id]; ok {
		return m, nil
	}
	return nil, common.ErrNotFound
}

func (r *memMessagesRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Message, error) {
	return r.GetByID(ctx, id)
}

func (r *memMessagesRepo) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	m, ok := r.messages[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Content = content
	m.EditedAt = &editedAt
	return nil
}

func (r *memMessagesRepo) UpdateReactions(ctx context.Context, id int64, reactions models.ReactionMap) error {
	m, ok := r.messages[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Reactions = reactions
	return nil
}

func (r *memMessagesRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.messages[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *memMessagesRepo) SelectSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	var result []*models.Message
	for _, m := range r.messages {
		if m.Timestamp.After(watermark) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memMessagesRepo) SelectEditedSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	var result []*models.Message
	for _, m := range r.messages {
		if m.EditedAt != nil && m.EditedAt.After(watermark) && !m.Timestamp.After(watermark) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memMessagesRepo) SelectRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	var result []*models.Message
	for _, m := range r.messages {
		result = append(result, m)
	}
	return result, nil
}

func (r *memMessagesRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, m := range r.messages {
		if m.Timestamp.Before(cutoff) {
			delete(r.messages, id)
			n++
		}
	}
	return n, nil
}

type memFilesRepo struct {
	files  map[int64]*models.File
	nextID int64
}

func (r *memFilesRepo) Create(ctx context.Context, f *models.File) (*models.File, error) {
	r.nextID++
	f.ID = r.nextID
	r.files[f.ID] = f
	return f, nil
}

func (r *memFilesRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	if f, ok := r.files[id]; ok {
		return f, nil
	}
	return nil, common.ErrNotFound
}

func (r *memFilesRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.files[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *memFilesRepo) SelectSince(ctx context.Context, watermark time.Time) ([]*models.File, error) {
	var result []*models.File
	for _, f := range r.files {
		if f.UploadTime.After(watermark) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *memFilesRepo) SelectRecent(ctx context.Context, limit int) ([]*models.File, error) {
	var result []*models.File
	for _, f := range r.files {
		result = append(result, f)
	}
	return result, nil
}

func (r *memFilesRepo) SelectOlderThan(ctx context.Context, cutoff time.Time) ([]*models.File, error) {
	var result []*models.File
	for _, f := range r.files {
		if f.UploadTime.Before(cutoff) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *memFilesRepo) SelectByUser(ctx context.Context, userID int64) ([]*models.File, error) {
	var result []*models.File
	for _, f := range r.files {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	return result, nil
}

type memRepoManager struct {
	u *memUsersRepo
	m *memMessagesRepo
	f *memFilesRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		u: &memUsersRepo{users: map[int64]*models.User{}},
		m: &memMessagesRepo{messages: map[int64]*models.Message{}},
		f: &memFilesRepo{files: map[int64]*models.File{}},
	}
}

func (rm *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (rm *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return rm.u }
func (rm *memRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository { return rm.m }
func (rm *memRepoManager) Files(db dbx.DBTX) filesrepo.Repository { return rm.f }

type memBlobStore struct {
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: map[string][]byte{}}
}

func (s *memBlobStore) Save(ctx context.Context, name string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.blobs[name] = b
	return nil
}

func (s *memBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.blobs[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memBlobStore) Remove(ctx context.Context, name string) error {
	delete(s.blobs, name)
	return nil
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
