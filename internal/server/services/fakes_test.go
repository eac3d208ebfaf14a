package services

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

// --- fakes shared by the service tests ---

type fakeUsersRepo struct {
	createFn      func(u *models.User) (*models.User, error)
	getByLoginFn  func(username string) (*models.User, error)
	getByIDFn     func(id int64) (*models.User, error)
	claimSweepFn  func(id int64, now time.Time) (bool, error)
	listRegularFn func() ([]*models.User, error)

	lastLoginID      int64
	updatedUsernames map[int64]string
	updatedHashes    map[int64]string
	deletedIDs       []int64
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createFn != nil {
		return f.createFn(u)
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, username string) (*models.User, error) {
	if f.getByLoginFn != nil {
		return f.getByLoginFn(username)
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(id)
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	f.lastLoginID = id
	return nil
}

func (f *fakeUsersRepo) UpdateUsername(ctx context.Context, id int64, username string) error {
	if f.updatedUsernames == nil {
		f.updatedUsernames = map[int64]string{}
	}
	f.updatedUsernames[id] = username
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if f.updatedHashes == nil {
		f.updatedHashes = map[int64]string{}
	}
	f.updatedHashes[id] = hash
	return nil
}

func (f *fakeUsersRepo) ClaimSweep(ctx context.Context, id int64, now time.Time) (bool, error) {
	if f.claimSweepFn != nil {
		return f.claimSweepFn(id, now)
	}
	return false, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeUsersRepo) ListRegular(ctx context.Context) ([]*models.User, error) {
	if f.listRegularFn != nil {
		return f.listRegularFn()
	}
	return nil, nil
}

type fakeMessagesRepo struct {
	createFn            func(m *models.Message) (*models.Message, error)
	getByIDFn           func(id int64) (*models.Message, error)
	getByIDForUpdateFn  func(id int64) (*models.Message, error)
	selectSinceFn       func(watermark time.Time) ([]*models.Message, error)
	selectEditedSinceFn func(watermark time.Time) ([]*models.Message, error)
	selectRecentFn      func(limit int) ([]*models.Message, error)
	deleteOlderThanFn   func(cutoff time.Time) (int64, error)

	updatedContent   map[int64]string
	updatedReactions map[int64]models.ReactionMap
	deletedIDs       []int64
}

func (f *fakeMessagesRepo) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	if f.createFn != nil {
		return f.createFn(m)
	}
	return m, nil
}

func (f *fakeMessagesRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(id)
	}
	return nil, common.ErrNotFound
}

func (f *fakeMessagesRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Message, error) {
	if f.getByIDForUpdateFn != nil {
		return f.getByIDForUpdateFn(id)
	}
	return nil, common.ErrNotFound
}

func (f *fakeMessagesRepo) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	if f.updatedContent == nil {
		f.updatedContent = map[int64]string{}
	}
	f.updatedContent[id] = content
	return nil
}

func (f *fakeMessagesRepo) UpdateReactions(ctx context.Context, id int64, reactions models.ReactionMap) error {
	if f.updatedReactions == nil {
		f.updatedReactions = map[int64]models.ReactionMap{}
	}
	f.updatedReactions[id] = reactions
	return nil
}

func (f *fakeMessagesRepo) Delete(ctx context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeMessagesRepo) SelectSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	if f.selectSinceFn != nil {
		return f.selectSinceFn(watermark)
	}
	return nil, nil
}

func (f *fakeMessagesRepo) SelectEditedSince(ctx context.Context, watermark time.Time) ([]*models.Message, error) {
	if f.selectEditedSinceFn != nil {
		return f.selectEditedSinceFn(watermark)
	}
	return nil, nil
}

func (f *fakeMessagesRepo) SelectRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	if f.selectRecentFn != nil {
		return f.selectRecentFn(limit)
	}
	return nil, nil
}

func (f *fakeMessagesRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteOlderThanFn != nil {
		return f.deleteOlderThanFn(cutoff)
	}
	return 0, nil
}

type fakeFilesRepo struct {
	createFn       func(f *models.File) (*models.File, error)
	getByIDFn      func(id int64) (*models.File, error)
	selectSinceFn  func(watermark time.Time) ([]*models.File, error)
	selectRecentFn func(limit int) ([]*models.File, error)
	selectOlderFn  func(cutoff time.Time) ([]*models.File, error)
	selectByUserFn func(userID int64) ([]*models.File, error)

	deletedIDs []int64
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.createFn != nil {
		return f.createFn(file)
	}
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(id)
	}
	return nil, common.ErrNotFound
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeFilesRepo) SelectSince(ctx context.Context, watermark time.Time) ([]*models.File, error) {
	if f.selectSinceFn != nil {
		return f.selectSinceFn(watermark)
	}
	return nil, nil
}

func (f *fakeFilesRepo) SelectRecent(ctx context.Context, limit int) ([]*models.File, error) {
	if f.selectRecentFn != nil {
		return f.selectRecentFn(limit)
	}
	return nil, nil
}

func (f *fakeFilesRepo) SelectOlderThan(ctx context.Context, cutoff time.Time) ([]*models.File, error) {
	if f.selectOlderFn != nil {
		return f.selectOlderFn(cutoff)
	}
	return nil, nil
}

func (f *fakeFilesRepo) SelectByUser(ctx context.Context, userID int64) ([]*models.File, error) {
	if f.selectByUserFn != nil {
		return f.selectByUserFn(userID)
	}
	return nil, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	m *fakeMessagesRepo
	f *fakeFilesRepo
}

func (rm *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (rm *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return rm.u }
func (rm *fakeRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository { return rm.m }
func (rm *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository { return rm.f }

// fakeBlobStore keeps blobs in memory and records removals.
type fakeBlobStore struct {
	blobs   map[string][]byte
	removed []string
	saveFn  func(name string) error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Save(ctx context.Context, name string, data io.Reader) error {
	if s.saveFn != nil {
		if err := s.saveFn(name); err != nil {
			return err
		}
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.blobs[name] = b
	return nil
}

func (s *fakeBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.blobs[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeBlobStore) Remove(ctx context.Context, name string) error {
	s.removed = append(s.removed, name)
	delete(s.blobs, name)
	return nil
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
