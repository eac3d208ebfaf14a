// Package services implements the application logic of the chat server on
// top of the repository layer.
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
	"github.com/tdnguyen/roomchat/internal/server/auth"
	"github.com/tdnguyen/roomchat/internal/server/blob"
	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/models"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
)

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	blobs                       blob.Store
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	adminUsername               string
	adminPassword               string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, blobs blob.Store) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		blobs:                       blobs,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		adminUsername:               cfg.AdminUsername,
		adminPassword:               cfg.AdminPassword,
	}
}

// Login verifies the credentials and returns the user together with a signed
// access token. Unknown usernames and wrong passwords are indistinguishable
// to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrUnauthorized
		}
		return nil, "", fmt.Errorf("error searching user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", common.ErrUnauthorized
	}

	now := time.Now().UTC()
	if err := repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", fmt.Errorf("error updating last login: %w", err)
	}
	user.LastLogin = &now

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, "", fmt.Errorf("error generating token: %w", err)
	}

	return user, token, nil
}

// CreateUser creates a regular (non-admin) account. Admin only: there is no
// self-registration, accounts are handed out by the admin.
func (s *UserService) CreateUser(ctx context.Context, actorID int64, username, password string) (*models.User, error) {

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, common.ErrValidation
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByLogin(ctx, username); err == nil {
		return nil, common.ErrValidation
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking username: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// EnsureAdmin creates the bootstrap admin account on first start. If an
// account with the configured admin username already exists it is left
// untouched, whatever its password.
func (s *UserService) EnsureAdmin(ctx context.Context) error {

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByLogin(ctx, s.adminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("error searching admin user: %w", err)
	}

	hash, err := auth.HashPassword(s.adminPassword)
	if err != nil {
		return fmt.Errorf("error hashing admin password: %w", err)
	}

	_, err = repo.Create(ctx, &models.User{
		Username:     s.adminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("error creating admin user: %w", err)
	}

	return nil
}

// ListUsers returns all regular accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actorID int64) ([]*models.User, error) {

	repo := s.repomanager.Users(s.db)

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	result, err := repo.ListRegular(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return result, nil
}

// UpdateUser changes a regular user's username and/or password. Empty values
// leave the corresponding credential unchanged. Admin only; admin accounts
// cannot be targeted.
func (s *UserService) UpdateUser(ctx context.Context, actorID, targetID int64, username, password string) error {

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	username = strings.TrimSpace(username)
	if username == "" && password == "" {
		return common.ErrValidation
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		target, err := repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.IsAdmin {
			return common.ErrPermission
		}

		if username != "" && username != target.Username {
			if _, err := repo.GetByLogin(ctx, username); err == nil {
				return common.ErrValidation
			} else if !errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("error checking username: %w", err)
			}
			if err := repo.UpdateUsername(ctx, targetID, username); err != nil {
				return fmt.Errorf("error updating username: %w", err)
			}
		}

		if password != "" {
			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("error hashing password: %w", err)
			}
			if err := repo.UpdatePasswordHash(ctx, targetID, hash); err != nil {
				return fmt.Errorf("error updating password: %w", err)
			}
		}

		return nil
	})
}

// DeleteUser removes a regular account together with its messages and files.
// Blobs belonging to the user are removed best-effort before the row is
// deleted; database cascade takes care of the records. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID int64) error {

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)

	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin {
		return common.ErrPermission
	}

	owned, err := s.repomanager.Files(s.db).SelectByUser(ctx, targetID)
	if err != nil {
		return fmt.Errorf("error listing user files: %w", err)
	}
	for _, f := range owned {
		_ = s.blobs.Remove(ctx, f.StorageName)
	}

	if err := repo.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	return nil
}

func (s *UserService) requireAdmin(ctx context.Context, actorID int64) error {
	actor, err := s.repomanager.Users(s.db).GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrPermission
		}
		return fmt.Errorf("error loading actor: %w", err)
	}
	if !actor.IsAdmin {
		return common.ErrPermission
	}
	return nil
}
