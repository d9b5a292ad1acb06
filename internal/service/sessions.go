package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"castgate/auth-api/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionConfig carries the sliding-window parameters. Values come from the
// application config, not from constants baked into this package.
type SessionConfig struct {
	// TTL is the lifetime granted at creation.
	TTL time.Duration
	// ExtendThreshold is the remaining lifetime below which an extension
	// request actually writes.
	ExtendThreshold time.Duration
	// Extension is the fresh lifetime granted by a non-noop extension.
	Extension time.Duration
}

// DefaultSessionConfig matches the documented scheme: 30 days at creation,
// slid forward by 15 days whenever less than 15 remain.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:             30 * 24 * time.Hour,
		ExtendThreshold: 15 * 24 * time.Hour,
		Extension:       15 * 24 * time.Hour,
	}
}

// Sessions owns session rows. A session ID is the bearer credential handed to
// clients, so IDs are UUIDv7: crypto-random, globally unique, time-sortable.
type Sessions struct {
	db  *gorm.DB
	cfg SessionConfig
}

func NewSessions(db *gorm.DB, cfg SessionConfig) *Sessions {
	return &Sessions{db: db, cfg: cfg}
}

func (s *Sessions) Create(ctx context.Context, userID string) (*model.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID, %w", err)
	}

	now := time.Now()
	session := model.Session{
		ID:        id.String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to store session, %w", err)
	}

	return &session, nil
}

// FindByID loads a session and validates it. Unknown IDs read as ErrNotFound,
// lapsed ones as ErrSessionExpired.
func (s *Sessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load session, %w", err)
	}

	if err := s.Validate(&session); err != nil {
		return nil, err
	}

	return &session, nil
}

// Validate passes a live session through unchanged.
func (s *Sessions) Validate(session *model.Session) error {
	if session.ExpiresAt.Before(time.Now()) {
		return ErrSessionExpired
	}

	return nil
}

// ExtendExpiry slides the expiry forward when the session is inside its
// extension window, and is a deliberate no-op otherwise so routine traffic
// doesn't write on every request. Racing extensions converge on near-equal
// expiries, so no locking is needed.
func (s *Sessions) ExtendExpiry(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining := time.Until(session.ExpiresAt)
	if remaining >= s.cfg.ExtendThreshold {
		return session, nil
	}

	session.ExpiresAt = time.Now().Add(s.cfg.Extension)
	session.UpdatedAt = time.Now()

	err = s.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at": session.ExpiresAt,
			"updated_at": session.UpdatedAt,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to extend session, %w", err)
	}

	return session, nil
}

// Delete removes a session outright (logout).
func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session, %w", err)
	}

	return nil
}

// DeleteAllExpired removes every lapsed session. Runs from the maintenance
// scheduler; safe to race with creation and use since it only touches rows
// already past expiry.
func (s *Sessions) DeleteAllExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions, %w", res.Error)
	}

	return res.RowsAffected, nil
}
