package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"castgate/auth-api/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Profile is the decoded domain view of an AuthProfile row.
type Profile struct {
	ID        string
	UserID    string
	Meta      model.ProfileMeta
	CreatedAt time.Time
}

// ProfileLinker maps external identity assertions (email address, Farcaster
// FID) onto users. Each user holds at most one profile per strategy+identity;
// a unique index on (user_id, meta) backs the in-service duplicate check.
type ProfileLinker struct {
	db *gorm.DB
}

func NewProfileLinker(db *gorm.DB) *ProfileLinker {
	return &ProfileLinker{db: db}
}

func decodeProfile(row model.AuthProfile) (*Profile, error) {
	meta, err := model.DecodeMeta(row.Meta)
	if err != nil {
		return nil, fmt.Errorf("profile %s holds undecodable meta, %w", row.ID, err)
	}

	return &Profile{
		ID:        row.ID,
		UserID:    row.UserID,
		Meta:      meta,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Create links a new identity to an existing user. Duplicates of the same
// strategy+identity fail with AlreadyExistsError. Stored rows that no longer
// decode are surfaced as errors, never skipped.
func (l *ProfileLinker) Create(ctx context.Context, userID string, meta model.ProfileMeta) (*Profile, error) {
	encoded, err := model.EncodeMeta(meta)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var existing []model.AuthProfile
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load profiles for user, %w", err)
	}

	for _, row := range existing {
		stored, err := decodeProfile(row)
		if err != nil {
			return nil, err
		}

		if stored.Meta == meta {
			return nil, &AlreadyExistsError{Key: meta.Key}
		}
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile ID, %w", err)
	}

	row := model.AuthProfile{
		ID:        id,
		UserID:    userID,
		Meta:      encoded,
		CreatedAt: time.Now(),
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		// The unique index closes the race the pre-check leaves open.
		if isUniqueViolation(err) {
			return nil, &AlreadyExistsError{Key: meta.Key}
		}

		return nil, fmt.Errorf("failed to store profile, %w", err)
	}

	return decodeProfile(row)
}

// FindByEmail returns the profile linked to an email address, or nil.
func (l *ProfileLinker) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	return l.findByMeta(ctx, model.ProfileMeta{Key: model.MetaKeyEmail, Email: email})
}

// FindByFarcasterFID returns the profile linked to a Farcaster ID, or nil.
func (l *ProfileLinker) FindByFarcasterFID(ctx context.Context, fid uint64) (*Profile, error) {
	return l.findByMeta(ctx, model.ProfileMeta{Key: model.MetaKeyFarcaster, FID: fid})
}

func (l *ProfileLinker) findByMeta(ctx context.Context, meta model.ProfileMeta) (*Profile, error) {
	encoded, err := model.EncodeMeta(meta)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var row model.AuthProfile

	// Encoding is canonical, so an equality match on the stored blob is exact.
	err = l.db.WithContext(ctx).Where("meta = ?", encoded).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to look up profile, %w", err)
	}

	return decodeProfile(row)
}

// ResolveOrCreate finds the user owning the given verified identity, creating
// a fresh user plus profile when none exists. The two writes run in a single
// transaction so a user can never be left without its profile.
func (l *ProfileLinker) ResolveOrCreate(ctx context.Context, meta model.ProfileMeta) (*model.User, error) {
	existing, err := l.findByMeta(ctx, meta)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		var user model.User
		if err := l.db.WithContext(ctx).
			Where("id = ?", existing.UserID).
			First(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to load user for profile %s, %w", existing.ID, err)
		}

		return &user, nil
	}

	encoded, err := model.EncodeMeta(meta)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	userID, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	profileID, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile ID, %w", err)
	}

	user := model.User{ID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user, %w", err)
		}

		profile := model.AuthProfile{
			ID:        profileID,
			UserID:    userID,
			Meta:      encoded,
			CreatedAt: time.Now(),
		}

		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create profile, %w", err)
		}

		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a sign-up race for the same identity; the winner's row is
			// authoritative, use it.
			zap.L().Debug("Lost profile creation race, re-resolving", zap.String("key", meta.Key))

			winner, ferr := l.findByMeta(ctx, meta)
			if ferr != nil || winner == nil {
				return nil, err
			}

			var user model.User
			if err := l.db.WithContext(ctx).
				Where("id = ?", winner.UserID).
				First(&user).Error; err != nil {
				return nil, fmt.Errorf("failed to load user after lost race, %w", err)
			}

			return &user, nil
		}

		return nil, err
	}

	return &user, nil
}

// Profiles lists every decoded profile a user holds.
func (l *ProfileLinker) Profiles(ctx context.Context, userID string) ([]Profile, error) {
	var rows []model.AuthProfile
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load profiles, %w", err)
	}

	out := make([]Profile, 0, len(rows))
	for _, row := range rows {
		p, err := decodeProfile(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
