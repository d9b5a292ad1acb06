package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"castgate/auth-api/model"

	"gorm.io/gorm"
)

// Token purposes. The purpose is informational; collision safety comes from
// the namespaced hash key itself.
const (
	PurposeSignIn = "SIGNIN"
)

// Hash key namespaces. One registry serves every flow, so each flow prefixes
// its keys to keep them from colliding. OTP keys embed a digest of the code
// so a wrong code simply misses the row, and so codes never sit in the table
// in the clear; the shared per-email prefix backs the resend guard.
func SIWFNonceKey(nonce string) string { return "SIWF-nonce-" + nonce }
func SIWFURLKey(token string) string   { return "SIWF-url-" + token }

func OtpKeyPrefix(purpose, email string) string {
	return fmt.Sprintf("%s-%s-", purpose, email)
}

func OtpKey(purpose, email, otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return OtpKeyPrefix(purpose, email) + hex.EncodeToString(sum[:])
}

// TokenRegistry issues and consumes single-use TTL'd verification tokens.
type TokenRegistry struct {
	db *gorm.DB
}

func NewTokenRegistry(db *gorm.DB) *TokenRegistry {
	return &TokenRegistry{db: db}
}

// Issue registers a token under hashInput. A live row for the same key blocks
// reissue (resend spam guard); an expired leftover is overwritten in place.
func (r *TokenRegistry) Issue(ctx context.Context, hashInput, purpose string, ttl time.Duration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.VerificationToken

		err := tx.Where("hash_input = ?", hashInput).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for existing token, %w", err)
		}

		if err == nil && existing.ExpiresAt.After(time.Now()) {
			return &TokenNotExpiredError{ExpiresAt: existing.ExpiresAt}
		}

		token := model.VerificationToken{
			HashInput: hashInput,
			Purpose:   purpose,
			ExpiresAt: time.Now().Add(ttl),
			CreatedAt: time.Now(),
		}

		if err == nil {
			if err := tx.Save(&token).Error; err != nil {
				return fmt.Errorf("failed to overwrite expired token, %w", err)
			}
			return nil
		}

		if err := tx.Create(&token).Error; err != nil {
			// A concurrent issuer beat us to the key; its token is the live one.
			if isUniqueViolation(err) {
				return &TokenNotExpiredError{ExpiresAt: token.ExpiresAt}
			}

			return fmt.Errorf("failed to store token, %w", err)
		}

		return nil
	})
}

// Verify checks that a live token exists for hashInput. With consume set the
// row is deleted in the same transaction, making the token single-use.
func (r *TokenRegistry) Verify(ctx context.Context, hashInput string, consume bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token model.VerificationToken

		err := tx.Where("hash_input = ?", hashInput).First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}

			return fmt.Errorf("failed to load token, %w", err)
		}

		if token.ExpiresAt.Before(time.Now()) {
			return ErrTokenExpired
		}

		if consume {
			if err := tx.Where("hash_input = ?", hashInput).
				Delete(&model.VerificationToken{}).Error; err != nil {
				return fmt.Errorf("failed to consume token, %w", err)
			}
		}

		return nil
	})
}

// likeEscaper neutralizes LIKE metacharacters in key prefixes. Emails land in
// OTP keys verbatim, and an unescaped "_" or "%" there would let one address's
// live code shadow another's.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LiveByPrefix reports the expiry of the newest live token whose key starts
// with prefix, or nil if none exists. The OTP flow uses it as a resend guard
// across keys that differ only in their code digest. The prefix is matched
// literally, never as a pattern.
func (r *TokenRegistry) LiveByPrefix(ctx context.Context, prefix string) (*time.Time, error) {
	var token model.VerificationToken

	err := r.db.WithContext(ctx).
		Where(`hash_input LIKE ? ESCAPE '\' AND expires_at > ?`, likeEscaper.Replace(prefix)+"%", time.Now()).
		Order("expires_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to check for live tokens, %w", err)
	}

	return &token.ExpiresAt, nil
}

// DeleteByHash consumes a token explicitly. Used by flows that only confirm
// success after a separate collaborator call (check, call, consume).
func (r *TokenRegistry) DeleteByHash(ctx context.Context, hashInput string) error {
	err := r.db.WithContext(ctx).
		Where("hash_input = ?", hashInput).
		Delete(&model.VerificationToken{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete token, %w", err)
	}

	return nil
}

// DeleteAllExpired removes every lapsed token row. Invoked by the maintenance
// scheduler, never by request handling.
func (r *TokenRegistry) DeleteAllExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.VerificationToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens, %w", res.Error)
	}

	return res.RowsAffected, nil
}
