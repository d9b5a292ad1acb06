package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"castgate/auth-api/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Delegated signer lifecycle: GENERATED -> PENDING_APPROVAL -> APPROVED or
// REVOKED. EXPIRED is derived locally when a pending approval outlives its
// deadline without the provider ever reporting a decision.
const (
	StatusGenerated       = "GENERATED"
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusApproved        = "APPROVED"
	StatusRevoked         = "REVOKED"
	StatusExpired         = "EXPIRED"
)

// DelegatedSigner is the domain view of a signer row merged with the
// provider's live state.
type DelegatedSigner struct {
	ID         string
	UserID     string
	SignerUUID string
	PublicKey  string
	FID        uint64
	Status     string
	Approval   *model.SignerApproval
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SignerConfig carries the workflow knobs from the application config.
type SignerConfig struct {
	// AppFID is the Farcaster ID the custodial key controls; it is the
	// requestFid baked into every signed key request.
	AppFID uint64
	// ApprovalTTL is how long a signed key request stays valid for the user
	// to approve. Defaults to 24h upstream.
	ApprovalTTL time.Duration
}

// Signers orchestrates delegated posting keys: the provider allocates the
// keypair, the app pre-authorizes it with an EIP-712 signature, and the end
// user approves out of band via the returned URL.
type Signers struct {
	db       *gorm.DB
	provider SigningProvider
	signer   KeyRequestSigner
	cfg      SignerConfig
}

func NewSigners(db *gorm.DB, provider SigningProvider, signer KeyRequestSigner, cfg SignerConfig) *Signers {
	if cfg.ApprovalTTL == 0 {
		cfg.ApprovalTTL = 24 * time.Hour
	}

	return &Signers{db: db, provider: provider, signer: signer, cfg: cfg}
}

func (s *Signers) toDomain(row model.Signer, live *RawSigner) (*DelegatedSigner, error) {
	out := &DelegatedSigner{
		ID:         row.ID,
		UserID:     row.UserID,
		SignerUUID: row.SignerUUID,
		PublicKey:  row.PublicKey,
		FID:        row.FID,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}

	if row.Approval != nil {
		approval, err := model.DecodeApproval(*row.Approval)
		if err != nil {
			return nil, fmt.Errorf("signer %s holds undecodable approval, %w", row.ID, err)
		}
		out.Approval = &approval
	}

	if live != nil && live.FID != 0 {
		out.FID = live.FID
	}

	out.Status = deriveStatus(out.Approval, live)

	return out, nil
}

// deriveStatus merges the persisted approval state with the provider's view.
// A provider-reported decision always wins; otherwise the approval object and
// its deadline decide.
func deriveStatus(approval *model.SignerApproval, live *RawSigner) string {
	if live != nil {
		switch live.Status {
		case SignerStateApproved:
			return StatusApproved
		case SignerStateRevoked:
			return StatusRevoked
		}
	}

	if approval == nil {
		return StatusGenerated
	}

	if approval.Deadline.Before(time.Now()) {
		return StatusExpired
	}

	return StatusPendingApproval
}

// Create allocates a delegated keypair at the provider and persists the
// signer in its GENERATED state.
func (s *Signers) Create(ctx context.Context, userID string) (*DelegatedSigner, error) {
	raw, err := s.provider.CreateSigner(ctx)
	if err != nil {
		return nil, externalErr("signer create", err)
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signer ID, %w", err)
	}

	row := model.Signer{
		ID:         id,
		UserID:     userID,
		SignerUUID: raw.SignerUUID,
		PublicKey:  raw.PublicKey,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &AlreadyExistsError{Key: "signer"}
		}

		return nil, fmt.Errorf("failed to store signer, %w", err)
	}

	zap.L().Info("Delegated signer generated",
		zap.String("signer_uuid", raw.SignerUUID),
		zap.String("user_id", userID))

	return s.toDomain(row, nil)
}

// RegisterSignedKey signs {requestFid, key, deadline} with the app's custodial
// key and submits it for sponsored registration. Safe to re-invoke: each call
// issues a fresh deadline, signature and approval URL, and the previous URL
// goes stale. Any failure leaves the row untouched so the call can be retried.
func (s *Signers) RegisterSignedKey(ctx context.Context, signerUUID string) (*DelegatedSigner, error) {
	row, err := s.loadRow(ctx, signerUUID)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.cfg.ApprovalTTL)

	signature, err := s.signer.SignKeyRequest(s.cfg.AppFID, row.PublicKey, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to sign key request, %w", err)
	}

	raw, err := s.provider.RegisterSignedKey(ctx, SignedKeyRequest{
		SignerUUID: row.SignerUUID,
		AppFID:     s.cfg.AppFID,
		Deadline:   deadline,
		Signature:  signature,
	})
	if err != nil {
		return nil, externalErr("signed key registration", err)
	}

	encoded, err := model.EncodeApproval(model.SignerApproval{
		URL:      raw.ApprovalURL,
		Deadline: deadline,
	})
	if err != nil {
		return nil, err
	}

	row.Approval = &encoded
	row.UpdatedAt = time.Now()

	err = s.db.WithContext(ctx).
		Model(&model.Signer{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"approval":   encoded,
			"updated_at": row.UpdatedAt,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store signer approval, %w", err)
	}

	zap.L().Info("Signed key registered, awaiting user approval",
		zap.String("signer_uuid", row.SignerUUID),
		zap.Time("deadline", deadline))

	return s.toDomain(*row, raw)
}

// FindBySignerUUID returns the signer with its status reflecting the
// provider's live state. Callers poll this until APPROVED or REVOKED; the
// service never long-polls on their behalf.
func (s *Signers) FindBySignerUUID(ctx context.Context, signerUUID string) (*DelegatedSigner, error) {
	row, err := s.loadRow(ctx, signerUUID)
	if err != nil {
		return nil, err
	}

	live, err := s.provider.SignerStatus(ctx, signerUUID)
	if err != nil {
		return nil, externalErr("signer status", err)
	}

	return s.toDomain(*row, live)
}

// LookupRawSignerByUUID exposes the provider's unmerged view of a signer.
func (s *Signers) LookupRawSignerByUUID(ctx context.Context, signerUUID string) (*RawSigner, error) {
	raw, err := s.provider.SignerStatus(ctx, signerUUID)
	if err != nil {
		return nil, externalErr("signer status", err)
	}

	return raw, nil
}

// FindByUser returns the user's most recent signer without touching the
// provider, or nil if they never created one.
func (s *Signers) FindByUser(ctx context.Context, userID string) (*DelegatedSigner, error) {
	var row model.Signer

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to load signer, %w", err)
	}

	return s.toDomain(row, nil)
}

// OwnedBy checks that a signer belongs to the given user. Signers that exist
// but belong to someone else read as not found.
func (s *Signers) OwnedBy(ctx context.Context, signerUUID, userID string) error {
	row, err := s.loadRow(ctx, signerUUID)
	if err != nil {
		return err
	}

	if row.UserID != userID {
		return ErrNotFound
	}

	return nil
}

func (s *Signers) loadRow(ctx context.Context, signerUUID string) (*model.Signer, error) {
	var row model.Signer

	err := s.db.WithContext(ctx).
		Where("signer_uuid = ?", signerUUID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load signer, %w", err)
	}

	return &row, nil
}
