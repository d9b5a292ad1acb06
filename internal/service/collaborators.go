package service

import (
	"context"
	"time"
)

// External collaborators consumed by the sign-in and signer flows. The
// farcaster package provides the HTTP implementations; tests substitute
// in-memory fakes. Every implementation must bound its calls with a timeout
// and return plain errors for this package to wrap.

// SignatureVerifier validates a signed SIWF message against a nonce and
// returns the FID that produced it.
type SignatureVerifier interface {
	VerifySignInMessage(ctx context.Context, message, signature, nonce string) (uint64, error)
}

// Channel state as reported by the provider-hosted sign-in relay.
const (
	ChannelStatePending   = "pending"
	ChannelStateCompleted = "completed"
)

// Channel is a provider-hosted sign-in challenge. The provider tracks the
// nonce and the user's approval out of band; we only hold the token.
type Channel struct {
	Token string
	URL   string
}

// ChannelStatus is one poll of a channel. FID, Message and Signature are only
// populated once State is completed.
type ChannelStatus struct {
	State     string
	FID       uint64
	Message   string
	Signature string
}

// ChannelProvider opens provider-hosted sign-in channels and reports their
// live state.
type ChannelProvider interface {
	CreateChannel(ctx context.Context) (*Channel, error)
	ChannelStatus(ctx context.Context, token string) (*ChannelStatus, error)
}

// Delegated signer states as reported by the signing provider.
const (
	SignerStateGenerated       = "generated"
	SignerStatePendingApproval = "pending_approval"
	SignerStateApproved        = "approved"
	SignerStateRevoked         = "revoked"
)

// RawSigner is the provider's view of a delegated signer.
type RawSigner struct {
	SignerUUID  string
	PublicKey   string
	Status      string
	FID         uint64
	ApprovalURL string
}

// SignedKeyRequest is the fee-sponsored registration submission: the app's
// EIP-712 signature authorizing the delegated key until Deadline.
type SignedKeyRequest struct {
	SignerUUID string
	AppFID     uint64
	Deadline   time.Time
	Signature  string
}

// SigningProvider allocates delegated keypairs and registers signed key
// requests on the app's behalf.
type SigningProvider interface {
	CreateSigner(ctx context.Context) (*RawSigner, error)
	RegisterSignedKey(ctx context.Context, req SignedKeyRequest) (*RawSigner, error)
	SignerStatus(ctx context.Context, signerUUID string) (*RawSigner, error)
}

// KeyRequestSigner produces the app's EIP-712 authorization over a delegated
// public key. Backed by the custodial account derived from the configured
// seed phrase; this is the app signing as FID owner, not the end user.
type KeyRequestSigner interface {
	SignKeyRequest(requestFID uint64, publicKey string, deadline time.Time) (string, error)
}

// MailSender delivers a message. Fire and forget; the caller only cares that
// handoff succeeded.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}
