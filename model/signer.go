package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SignerApproval records the provider-issued approval link and the deadline
// baked into the signed key request. Stored as a nullable serialized blob on
// the signer row; nil means the key was generated but never registered.
type SignerApproval struct {
	URL      string    `json:"url"`
	Deadline time.Time `json:"deadline"`
}

func EncodeApproval(a SignerApproval) (string, error) {
	if a.URL == "" {
		return "", fmt.Errorf("approval without a url")
	}

	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode signer approval, %w", err)
	}

	return string(b), nil
}

func DecodeApproval(raw string) (SignerApproval, error) {
	var a SignerApproval
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return SignerApproval{}, fmt.Errorf("failed to decode signer approval, %w", err)
	}

	if a.URL == "" {
		return SignerApproval{}, fmt.Errorf("stored signer approval has no url")
	}

	return a, nil
}

type Signer struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	SignerUUID string `gorm:"uniqueIndex"`
	PublicKey  string
	FID        uint64
	Approval   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
