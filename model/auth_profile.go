package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MetaKeyEmail     = "EMAIL"
	MetaKeyFarcaster = "FARCASTER"
)

// ProfileMeta is the tagged union identifying which external identity a
// profile links to. Exactly one of Email or FID is meaningful, selected by Key.
type ProfileMeta struct {
	Key   string `json:"key"`
	Email string `json:"email,omitempty"`
	FID   uint64 `json:"fid,omitempty"`
}

// EncodeMeta serializes a meta variant for storage. The field order is fixed
// by the struct, so equal variants always encode to the same string and the
// encoded column can back a unique index and equality lookups.
func EncodeMeta(m ProfileMeta) (string, error) {
	switch m.Key {
	case MetaKeyEmail:
		if m.Email == "" {
			return "", fmt.Errorf("email meta without an email address")
		}
	case MetaKeyFarcaster:
		if m.FID == 0 {
			return "", fmt.Errorf("farcaster meta without a fid")
		}
	default:
		return "", fmt.Errorf("unknown meta key %q", m.Key)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile meta, %w", err)
	}

	return string(b), nil
}

// DecodeMeta parses a stored meta blob back into its variant. A blob that
// doesn't decode to a known variant is corrupt data, never a default.
func DecodeMeta(raw string) (ProfileMeta, error) {
	var m ProfileMeta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return ProfileMeta{}, fmt.Errorf("failed to decode profile meta, %w", err)
	}

	switch m.Key {
	case MetaKeyEmail:
		if m.Email == "" {
			return ProfileMeta{}, fmt.Errorf("stored email meta has no email address")
		}
	case MetaKeyFarcaster:
		if m.FID == 0 {
			return ProfileMeta{}, fmt.Errorf("stored farcaster meta has no fid")
		}
	default:
		return ProfileMeta{}, fmt.Errorf("stored meta has unknown key %q", m.Key)
	}

	return m, nil
}

type AuthProfile struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;uniqueIndex:idx_user_meta"`
	Meta      string `gorm:"index;uniqueIndex:idx_user_meta"`
	CreatedAt time.Time
}
