package model

import "time"

// VerificationToken is a single-use, purpose-scoped token row. HashInput is an
// opaque namespaced key (e.g. "SIWF-nonce-<nonce>", "SIGNIN-<email>") so one
// table serves every flow without collisions. The primary key doubles as the
// unique constraint that makes issue-if-absent safe under concurrent callers.
type VerificationToken struct {
	HashInput string `gorm:"primaryKey"`
	Purpose   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
