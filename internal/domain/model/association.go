package model

import "time"

// Association records that a credential is decryptable with a key. At rest a
// credential has at most one association; zero means its key is unknown.
type Association struct {
	CredentialID int64
	KeyID        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
