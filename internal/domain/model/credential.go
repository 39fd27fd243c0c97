package model

import "time"

// Credential is a stored service credential. EncryptedData holds the
// ciphertext of the credential's structured payload. IsEncryptionKeyLost is
// true when no known key currently decrypts EncryptedData.
type Credential struct {
	ID                  int64
	Name                string
	EncryptedData       string
	IsEncryptionKeyLost bool
	UpdatedAt           time.Time
}

// CredentialData is the structured plaintext form of a credential payload,
// e.g. {"apiKey": "...", "host": "..."}.
type CredentialData map[string]any
