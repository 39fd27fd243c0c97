package driven

// Cipher is an authenticated symmetric cipher keyed by a secret string.
// Decrypt must fail when the key does not match or the ciphertext is corrupt.
type Cipher interface {
	Encrypt(plaintext []byte, key string) (string, error)
	Decrypt(ciphertext string, key string) ([]byte, error)
}

// KeySource supplies bootstrap keys from outside the key store. Both methods
// return "" when no key is available.
type KeySource interface {
	// OverrideKey returns the key configured in the process environment.
	OverrideKey() string

	// LegacyKey returns the contents of the legacy key file. Read failures
	// are treated as an absent key.
	LegacyKey() string
}
