package application

import "errors"

// Sentinel errors identifying the failure categories of key operations. They
// are always returned wrapped in an *InternalError; use errors.Is to tell
// them apart.
var (
	// ErrNameRequired indicates a key was created without a name.
	ErrNameRequired = errors.New("encryption key name is required")

	// ErrNoKeyAvailable indicates the key store is empty.
	ErrNoKeyAvailable = errors.New("no encryption key available")

	// ErrEncryptionKeyLost indicates no known key is associated with a credential.
	ErrEncryptionKeyLost = errors.New("encryption key lost")

	// ErrMultipleEncryptions indicates a credential is associated with more
	// than one key. A resync must reconcile it.
	ErrMultipleEncryptions = errors.New("multiple encryptions")

	// ErrDecryption indicates the cipher rejected a ciphertext under the given
	// key or the plaintext is not a well-formed credential payload.
	ErrDecryption = errors.New("decryption failed")
)

// InternalError is the single error kind returned by KeyService and
// CredentialService operations. Component names the failing operation.
type InternalError struct {
	Component string
	Err       error
}

func (e *InternalError) Error() string {
	return e.Component + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func wrap(component string, err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Component: component, Err: err}
}

// FailedIn reports whether err was returned by the named operation at any
// level of wrapping, e.g. FailedIn(err, "resync") for an Init error.
func FailedIn(err error, component string) bool {
	for err != nil {
		var ie *InternalError
		if !errors.As(err, &ie) {
			return false
		}
		if ie.Component == component {
			return true
		}
		err = ie.Err
	}
	return false
}
