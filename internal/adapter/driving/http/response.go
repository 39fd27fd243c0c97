package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// KeyResponse is the JSON representation of an encryption key. Key material
// is never included.
type KeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// CredentialResponse is the JSON representation of a credential's status.
// The ciphertext is never included.
type CredentialResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	IsEncryptionKeyLost bool   `json:"is_encryption_key_lost"`
	UpdatedAt           string `json:"updated_at"`
}

// RevealResponse is the JSON representation of a decrypted credential.
type RevealResponse struct {
	ID   int64          `json:"id"`
	Data map[string]any `json:"data"`
}

// ResyncResponse is the JSON representation of a completed resync pass.
type ResyncResponse struct {
	Credentials int   `json:"credentials"`
	Keys        int   `json:"keys"`
	Resolved    int   `json:"resolved"`
	Lost        int   `json:"lost"`
	Repaired    int   `json:"repaired"`
	DurationMS  int64 `json:"duration_ms"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StoreCredentialRequest is the JSON body for the create credential endpoint.
type StoreCredentialRequest struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

func toKeyResponse(k model.KeyMaterial) KeyResponse {
	return KeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		UpdatedAt: k.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		ID:                  c.ID,
		Name:                c.Name,
		IsEncryptionKeyLost: c.IsEncryptionKeyLost,
		UpdatedAt:           c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toResyncResponse(r model.ResyncReport, elapsed time.Duration) ResyncResponse {
	return ResyncResponse{
		Credentials: r.Credentials,
		Keys:        r.Keys,
		Resolved:    r.Resolved,
		Lost:        r.Lost,
		Repaired:    r.Repaired,
		DurationMS:  elapsed.Milliseconds(),
	}
}
