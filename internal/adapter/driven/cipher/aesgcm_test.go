package cipher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCM_RoundTrip(t *testing.T) {
	c := NewAESGCM()

	ciphertext, err := c.Encrypt([]byte(`{"token":"ghp_abc"}`), "secret-one")
	require.NoError(t, err)

	plaintext, err := c.Decrypt(ciphertext, "secret-one")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"ghp_abc"}`, string(plaintext))
}

func TestAESGCM_NonceIsRandom(t *testing.T) {
	c := NewAESGCM()

	a, err := c.Encrypt([]byte("same"), "k")
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"), "k")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestAESGCM_WrongKeyFails(t *testing.T) {
	c := NewAESGCM()

	ciphertext, err := c.Encrypt([]byte("payload"), "right")
	require.NoError(t, err)

	_, err = c.Decrypt(ciphertext, "wrong")
	assert.Error(t, err)
}

func TestAESGCM_Tampered(t *testing.T) {
	c := NewAESGCM()

	ciphertext, err := c.Encrypt([]byte("payload"), "k")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw), "k")
	assert.Error(t, err)
}

func TestAESGCM_Malformed(t *testing.T) {
	c := NewAESGCM()

	tests := []struct {
		name       string
		ciphertext string
		key        string
	}{
		{name: "not base64", ciphertext: "!!!", key: "k"},
		{name: "too short", ciphertext: base64.StdEncoding.EncodeToString([]byte("abc")), key: "k"},
		{name: "empty key", ciphertext: "", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.ciphertext, tt.key)
			assert.Error(t, err)
		})
	}
}
