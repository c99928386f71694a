package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("test-master-secret")
	require.NoError(t, err)

	plaintext := []byte(`{"clientId":"12345","apiKey":"secret-key"}`)

	blob, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Contains(t, blob, "v1:")
	assert.NotContains(t, blob, "secret-key")

	decrypted, err := cipher.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCipherEncryptProducesUniqueBlobs(t *testing.T) {
	cipher, err := NewCipher("test-master-secret")
	require.NoError(t, err)

	first, err := cipher.Encrypt([]byte("payload"))
	require.NoError(t, err)
	second, err := cipher.Encrypt([]byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipherDecryptWrongKey(t *testing.T) {
	cipher, err := NewCipher("correct-secret")
	require.NoError(t, err)

	blob, err := cipher.Encrypt([]byte("payload"))
	require.NoError(t, err)

	other, err := NewCipher("wrong-secret")
	require.NoError(t, err)

	_, err = other.Decrypt(blob)
	assert.Error(t, err)
}

func TestCipherDecryptMalformedBlob(t *testing.T) {
	cipher, err := NewCipher("test-master-secret")
	require.NoError(t, err)

	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"no separators", "garbage"},
		{"wrong version", "v9:Zm9v:YmFy"},
		{"bad base64", "v1:!!!:YmFy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cipher.Decrypt(tt.blob)
			assert.Error(t, err)
		})
	}
}

func TestNewCipherEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
