package save

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/apperrx"
)

func encryptForTest(t *testing.T, key [16]byte, version byte, plaintext []byte) []byte {
	t.Helper()

	padded := addPKCS7(plaintext)
	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, zeroIV[:]).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, integrityKey(key))
	mac.Write([]byte{version})
	mac.Write(ciphertext)
	tag := mac.Sum(nil)[:tagSize]

	raw := append([]byte{version}, ciphertext...)
	return append(raw, tag...)
}

func addPKCS7(data []byte) []byte {
	pad := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

func TestDecryptEntryRoundTrip(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")

	raw := encryptForTest(t, key, 3, []byte("hello save data"))

	version, plaintext, err := decryptEntry(key, raw)
	require.NoError(t, err)
	assert.Equal(t, byte(3), version)
	assert.Equal(t, "hello save data", string(plaintext))
}

func TestDecryptEntryEmptyCiphertext(t *testing.T) {
	var key [16]byte
	version, plaintext, err := decryptEntry(key, []byte{7})
	require.NoError(t, err)
	assert.Equal(t, byte(7), version)
	assert.Nil(t, plaintext)
}

func TestDecryptEntryTooShort(t *testing.T) {
	var key [16]byte
	_, _, err := decryptEntry(key, nil)
	require.Error(t, err)
	ae, ok := apperrx.As(err)
	require.True(t, ok)
	assert.Equal(t, "Decrypt", ae.Token)
}

func TestDecryptEntryInvalidPadding(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")

	padded := make([]byte, blockSize)
	for i := range padded {
		padded[i] = 0xFF // invalid padding: all bytes = 0xFF
	}
	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)
	ciphertext := make([]byte, blockSize)
	cipher.NewCBCEncrypter(block, zeroIV[:]).CryptBlocks(ciphertext, padded)

	const version = 1
	mac := hmac.New(sha256.New, integrityKey(key))
	mac.Write([]byte{version})
	mac.Write(ciphertext)
	tag := mac.Sum(nil)[:tagSize]

	raw := append([]byte{version}, ciphertext...)
	raw = append(raw, tag...)

	_, _, err = decryptEntry(key, raw)
	require.Error(t, err)
	ae, ok := apperrx.As(err)
	require.True(t, ok)
	assert.Equal(t, "InvalidPadding", ae.Token)
}

func TestDecryptEntryTagMismatch(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")

	raw := encryptForTest(t, key, 3, []byte("hello save data"))
	raw[len(raw)-1] ^= 0xFF // flip a byte inside the trailing tag

	_, _, err := decryptEntry(key, raw)
	require.Error(t, err)
	ae, ok := apperrx.As(err)
	require.True(t, ok)
	assert.Equal(t, "TagVerification", ae.Token)
}

func TestDecryptEntryTooShortForTag(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")

	_, _, err := decryptEntry(key, []byte{1, 2, 3})
	require.Error(t, err)
	ae, ok := apperrx.As(err)
	require.True(t, ok)
	assert.Equal(t, "Integrity", ae.Token)
}
