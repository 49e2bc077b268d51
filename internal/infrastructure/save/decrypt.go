package save

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
)

// blockSize is AES's fixed 16-byte block size, also the CBC IV length
// used here (spec.md §4.2.4: "AES-128-CBC with PKCS#7 padding").
const blockSize = aes.BlockSize

// tagSize is the length of the per-entry integrity tag appended after the
// ciphertext: a truncated HMAC-SHA256 over version||ciphertext (spec.md
// §4.2.4: "an integrity-tag mismatch surfaces TagVerification").
const tagSize = 16

// zeroIV is used for every entry's CBC decryption. Decryption needs no
// unpredictability the way encryption does, and spec.md §4.2.4 names no
// per-entry IV alongside the version prefix, so a fixed all-zero IV
// keeps decryption deterministic, as §4.2.6 requires.
var zeroIV [blockSize]byte

// integrityKey derives a MAC key from the same opaque key material used
// for AES, domain-separated by HMAC (the same HMAC-SHA256 construction
// stats.Hasher uses to derive user hashes from a salt), so a leaked AES
// key alone doesn't also hand out a forging key.
func integrityKey(key [16]byte) []byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte("liverty-music-save-integrity"))
	return mac.Sum(nil)
}

// decryptEntry decrypts one save entry's raw bytes: the first byte is the
// version prefix (spec.md §4.2.4; ignored for decryption, interpreted
// per entry type by the caller), followed by the AES-128-CBC ciphertext
// with PKCS#7 padding, followed by a tagSize-byte integrity tag covering
// the version byte and ciphertext.
//
// # Possible errors
//
//   - FailedPrecondition (token "Decrypt"): ciphertext not a multiple of
//     the block size.
//   - FailedPrecondition (token "Integrity"): entry too short to carry an
//     integrity tag at all, so the tag can't even be checked.
//   - FailedPrecondition (token "TagVerification"): a tag is present but
//     does not match the computed one.
//   - FailedPrecondition (token "InvalidPadding"): PKCS#7 padding invalid.
func decryptEntry(key [16]byte, raw []byte) (version byte, plaintext []byte, err error) {
	if len(raw) < 1 {
		return 0, nil, apperrx.New(codes.FailedPrecondition, "Decrypt", "save entry too short to contain a version prefix")
	}

	version = raw[0]
	body := raw[1:]

	if len(body) == 0 {
		return version, nil, nil
	}
	if len(body) < tagSize {
		return 0, nil, apperrx.New(codes.FailedPrecondition, "Integrity", "entry too short to carry an integrity tag",
			slog.Int("len", len(body)))
	}

	ciphertext, tag := body[:len(body)-tagSize], body[len(body)-tagSize:]

	mac := hmac.New(sha256.New, integrityKey(key))
	mac.Write([]byte{version})
	mac.Write(ciphertext)
	expected := mac.Sum(nil)[:tagSize]
	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return 0, nil, apperrx.New(codes.FailedPrecondition, "TagVerification", "save entry integrity tag mismatch")
	}

	if len(ciphertext)%blockSize != 0 {
		return 0, nil, apperrx.New(codes.FailedPrecondition, "Decrypt", "ciphertext is not a multiple of the block size",
			slog.Int("len", len(ciphertext)))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return 0, nil, apperrx.Wrap(err, codes.Internal, "Decrypt", "failed to construct AES cipher")
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV[:]).CryptBlocks(out, ciphertext)

	unpadded, err := removePKCS7(out)
	if err != nil {
		return 0, nil, err
	}
	return version, unpadded, nil
}

// removePKCS7 strips and validates PKCS#7 padding (spec.md §4.2.4: "a
// padding violation surfaces InvalidPadding").
func removePKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, apperrx.New(codes.FailedPrecondition, "InvalidPadding", "decrypted payload is not block-aligned")
	}

	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, apperrx.New(codes.FailedPrecondition, "InvalidPadding", "invalid PKCS#7 padding length", slog.Int("pad", pad))
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, apperrx.New(codes.FailedPrecondition, "InvalidPadding", "inconsistent PKCS#7 padding bytes")
		}
	}
	return data[:len(data)-pad], nil
}
