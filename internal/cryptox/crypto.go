// Package cryptox implements the envelope encryption used for user secrets.
//
// A symmetric AES-256-GCM key is derived from the user's PIN with PBKDF2
// (SHA-256, fixed application salt). Every encryption draws a fresh 96-bit
// nonce, and the result is shipped as a single base64 string:
//
//	base64(nonce[12] || ciphertext || tag[16])
//
// PIN verification uses a separate one-way hash (HashPin) that is never used
// as key material; the two derivations are intentionally unrelated.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 iteration count for PIN-derived keys.
	KeyIterations = 100_000
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
)

// keySalt is shared by every user. Changing it requires re-keying every
// stored envelope, so it stays fixed until a migration exists.
var keySalt = []byte("gophnotes.kms.v1")

// Key is a PIN-derived AEAD key. It is safe for concurrent use.
type Key struct {
	aead cipher.AEAD
}

// DeriveKey runs PBKDF2-SHA256 over pin. It is deterministic: the same PIN
// always yields the same key.
func DeriveKey(pin []byte) (*Key, error) {
	raw := pbkdf2.Key(pin, keySalt, KeyIterations, KeySize, sha256.New)
	defer common.WipeByteArray(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}
	return &Key{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// base64 envelope.
func (k *Key) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", common.ErrEncryption, err)
	}

	out := k.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts an envelope produced by Seal. A wrong key, a truncated
// envelope, bad base64 or a tag mismatch all yield common.ErrDecryption.
func (k *Key) Open(envelope string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", common.ErrDecryption, err)
	}
	if len(raw) < NonceSize+k.aead.Overhead() {
		return nil, fmt.Errorf("%w: envelope too short (%d bytes)", common.ErrDecryption, len(raw))
	}

	nonce, ciphertext := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return plaintext, nil
}

// Encrypt derives the key from pin and seals plaintext.
func Encrypt(plaintext, pin []byte) (string, error) {
	key, err := DeriveKey(pin)
	if err != nil {
		return "", err
	}
	return key.Seal(plaintext)
}

// Decrypt derives the key from pin and opens envelope.
func Decrypt(envelope string, pin []byte) ([]byte, error) {
	key, err := DeriveKey(pin)
	if err != nil {
		return nil, err
	}
	return key.Open(envelope)
}

// HashPin returns the hex SHA-256 digest stored in the user's PIN record.
func HashPin(pin []byte) string {
	sum := sha256.Sum256(pin)
	return hex.EncodeToString(sum[:])
}

// VerifyPin reports whether pin hashes to hash, in constant time.
func VerifyPin(pin []byte, hash string) bool {
	candidate := HashPin(pin)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}
