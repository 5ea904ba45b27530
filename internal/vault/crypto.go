package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	algorithmAESGCM = "aes-256-gcm"
	keyLength       = 32 // 256 bits
	ivLength        = 12 // 96 bits, recommended for GCM
	tagLength       = 16
)

var (
	ErrInvalidKeyLength  = errors.New("encryption key must be 32 bytes")
	ErrDecryptionFailure = errors.New("ciphertext failed authentication")
	ErrMalformedBlob     = errors.New("malformed encrypted blob")
)

// EncryptedBlob is the at-rest form of a secret: ciphertext plus the
// algorithm metadata needed to decrypt and authenticate it. All byte fields
// are hex-encoded.
type EncryptedBlob struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Algorithm  string `json:"algorithm"`
}

// DeriveUserKey derives a deterministic per-user encryption key from the
// master key. Same inputs always yield the same key, so no per-user key is
// ever stored. The flip side: master key compromise compromises every user's
// secrets at once.
func DeriveUserKey(masterKey []byte, userID string) ([]byte, error) {
	if len(masterKey) != keyLength {
		return nil, ErrInvalidKeyLength
	}

	r := hkdf.New(sha256.New, masterKey, nil, []byte(userID+":broker-credentials"))
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext with AES-256-GCM under the given key
func Encrypt(plaintext string, key []byte) (*EncryptedBlob, error) {
	if len(key) != keyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return &EncryptedBlob{
		Ciphertext: hex.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(iv),
		Tag:        hex.EncodeToString(tag),
		Algorithm:  algorithmAESGCM,
	}, nil
}

// Decrypt opens a blob produced by Encrypt. It fails closed: any
// authentication failure returns ErrDecryptionFailure and never corrupted
// plaintext.
func Decrypt(blob *EncryptedBlob, key []byte) (string, error) {
	if len(key) != keyLength {
		return "", ErrInvalidKeyLength
	}
	if blob == nil || blob.Algorithm != algorithmAESGCM {
		return "", ErrMalformedBlob
	}

	ciphertext, err := hex.DecodeString(blob.Ciphertext)
	if err != nil {
		return "", ErrMalformedBlob
	}
	iv, err := hex.DecodeString(blob.IV)
	if err != nil || len(iv) != ivLength {
		return "", ErrMalformedBlob
	}
	tag, err := hex.DecodeString(blob.Tag)
	if err != nil || len(tag) != tagLength {
		return "", ErrMalformedBlob
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailure
	}
	return string(plaintext), nil
}
