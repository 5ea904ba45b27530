package vault

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func testMasterKey() []byte {
	return bytes.Repeat([]byte{0x42}, keyLength)
}

func TestDeriveUserKey(t *testing.T) {
	master := testMasterKey()

	keyA1, err := DeriveUserKey(master, "user-a")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}
	keyA2, err := DeriveUserKey(master, "user-a")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}
	keyB, err := DeriveUserKey(master, "user-b")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}

	if !bytes.Equal(keyA1, keyA2) {
		t.Error("same user should derive the same key")
	}
	if bytes.Equal(keyA1, keyB) {
		t.Error("different users should derive different keys")
	}
	if bytes.Equal(keyA1, master) {
		t.Error("derived key should differ from the master key")
	}

	if _, err := DeriveUserKey([]byte("short"), "user-a"); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("expected ErrInvalidKeyLength, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := DeriveUserKey(testMasterKey(), "user-a")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple password", "Xk9#mPq2wLt5"},
		{"empty string", ""},
		{"unicode", "pässwörd-日本語"},
		{"long secret", string(bytes.Repeat([]byte("a1B!"), 256))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encrypt(tt.plaintext, key)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if blob.Algorithm != algorithmAESGCM {
				t.Errorf("algorithm = %q, want %q", blob.Algorithm, algorithmAESGCM)
			}

			iv, err := hex.DecodeString(blob.IV)
			if err != nil || len(iv) != ivLength {
				t.Errorf("iv should be %d hex-encoded bytes", ivLength)
			}
			tag, err := hex.DecodeString(blob.Tag)
			if err != nil || len(tag) != tagLength {
				t.Errorf("tag should be %d hex-encoded bytes", tagLength)
			}

			got, err := Decrypt(blob, key)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("round trip = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncryptUniqueIVs(t *testing.T) {
	key, _ := DeriveUserKey(testMasterKey(), "user-a")

	a, err := Encrypt("same plaintext", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same plaintext", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a.IV == b.IV {
		t.Error("two encryptions should never share an IV")
	}
	if a.Ciphertext == b.Ciphertext {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptFailsClosed(t *testing.T) {
	key, _ := DeriveUserKey(testMasterKey(), "user-a")
	otherKey, _ := DeriveUserKey(testMasterKey(), "user-b")

	blob, err := Encrypt("the secret", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	flipHex := func(s string) string {
		b, _ := hex.DecodeString(s)
		b[0] ^= 0xff
		return hex.EncodeToString(b)
	}

	tests := []struct {
		name    string
		mutate  func(b EncryptedBlob) EncryptedBlob
		key     []byte
		wantErr error
	}{
		{"wrong key", func(b EncryptedBlob) EncryptedBlob { return b }, otherKey, ErrDecryptionFailure},
		{"tampered ciphertext", func(b EncryptedBlob) EncryptedBlob { b.Ciphertext = flipHex(b.Ciphertext); return b }, key, ErrDecryptionFailure},
		{"tampered tag", func(b EncryptedBlob) EncryptedBlob { b.Tag = flipHex(b.Tag); return b }, key, ErrDecryptionFailure},
		{"tampered iv", func(b EncryptedBlob) EncryptedBlob { b.IV = flipHex(b.IV); return b }, key, ErrDecryptionFailure},
		{"unknown algorithm", func(b EncryptedBlob) EncryptedBlob { b.Algorithm = "rot13"; return b }, key, ErrMalformedBlob},
		{"non-hex ciphertext", func(b EncryptedBlob) EncryptedBlob { b.Ciphertext = "zz"; return b }, key, ErrMalformedBlob},
		{"truncated iv", func(b EncryptedBlob) EncryptedBlob { b.IV = "abcd"; return b }, key, ErrMalformedBlob},
		{"truncated tag", func(b EncryptedBlob) EncryptedBlob { b.Tag = "abcd"; return b }, key, ErrMalformedBlob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := tt.mutate(*blob)
			plaintext, err := Decrypt(&mutated, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decrypt error = %v, want %v", err, tt.wantErr)
			}
			if plaintext != "" {
				t.Errorf("Decrypt returned plaintext %q on failure", plaintext)
			}
		})
	}

	if _, err := Decrypt(nil, key); !errors.Is(err, ErrMalformedBlob) {
		t.Errorf("nil blob error = %v, want ErrMalformedBlob", err)
	}
}
