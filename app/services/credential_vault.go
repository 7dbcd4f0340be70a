package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultKeyIterations = 4096
	vaultKeyLength     = 32
	vaultNonceLength   = 12
	vaultTagLength     = 16
)

// ErrMalformedCipher is returned when a stored ciphertext does not have the
// expected iv:tag:ciphertext hex layout.
var ErrMalformedCipher = errors.New("malformed credential ciphertext")

// CredentialVault encrypts tenant API credentials at rest.
type CredentialVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AESCredentialVault is an AES-256-GCM vault whose key is derived from a
// master secret with PBKDF2-SHA256. Ciphertexts are stored as
// hex(iv):hex(tag):hex(ciphertext).
type AESCredentialVault struct {
	key []byte
}

// NewCredentialVault derives the vault key from the master secret and salt.
func NewCredentialVault(masterSecret, salt string) (*AESCredentialVault, error) {
	if masterSecret == "" {
		return nil, errors.New("vault master secret is required")
	}
	if salt == "" {
		return nil, errors.New("vault salt is required")
	}
	key := pbkdf2.Key([]byte(masterSecret), []byte(salt), vaultKeyIterations, vaultKeyLength, sha256.New)
	return &AESCredentialVault{key: key}, nil
}

func (v *AESCredentialVault) Encrypt(plaintext string) (string, error) {
	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, vaultNonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-vaultTagLength]
	tag := sealed[len(sealed)-vaultTagLength:]

	return fmt.Sprintf("%s:%s:%s", hex.EncodeToString(nonce), hex.EncodeToString(tag), hex.EncodeToString(ct)), nil
}

func (v *AESCredentialVault) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", ErrMalformedCipher
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != vaultNonceLength {
		return "", ErrMalformedCipher
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != vaultTagLength {
		return "", ErrMalformedCipher
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedCipher
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	return string(plaintext), nil
}

// RemoteCredentials are the per-tenant credentials for the contact drop
// service, stored vault-encrypted as JSON.
type RemoteCredentials struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// EncryptCredentials serializes the credentials and seals them with the vault.
func EncryptCredentials(vault CredentialVault, creds RemoteCredentials) (string, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials: %w", err)
	}
	return vault.Encrypt(string(payload))
}

// DecryptCredentials opens a vault ciphertext and deserializes the credentials.
func DecryptCredentials(vault CredentialVault, ciphertext string) (RemoteCredentials, error) {
	plaintext, err := vault.Decrypt(ciphertext)
	if err != nil {
		return RemoteCredentials{}, err
	}
	var creds RemoteCredentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return RemoteCredentials{}, fmt.Errorf("malformed credential payload: %w", err)
	}
	return creds, nil
}

func (v *AESCredentialVault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}
	return gcm, nil
}
