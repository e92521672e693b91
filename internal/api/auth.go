package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Login credential encryption.
//
// The service expects the password encrypted client-side before transmission:
// an ECDH key exchange on curve P-256 against a server-supplied public key
// yields a shared secret, which is used directly as an AES-256-CBC key with
// the first block of the secret as IV. Plaintext is PKCS#7 padded. The client
// public key travels alongside the login payload, hex encoded, so the server
// can derive the same secret. Any deviation from this envelope makes the
// service fail with a generic error rather than a specific one.

// ecdhKeyPair holds the client side of the login key exchange
type ecdhKeyPair struct {
	private *ecdh.PrivateKey
	public  *ecdh.PublicKey
}

// newECDHKeyPair generates a fresh P-256 key pair for one login attempt
func newECDHKeyPair() (*ecdhKeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &ecdhKeyPair{private: priv, public: priv.PublicKey()}, nil
}

// PublicKeyHex returns the uncompressed client public key as a hex string,
// the format the key exchange endpoint expects.
func (kp *ecdhKeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.public.Bytes())
}

// SharedSecret derives the ECDH shared secret from a hex-encoded server
// public key (uncompressed point format).
func (kp *ecdhKeyPair) SharedSecret(serverPublicHex string) ([]byte, error) {
	raw, err := hex.DecodeString(serverPublicHex)
	if err != nil {
		return nil, NewParseError("invalid server public key encoding", err)
	}
	serverPub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, NewParseError("invalid server public key", err)
	}
	secret, err := kp.private.ECDH(serverPub)
	if err != nil {
		return nil, NewAuthError(fmt.Sprintf("key exchange failed: %v", err))
	}
	return secret, nil
}

// encryptCredential encrypts plaintext with AES-256-CBC using the shared
// secret as key and its first block as IV, returning the base64 envelope.
func encryptCredential(secret []byte, plaintext string) (string, error) {
	if len(secret) < aes.BlockSize {
		return "", NewAuthError("shared secret too short for credential encryption")
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return "", NewAuthError(fmt.Sprintf("failed to initialize cipher: %v", err))
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, secret[:aes.BlockSize]).CryptBlocks(ciphertext, padded)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptCredential reverses encryptCredential. The client never receives
// encrypted payloads from the service; this exists to verify the envelope.
func decryptCredential(secret []byte, envelope string) (string, error) {
	if len(secret) < aes.BlockSize {
		return "", NewAuthError("shared secret too short for credential decryption")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", NewParseError("invalid credential envelope encoding", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", NewParseError("credential envelope not block aligned", nil)
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return "", NewAuthError(fmt.Sprintf("failed to initialize cipher: %v", err))
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, secret[:aes.BlockSize]).CryptBlocks(padded, ciphertext)
	plain, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// pkcs7Pad appends PKCS#7 padding up to the next block boundary
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips and validates PKCS#7 padding
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, NewParseError("invalid padded length", nil)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, NewParseError("invalid padding byte", nil)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, NewParseError("corrupt padding", nil)
		}
	}
	return data[:len(data)-padLen], nil
}
