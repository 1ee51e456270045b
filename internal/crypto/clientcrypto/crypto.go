// Package clientcrypto contains client-side primitives for key protection and
// sealing message payloads to a recipient's X25519 public key.
package clientcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Params
const (
	KeyLen = 32
	KeKLen = 32

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

var sealInfo = []byte("cryptachat-seal-v1")

// PrivateKey and PublicKey are raw X25519 keys.
type (
	PrivateKey [KeyLen]byte
	PublicKey  [KeyLen]byte
)

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateKeyPair returns a fresh X25519 key pair. The private key is clamped per RFC 7748.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	var priv PrivateKey
	var pub PublicKey
	if _, err := rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	pb, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pb)
	return priv, pub, nil
}

// Public derives the public half of priv.
func (priv PrivateKey) Public() (PublicKey, error) {
	var pub PublicKey
	pb, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

// String encodes the key as standard base64; this is what gets uploaded.
func (pub PublicKey) String() string { return base64.StdEncoding.EncodeToString(pub[:]) }

// ParsePublicKey decodes a base64 public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pub PublicKey
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("public key: %w", err)
	}
	if len(b) != KeyLen {
		return pub, fmt.Errorf("public key: want %d bytes, got %d", KeyLen, len(b))
	}
	copy(pub[:], b)
	return pub, nil
}

// DeriveKEK derives a KEK from passphrase and salt using Argon2id.
func DeriveKEK(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeKLen)
}

// WrapKey encrypts a private key with KEK using XChaCha20-Poly1305 and random nonce.
func WrapKey(kek []byte, priv PrivateKey) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+KeyLen+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, priv[:], nil)...)
	return out, nil
}

// UnwrapKey decrypts a wrapped private key using KEK.
func UnwrapKey(kek, wrapped []byte) (PrivateKey, error) {
	var priv PrivateKey
	if len(wrapped) < chacha20poly1305.NonceSizeX {
		return priv, errors.New("wrapped too short")
	}
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return priv, err
	}
	nonce := wrapped[:chacha20poly1305.NonceSizeX]
	ct := wrapped[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return priv, err
	}
	if len(pt) != KeyLen {
		return priv, errors.New("wrapped key has wrong length")
	}
	copy(priv[:], pt)
	return priv, nil
}

// sealKey derives the AEAD key via HKDF-SHA256 over the DH output, salted with both public keys.
func sealKey(shared []byte, eph, to PublicKey) ([]byte, error) {
	salt := make([]byte, 0, 2*KeyLen)
	salt = append(salt, eph[:]...)
	salt = append(salt, to[:]...)
	r := hkdf.New(sha256.New, shared, salt, sealInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	_, err := r.Read(key)
	return key, err
}

// Seal encrypts plaintext to the holder of `to`. Output is eph_pub || nonce || ciphertext.
// aad binds the blob to its conversation and must be repeated on Open.
func Seal(to PublicKey, aad, plaintext []byte) ([]byte, error) {
	ephPriv, ephPub, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(ephPriv[:], to[:])
	if err != nil {
		return nil, err
	}
	key, err := sealKey(shared, ephPub, to)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, KeyLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, ephPub[:]...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, aad)...)
	return out, nil
}

// Open decrypts a blob produced by Seal for priv's public key.
func Open(priv PrivateKey, aad, blob []byte) ([]byte, error) {
	if len(blob) < KeyLen+chacha20poly1305.NonceSizeX {
		return nil, errors.New("blob too short")
	}
	var eph PublicKey
	copy(eph[:], blob[:KeyLen])
	nonce := blob[KeyLen : KeyLen+chacha20poly1305.NonceSizeX]
	ct := blob[KeyLen+chacha20poly1305.NonceSizeX:]

	me, err := priv.Public()
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(priv[:], eph[:])
	if err != nil {
		return nil, err
	}
	key, err := sealKey(shared, eph, me)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ct, aad)
}

// ConversationAAD returns the associated data binding a blob to sender and recipient.
func ConversationAAD(sender, recipient string) []byte {
	aad := make([]byte, 0, len(sender)+len(recipient)+1)
	aad = append(aad, sender...)
	aad = append(aad, 0)
	aad = append(aad, recipient...)
	return aad
}
