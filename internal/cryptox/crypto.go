// Package cryptox seals profile records with a passphrase.
//
// Native records are base64 of magic|salt|nonce|ciphertext, where the key is
// derived with argon2id and the payload is sealed with AES-256-GCM. Records
// produced by the browser extension (OpenSSL "Salted__" envelopes, as written
// by CryptoJS) can still be opened so old exports keep working.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrDecrypt is returned for any ciphertext that cannot be opened with the
// given passphrase: malformed encoding, failed authentication, bad padding,
// or a plaintext that is not the expected JSON.
var ErrDecrypt = errors.New("decryption failed")

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

var (
	magic        = []byte("AFG1")
	legacyPrefix = []byte("Salted__")
)

func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// Encrypt serializes v to JSON and seals it with a key derived from
// passphrase. Every call uses a fresh salt and nonce.
func Encrypt(v any, passphrase string) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)

	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveMasterKey([]byte(passphrase), salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := common.GenerateRandByteArray(nonceSize)

	out := make([]byte, 0, len(magic)+saltSize+nonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aesgcm.Seal(out, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens s with passphrase and unmarshals the JSON plaintext into v.
func Decrypt(s string, passphrase string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var plaintext []byte
	switch {
	case bytes.HasPrefix(raw, magic):
		plaintext, err = openNative(raw[len(magic):], passphrase)
	case bytes.HasPrefix(raw, legacyPrefix):
		plaintext, err = openLegacy(raw[len(legacyPrefix):], passphrase)
	default:
		return fmt.Errorf("%w: unknown envelope", ErrDecrypt)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return nil
}

func openNative(b []byte, passphrase string) ([]byte, error) {
	if len(b) < saltSize+nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	salt, nonce, ct := b[:saltSize], b[saltSize:saltSize+nonceSize], b[saltSize+nonceSize:]

	key := DeriveMasterKey([]byte(passphrase), salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ct, nil)
}

// openLegacy handles the OpenSSL envelope: 8 byte salt, key and IV from
// EVP_BytesToKey with MD5 and one round, AES-256-CBC with PKCS#7 padding.
func openLegacy(b []byte, passphrase string) ([]byte, error) {
	if len(b) < 8+aes.BlockSize || (len(b)-8)%aes.BlockSize != 0 {
		return nil, errors.New("malformed legacy ciphertext")
	}
	salt, ct := b[:8], b[8:]

	key, iv := evpBytesToKey([]byte(passphrase), salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ct)

	return pkcs7Unpad(plaintext)
}

func evpBytesToKey(password, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keySize+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keySize], derived[keySize : keySize+aes.BlockSize]
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
