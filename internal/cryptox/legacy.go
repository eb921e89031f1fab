package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Records written by the original browser application use the OpenSSL
// "Salted__" passphrase format: base64("Salted__" | salt(8) | AES-256-CBC).
// Key and IV come from EVP_BytesToKey with MD5 and a single round.
const (
	legacyPrefix   = "U2FsdGVkX1"
	legacyMagic    = "Salted__"
	legacySaltLen  = 8
	legacyKeyLen   = 32
	legacyIVLen    = aes.BlockSize
	legacyMinBytes = len(legacyMagic) + legacySaltLen + aes.BlockSize
)

var errBadPadding = errors.New("bad padding")

func isLegacy(s string) bool {
	return strings.HasPrefix(s, legacyPrefix)
}

// openLegacy is read-only; new records are always written in the v1 format.
func openLegacy(passphrase []byte, encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(raw) < legacyMinBytes || string(raw[:len(legacyMagic)]) != legacyMagic {
		return nil, errShortCiphertext
	}
	salt := raw[len(legacyMagic) : len(legacyMagic)+legacySaltLen]
	body := raw[len(legacyMagic)+legacySaltLen:]
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not a multiple of the block size")
	}

	key, iv := evpBytesToKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, body)
	return unpadPKCS7(plaintext)
}

func evpBytesToKey(passphrase, salt []byte) (key, iv []byte) {
	var (
		out  []byte
		prev []byte
	)
	for len(out) < legacyKeyLen+legacyIVLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:legacyKeyLen], out[legacyKeyLen : legacyKeyLen+legacyIVLen]
}

func unpadPKCS7(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errBadPadding
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, errBadPadding
	}
	return b[:len(b)-n], nil
}
