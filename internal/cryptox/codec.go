package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/t3vo/internal/common"
)

const (
	formatV1 byte = 0x01

	nonceLen  = 12
	headerLen = 1 + 4 + 4 + 1 + saltLen
)

var (
	errShortCiphertext = errors.New("ciphertext too short")
	errUnknownFormat   = errors.New("unknown ciphertext format")
)

// KeySource lends the raw session key to fn for the duration of one call.
// It returns common.ErrKeyUnavailable when no key is held.
type KeySource interface {
	WithKey(fn func(key []byte) error) error
}

// Codec encrypts JSON-serializable payloads with the session passphrase.
//
// Every Encrypt call draws a fresh salt and nonce, derives an AES-256 key
// with argon2id and seals the JSON with AES-GCM. The output is a single
// base64 string carrying everything Decrypt needs besides the passphrase:
//
//	version(1) | memoryKiB(4) | iterations(4) | parallelism(1) | salt(16) | nonce(12) | ciphertext
//
// The header (version through salt) is authenticated as associated data.
type Codec struct {
	params KDFParams
}

func NewCodec(params KDFParams) (*Codec, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Codec{params: params}, nil
}

// Params returns the parameters used for new ciphertexts.
func (c *Codec) Params() KDFParams {
	return c.params
}

// Encrypt serializes payload to JSON and encrypts it.
func (c *Codec) Encrypt(keys KeySource, payload any) (string, error) {
	if keys == nil {
		return "", common.ErrKeyUnavailable
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	salt, err := randomBytes(saltLen)
	if err != nil {
		return "", err
	}
	nonce, err := randomBytes(nonceLen)
	if err != nil {
		return "", err
	}
	header := encodeHeader(c.params, salt)

	var out string
	err = keys.WithKey(func(passphrase []byte) error {
		if len(passphrase) == 0 {
			return common.ErrKeyUnavailable
		}
		key := DeriveKey(passphrase, salt, c.params)
		defer common.WipeByteArray(key)

		ciphertext, err := seal(key, nonce, plaintext, header)
		if err != nil {
			return fmt.Errorf("encrypt payload: %w", err)
		}

		buf := make([]byte, 0, len(header)+len(nonce)+len(ciphertext))
		buf = append(buf, header...)
		buf = append(buf, nonce...)
		buf = append(buf, ciphertext...)
		out = base64.StdEncoding.EncodeToString(buf)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Decrypt reverses Encrypt. It also reads the passphrase format of the
// original browser application (see isLegacy).
//
// A locked session yields common.ErrKeyUnavailable. Every other problem
// (malformed input, wrong key, tampering, plaintext that is not JSON) yields
// an error matching common.ErrDecryptionFailure. A stored JSON null decrypts
// to json.RawMessage("null") with a nil error.
func (c *Codec) Decrypt(keys KeySource, ciphertext string) (json.RawMessage, error) {
	if keys == nil {
		return nil, common.ErrKeyUnavailable
	}

	var plaintext []byte
	err := keys.WithKey(func(passphrase []byte) error {
		if len(passphrase) == 0 {
			return common.ErrKeyUnavailable
		}

		var err error
		if isLegacy(ciphertext) {
			plaintext, err = openLegacy(passphrase, ciphertext)
		} else {
			plaintext, err = openV1(passphrase, ciphertext)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrDecryptionFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(plaintext) {
		return nil, fmt.Errorf("%w: plaintext is not JSON", common.ErrDecryptionFailure)
	}
	return json.RawMessage(plaintext), nil
}

func openV1(passphrase []byte, encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(raw) < headerLen+nonceLen {
		return nil, errShortCiphertext
	}
	header := raw[:headerLen]
	params, salt, err := decodeHeader(header)
	if err != nil {
		return nil, err
	}
	nonce := raw[headerLen : headerLen+nonceLen]

	key := DeriveKey(passphrase, salt, params)
	defer common.WipeByteArray(key)

	return open(key, nonce, raw[headerLen+nonceLen:], header)
}

func encodeHeader(p KDFParams, salt []byte) []byte {
	h := make([]byte, 0, headerLen)
	h = append(h, formatV1)
	h = binary.BigEndian.AppendUint32(h, p.MemoryKiB)
	h = binary.BigEndian.AppendUint32(h, p.Iterations)
	h = append(h, p.Parallelism)
	h = append(h, salt...)
	return h
}

func decodeHeader(h []byte) (KDFParams, []byte, error) {
	if h[0] != formatV1 {
		return KDFParams{}, nil, fmt.Errorf("%w: version %d", errUnknownFormat, h[0])
	}
	p := KDFParams{
		MemoryKiB:   binary.BigEndian.Uint32(h[1:5]),
		Iterations:  binary.BigEndian.Uint32(h[5:9]),
		Parallelism: h[9],
	}
	if err := p.Validate(); err != nil {
		return KDFParams{}, nil, err
	}
	return p, h[10:headerLen], nil
}

// seal encrypts plaintext with AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes); the nonce must
// be 12 bytes and must never repeat for the same key.
func seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Seal(nil, nonce, plaintext, aad), nil
}

// open authenticates and decrypts a ciphertext produced by seal.
func open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}
