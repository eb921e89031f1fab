package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	DefaultKDFMemoryKiB   uint32 = 64 * 1024
	DefaultKDFIterations  uint32 = 1
	DefaultKDFParallelism uint8  = 4

	MinKDFMemoryKiB   uint32 = 1024
	MaxKDFMemoryKiB   uint32 = 1024 * 1024
	MaxKDFIterations  uint32 = 16
	MaxKDFParallelism uint8  = 16

	saltLen = 16
	keyLen  = 32
)

var ErrInvalidKDFParams = errors.New("invalid kdf parameters")

// KDFParams are the argon2id cost parameters. They are written into every
// ciphertext header, so changing them never breaks existing records.
type KDFParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

func DefaultKDFParams() KDFParams {
	return KDFParams{
		MemoryKiB:   DefaultKDFMemoryKiB,
		Iterations:  DefaultKDFIterations,
		Parallelism: DefaultKDFParallelism,
	}
}

// Validate checks the parameters against the accepted ranges. The upper
// bounds also apply to headers read from disk.
func (p KDFParams) Validate() error {
	switch {
	case p.MemoryKiB < MinKDFMemoryKiB || p.MemoryKiB > MaxKDFMemoryKiB:
		return fmt.Errorf("%w: memory must be within %d..%d KiB", ErrInvalidKDFParams, MinKDFMemoryKiB, MaxKDFMemoryKiB)
	case p.Iterations == 0 || p.Iterations > MaxKDFIterations:
		return fmt.Errorf("%w: iterations must be within 1..%d", ErrInvalidKDFParams, MaxKDFIterations)
	case p.Parallelism == 0 || p.Parallelism > MaxKDFParallelism:
		return fmt.Errorf("%w: parallelism must be within 1..%d", ErrInvalidKDFParams, MaxKDFParallelism)
	default:
		return nil
	}
}

// DeriveKey stretches the passphrase into a 256-bit AES key.
func DeriveKey(passphrase, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Iterations, p.MemoryKiB, p.Parallelism, keyLen)
}
