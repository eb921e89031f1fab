// Package common defines shared sentinel errors and small helpers used across
// the vault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrKeyUnavailable is returned by every crypto and namespacing call made
	// while the session is locked.
	ErrKeyUnavailable = errors.New("session key unavailable")

	// ErrDecryptionFailure covers wrong key, corrupted ciphertext and
	// non-JSON plaintext alike.
	ErrDecryptionFailure = errors.New("decryption failure")

	// ErrStorageFailure wraps errors of the embedded database (open, migrate,
	// read, write).
	ErrStorageFailure = errors.New("storage failure")

	// Validation errors.
	ErrUnknownCollection = errors.New("unknown collection")

	// Backup errors.
	ErrBackupMismatch = errors.New("backup belongs to another database")
)
