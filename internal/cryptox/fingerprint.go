package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/t3vo/internal/common"
)

// DatabasePrefix prefixes every physical database name.
const DatabasePrefix = "T3VO"

// FingerprintKey returns the lowercase hex SHA-256 of raw. The fingerprint
// only names the database; it is never used as key material.
func FingerprintKey(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", common.ErrKeyUnavailable
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint computes FingerprintKey over the session key.
func Fingerprint(keys KeySource) (string, error) {
	if keys == nil {
		return "", common.ErrKeyUnavailable
	}
	var fp string
	err := keys.WithKey(func(key []byte) error {
		var err error
		fp, err = FingerprintKey(key)
		return err
	})
	return fp, err
}

// DatabaseName builds the physical database name for a fingerprint.
func DatabaseName(fingerprint string) string {
	return DatabasePrefix + "-" + fingerprint
}
