package cryptox

import (
	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/stretchr/testify/require"
)

// staticKey is a KeySource over a fixed byte slice; empty means locked.
type staticKey []byte

func (k staticKey) WithKey(fn func(key []byte) error) error {
	if len(k) == 0 {
		return common.ErrKeyUnavailable
	}
	return fn(k)
}

// fastParams keeps argon2 cheap enough for property tests.
var fastParams = KDFParams{MemoryKiB: MinKDFMemoryKiB, Iterations: 1, Parallelism: 1}

func newTestCodec(t require.TestingT) *Codec {
	c, err := NewCodec(fastParams)
	require.NoError(t, err)
	return c
}
