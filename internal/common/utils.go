package common

// WipeByteArray overwrites b with zeros. Used for derived keys once a
// cipher operation is done with them. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
