package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Access codes are typed by hand off a printed sheet as often as they are
// scanned, so the alphabet drops glyphs that read ambiguously (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 8

	// maxCodeAttempts bounds the collision-retry loop. At 31^8 possible
	// codes a second collision in a row means something is badly wrong.
	maxCodeAttempts = 5
)

func generateAccessCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
