package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const referenceBytes = 6

// NewReference builds a posting reference: the given prefix followed by
// twelve uppercase hex characters drawn from crypto/rand.
func NewReference(prefix string) (string, error) {
	buf := make([]byte, referenceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
