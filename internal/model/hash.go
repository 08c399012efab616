package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ShortHashLen is the hex length of every derived identity hash (route IDs,
// intent IDs, fingerprints). It is a cross-run contract: waiver matching and
// regression diffing compare these values byte for byte.
const ShortHashLen = 16

// ShortHash returns the first ShortHashLen hex chars of the SHA-256 of the
// parts joined with "|". Same parts always yield the same hash.
func ShortHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:ShortHashLen]
}
