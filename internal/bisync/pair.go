package bisync

import (
	"crypto/sha256"
	"encoding/hex"
)

// OrderEndpoints places the two canonical endpoints in a fixed
// deterministic order. Keeping a stable order across runs means side A
// and side B always refer to the same endpoints, whatever order they
// were given on the command line.
func OrderEndpoints(first, second string) (string, string) {
	if second < first {
		return second, first
	}
	return first, second
}

// PairID derives the identifier for an endpoint pair: the hex SHA-256
// digest of the two canonical endpoints after order normalization.
// Concatenating the raw endpoints would be just as unique but has no
// length bound, so it cannot serve as a file name; the digest can. It
// names both the lock file and the baseline database.
func PairID(endpointA, endpointB string) string {
	endpointA, endpointB = OrderEndpoints(endpointA, endpointB)

	h := sha256.New()
	h.Write([]byte(endpointA))
	h.Write([]byte{0}) // endpoints cannot contain NUL, so the digest is unambiguous
	h.Write([]byte(endpointB))
	return hex.EncodeToString(h.Sum(nil))
}
