package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
)

// DedupKey derives the deterministic ledger key for a (subscriber, content)
// pair: the hex sha256 of the subscriber id joined with a prefix of the
// analysis text. Hashing only a prefix tolerates trailing nondeterministic
// phrasing across independent inference calls for the same event; it is a
// tuning parameter, not a uniqueness guarantee.
func DedupKey(subscriberID, analysis string, prefixLen int) string {
	if prefixLen > 0 && len(analysis) > prefixLen {
		analysis = analysis[:prefixLen]
	}
	sum := sha256.Sum256([]byte(subscriberID + "_" + analysis))
	return hex.EncodeToString(sum[:])
}
