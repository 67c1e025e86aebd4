package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Fingerprint is a stable, fixed-length identifier of a request's content.
type Fingerprint string

// fingerprintLen is the number of hex characters kept from the digest (128 bits).
const fingerprintLen = 32

// NewFingerprint hashes content and options into a Fingerprint.
// Options are sorted by key first, so the order they were set in never matters.
// Every field is length-prefixed so that moving bytes between fields changes the result.
func NewFingerprint(content string, options map[string]string) Fingerprint {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	writeField(h, content)
	writeField(h, strconv.Itoa(len(keys)))
	for _, k := range keys {
		writeField(h, k)
		writeField(h, options[k])
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))[:fingerprintLen])
}

func writeField(w io.Writer, s string) {
	fmt.Fprintf(w, "%d:", len(s))
	io.WriteString(w, s)
}

// Valid reports whether fp has the shape produced by NewFingerprint.
// Stores use it to refuse keys that could escape their namespace.
func (fp Fingerprint) Valid() bool {
	if len(fp) != fingerprintLen {
		return false
	}
	for _, c := range fp {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

func (fp Fingerprint) String() string { return string(fp) }
