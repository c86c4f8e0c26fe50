package diagram

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Input is one logical diagram: the raw text plus the theme it is rendered
// with. Inputs are values; a change produces a new Input.
type Input struct {
	Text  string
	Theme Theme
}

// Trimmed returns the text with surrounding whitespace removed.
func (in Input) Trimmed() string {
	return strings.TrimSpace(in.Text)
}

// Empty reports whether the trimmed text is empty.
func (in Input) Empty() bool {
	return in.Trimmed() == ""
}

// Identity is the cache and dedupe key of an Input.
type Identity [sha256.Size]byte

// Identity hashes the NFC-normalised trimmed text together with the theme,
// so inputs differing only in surrounding whitespace or Unicode composition
// are the same diagram.
func (in Input) Identity() Identity {
	h := sha256.New()
	h.Write([]byte(in.Theme.String()))
	h.Write([]byte{0})
	h.Write([]byte(norm.NFC.String(in.Trimmed())))
	var id Identity
	copy(id[:], h.Sum(nil))
	return id
}

// String returns the hex form of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 12 hex digits, enough for logs.
func (id Identity) Short() string {
	return id.String()[:12]
}
