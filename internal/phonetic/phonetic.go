// Package phonetic implements the two sound-alike encoders used by the
// enrichment pipeline: American Soundex and Daitch–Mokotoff Soundex.
package phonetic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Encoder maps a name to a phonetic code. Empty or letter-free input
// encodes to "".
type Encoder interface {
	Encode(s string) string
}

// EncoderFunc adapts a plain function to Encoder.
type EncoderFunc func(string) string

// Encode implements Encoder.
func (f EncoderFunc) Encode(s string) string { return f(s) }

// fold uppercases s, strips accents (NFD → remove Mn → NFC) and keeps
// only the letters A-Z.
func fold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}
	ascii = strings.ToUpper(ascii)

	var b strings.Builder
	b.Grow(len(ascii))
	for _, r := range ascii {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
