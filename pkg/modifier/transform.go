// Package modifier compiles a selection field's pipe-separated modifier
// chain (e.g. field|contains|all|base64offset) into a FieldMatcher: a
// value-transform stage followed by a leaf match.StringMatcher/NumMatcher/
// CIDRMatcher and an aggregator deciding how a multi-needle list combines.
package modifier

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

// EncodeBase64 mirrors original_source's encode_base64: standard base64
// without padding, and a trailing character trimmed off whenever the
// unpadded length would otherwise land on a 2- or 3-character remainder
// (matching Sigma's historical base64 modifier behavior of dropping the
// final, partially-determined character).
func EncodeBase64(s string, enc Utf16Kind) string {
	out := base64.RawStdEncoding.EncodeToString(utf16Bytes(s, enc))
	if m := len(out) % 4; m == 2 || m == 3 {
		out = out[:len(out)-1]
	}
	return out
}

// Utf16Kind selects the byte order used before base64 encoding, or no
// transcoding at all.
type Utf16Kind int

const (
	Utf16None Utf16Kind = iota
	Utf16LE
	Utf16BE
	// Utf16Both marks a bare utf16/wide modifier, which expands to both
	// endianness variants rather than picking one.
	Utf16Both
)

func utf16Bytes(s string, enc Utf16Kind) []byte {
	if enc == Utf16None {
		return []byte(s)
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		if enc == Utf16LE {
			out = append(out, byte(u), byte(u>>8))
		} else {
			out = append(out, byte(u>>8), byte(u))
		}
	}
	return out
}

// EncodeBase64Offset reproduces original_source's encode_base64_offset: it
// base64-encodes the needle three times, once unshifted and once each
// after prefixing char_width and then 2*char_width NUL characters
// (char_width is 1 for no UTF-16 transcoding and 2 with it, so the prefix
// is 1 and 2 bytes, or 4 and 8 bytes once transcoded), so that a needle
// embedded anywhere inside a longer base64-encoded blob is found
// regardless of its 3-byte alignment within the encoder's output. Each
// padded encoding has the leading garbage characters introduced by the
// padding stripped back off before being added to the result.
func EncodeBase64Offset(s string, enc Utf16Kind) []string {
	charWidth := 1
	if enc != Utf16None {
		charWidth = 2
	}

	var out []string

	o0 := EncodeBase64(s, enc)
	if o0 != "" {
		out = append(out, o0)
	}

	pad1 := strings.Repeat("\x00", charWidth) + s
	o1 := EncodeBase64(pad1, enc)
	cut1 := charWidth * (1 + charWidth)
	if len(o1) > cut1 {
		out = append(out, o1[cut1:])
	}

	pad2 := strings.Repeat("\x00", 2*charWidth) + s
	o2 := EncodeBase64(pad2, enc)
	cut2 := 2*(charWidth*(1+charWidth)) - 1
	if len(o2) > cut2 {
		out = append(out, o2[cut2:])
	}

	return out
}

// windashChars is the exact five-character set original_source's
// windash_variations tests against: ASCII hyphen, slash, and three
// Unicode dash look-alikes Windows command lines are occasionally quoted
// with.
var windashChars = []string{"-", "/", "–", "—", "―"}

// WindashVariations reproduces original_source's windash_variations: it
// finds every space-separated word in s that begins with one of the
// windash characters, then for each such distinct word emits one needle
// variant per remaining windash character, with that word's leading
// character swapped and substituted back into s at its first occurrence.
// The original needle is always included as the first result.
func WindashVariations(s string) []string {
	result := []string{s}

	seen := make(map[string]bool)
	var flags []string
	for _, word := range strings.Split(s, " ") {
		if word == "" {
			continue
		}
		if hasWindashPrefix(word) && !seen[word] {
			seen[word] = true
			flags = append(flags, word)
		}
	}

	for _, flag := range flags {
		for _, dash := range windashChars {
			if strings.HasPrefix(flag, dash) {
				continue
			}
			replacement := dash + flag[len(leadingRune(flag)):]
			result = append(result, strings.Replace(s, flag, replacement, 1))
		}
	}

	return result
}

func hasWindashPrefix(word string) bool {
	for _, dash := range windashChars {
		if strings.HasPrefix(word, dash) {
			return true
		}
	}
	return false
}

// leadingRune returns the leading rune of s as a string, so multi-byte
// windash characters (the Unicode dashes) are replaced whole.
func leadingRune(s string) string {
	for i := range s {
		if i > 0 {
			return s[:i]
		}
	}
	return s
}
