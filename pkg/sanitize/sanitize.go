// Package sanitize maps arbitrary feed names to file names that are valid on
// Windows, the most restrictive filesystem the output tree is copied onto.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLength keeps full paths under the Windows MAX_PATH of 260 with room for the root and category
const MaxLength = 240

const placeholder = '_'

var reserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Filename returns a non-empty, filesystem-safe name for raw. The mapping is
// deterministic so the same feed always lands on the same path.
func Filename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastPlaceholder := false
	for _, r := range raw {
		if illegal(r) {
			r = placeholder
		}
		if r == placeholder {
			if lastPlaceholder {
				continue
			}
			lastPlaceholder = true
		} else {
			lastPlaceholder = false
		}
		b.WriteRune(r)
	}

	name := strings.TrimFunc(b.String(), func(r rune) bool {
		return r == placeholder || r == '.' || unicode.IsSpace(r)
	})
	name = truncate(name, MaxLength)
	// truncation may expose a trailing dot or space, which Windows strips silently
	name = strings.TrimRightFunc(name, func(r rune) bool {
		return r == placeholder || r == '.' || unicode.IsSpace(r)
	})

	if name == "" {
		return fallback(raw)
	}

	stem := name
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if reserved[strings.ToUpper(stem)] {
		name = truncate(string(placeholder)+name, MaxLength)
	}

	return name
}

func illegal(r rune) bool {
	switch r {
	case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return r == utf8.RuneError || unicode.IsControl(r)
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func fallback(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "feed_" + hex.EncodeToString(sum[:])[:12]
}
