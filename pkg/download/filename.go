package download

import (
	"strings"
)

const maxFilenameLength = 128

// Filename reduces name to a header-safe attachment filename. Characters
// outside [A-Za-z0-9._-] collapse to a single underscore and leading dots are
// dropped. fallback is used when nothing survives. suffix is appended unless
// the result already ends with it.
func Filename(name, fallback, suffix string) string {
	safe := strings.TrimLeft(collapse(name), ".")
	if safe == "" {
		safe = strings.TrimLeft(collapse(fallback), ".")
	}
	if safe == "" {
		safe = "download"
	}

	suffix = collapse(suffix)
	if len(suffix) > maxFilenameLength/2 {
		suffix = suffix[:maxFilenameLength/2]
	}

	if suffix != "" && !strings.HasSuffix(strings.ToLower(safe), strings.ToLower(suffix)) {
		if len(safe)+len(suffix) > maxFilenameLength {
			safe = safe[:maxFilenameLength-len(suffix)]
		}
		return safe + suffix
	}

	if len(safe) > maxFilenameLength {
		safe = safe[:maxFilenameLength]
	}
	return safe
}

// ContentDisposition returns the attachment header value for a name produced by Filename.
func ContentDisposition(filename string) string {
	return `attachment; filename="` + filename + `"`
}

func collapse(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if !isSafe(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	return b.String()
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
