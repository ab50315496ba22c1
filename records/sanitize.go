package records

import (
	"fmt"
	"strings"

	"github.com/ruteri/record-store/interfaces"
)

// replacements maps characters that are illegal on at least one supported
// filesystem to escape sequences. Escapes contain no illegal characters, so
// applying the table twice changes nothing.
var replacements = []string{
	"<", "_lt_",
	">", "_gt_",
	":", "_colon_",
	`"`, "_quote_",
	"/", "_slash_",
	`\`, "_bslash_",
	"|", "_pipe_",
	"?", "_q_",
	"*", "_star_",
}

// Sanitizer maps caller-supplied names to canonical storage keys. It is
// immutable after construction and safe for concurrent use.
type Sanitizer struct {
	extension string
	replacer  *strings.Replacer
}

// NewSanitizer creates a sanitizer producing keys with the given extension.
// The extension must start with a dot and must not need escaping itself.
func NewSanitizer(extension string) (*Sanitizer, error) {
	if len(extension) < 2 || extension[0] != '.' {
		return nil, fmt.Errorf("invalid record extension %q: must be non-empty and start with a dot", extension)
	}

	replacer := strings.NewReplacer(replacements...)
	if replacer.Replace(extension) != extension || strings.TrimRight(extension, ". ") != extension {
		return nil, fmt.Errorf("invalid record extension %q: contains characters that are not portable", extension)
	}

	return &Sanitizer{
		extension: extension,
		replacer:  replacer,
	}, nil
}

// Extension returns the extension appended to every key.
func (s *Sanitizer) Extension() string {
	return s.extension
}

// Sanitize turns name into a storage key:
//
//  1. only the final "/"-separated segment is kept, and trailing occurrences
//     of the extension are stripped from it as long as a non-empty stem remains
//  2. characters illegal on common filesystems are replaced by escape sequences
//  3. trailing dots and spaces are removed
//  4. the extension is appended
//
// Sanitizing a key returned by Sanitize yields the same key. ErrInvalidName is
// returned when nothing remains of the stem.
func (s *Sanitizer) Sanitize(name string) (interfaces.StorageKey, error) {
	segment := strings.TrimRight(name, "/")
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}

	// Strip repeated extensions and trailing dots until the stem is stable, so
	// that "a.json.json" and "a.json." both map to "a.json".
	stem := segment
	for {
		next := strings.TrimRight(stem, ". ")
		if trimmed, ok := strings.CutSuffix(next, s.extension); ok && trimmed != "" {
			next = trimmed
		}
		if next == stem {
			break
		}
		stem = next
	}

	stem = s.replacer.Replace(stem)
	stem = strings.TrimRight(stem, ". ")

	if stem == "" {
		return "", fmt.Errorf("%w: %q leaves an empty key", ErrInvalidName, name)
	}

	return interfaces.StorageKey(stem + s.extension), nil
}
