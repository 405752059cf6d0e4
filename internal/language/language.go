package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrEmpty reports a blank locale identifier.
var ErrEmpty = errors.New("locale is empty")

// Normalize converts a locale identifier into its canonical BCP 47 form.
// Underscore separators are accepted ("pt_BR" becomes "pt-BR").
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", ErrEmpty
	}
	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse locale %q: %w", code, err)
	}
	if tag == language.Und {
		return "", fmt.Errorf("parse locale %q: undetermined language", code)
	}
	return tag.String(), nil
}

// MustNormalize is Normalize for compile-time constants and tests.
func MustNormalize(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		panic(err)
	}
	return normalized
}

// Valid reports whether code parses as a locale.
func Valid(code string) bool {
	_, err := Normalize(code)
	return err == nil
}

// Base returns the primary language subtag ("pt" for "pt-BR").
// Returns empty string for unparseable input.
func Base(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return ""
	}
	base, _ := language.MustParse(normalized).Base()
	return base.String()
}

// DisplayName returns the English display name for a locale.
// Returns "Unknown" for empty input, or the uppercased code for unparseable input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	name := display.English.Tags().Name(language.MustParse(normalized))
	if name == "" {
		return normalized
	}
	return name
}

// NormalizeList deduplicates, normalizes, and sorts a list of locales.
// Invalid entries are reported together rather than silently skipped.
func NormalizeList(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	var invalid []string
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		normalized, err := Normalize(code)
		if err != nil {
			invalid = append(invalid, code)
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(invalid) > 0 {
		return out, fmt.Errorf("invalid locales: %s", strings.Join(invalid, ", "))
	}
	return out, nil
}

// SplitList parses a comma-separated locale list such as "de_DE, es".
func SplitList(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return NormalizeList(strings.Split(value, ","))
}
