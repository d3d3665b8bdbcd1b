package config

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized returns a line diff between two serialized configuration
// payloads. Line endings are normalized so a CRLF rewrite alone is no change.
func DiffSerialized(previous, current []byte) string {
	return cmp.Diff(lines(previous), lines(current))
}

// DiffConfigs compares two decoded configurations field by field. Formatting
// and comment edits that decode to the same values produce no diff.
func DiffConfigs(previous, current *Config) string {
	if previous == nil && current == nil {
		return ""
	}
	return cmp.Diff(previous, current)
}

func lines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
