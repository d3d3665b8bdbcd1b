package rules

import (
	"regexp"
	"strings"
)

// compileGlob turns a shell-style glob into an anchored regexp. `*` matches
// any run of characters including path separators and newlines, `?` matches
// one character, and bracket classes are passed through (`[!...]` negates).
// Malformed globs return nil.
func compileGlob(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	runes := []rune(pattern)
	var b strings.Builder
	b.WriteString("(?s)^")
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 >= len(runes) {
				return nil
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		case '[':
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == ']' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil
			}
			class := string(runes[i+1 : end])
			if class == "" || class == "!" {
				return nil
			}
			if class[0] == '!' {
				class = "^" + class[1:]
			}
			b.WriteString("[")
			b.WriteString(strings.ReplaceAll(class, `\`, `\\`))
			b.WriteString("]")
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	rgx, err := regexp.Compile(b.String())
	if err != nil {
		return nil
	}
	return rgx
}
