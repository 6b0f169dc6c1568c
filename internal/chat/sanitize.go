package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	controlCharsRegex     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	multipleNewlinesRegex = regexp.MustCompile(`\n{3,}`)

	// Invisible format marks and exotic Unicode spaces that some models
	// emit get normalized to plain equivalents. Spelled as escapes so the
	// table stays readable and no invisible bytes live in the source.
	unicodeReplacer = strings.NewReplacer(
		"\u200B", "", // zero width space
		"\u200C", "", // zero width non-joiner
		"\u200D", "", // zero width joiner
		"\uFEFF", "", // byte order mark
		"\u200E", "", // left-to-right mark
		"\u200F", "", // right-to-left mark
		"\u00A0", " ", // no-break space
		"\u2009", " ", // thin space
		"\u202F", " ", // narrow no-break space
		"\u3000", " ", // ideographic space
		"\u2028", "\n", // line separator
		"\u2029", "\n\n", // paragraph separator
	)
)

// normalizeReply cleans up provider output before it is persisted and
// sent: line endings become LF, control characters and invisible marks
// are stripped, runs of whitespace collapse within lines, and blank-line
// runs collapse to a single paragraph break.
func normalizeReply(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = collapseSpaces(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

func collapseSpaces(line string) string {
	var sb strings.Builder
	space := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteRune(' ')
				space = true
			}
			continue
		}
		sb.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(sb.String())
}
