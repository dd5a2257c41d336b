package vault

import "strings"

// DisplayTitle derives a human-facing title for a note: the text of the
// first level-one Markdown heading, or the file name without its suffix
// when no heading exists.
func DisplayTitle(content, name string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "# "); ok {
			if title := strings.TrimSpace(rest); title != "" {
				return title
			}
		}
	}
	return strings.TrimSuffix(name, NoteSuffix)
}
