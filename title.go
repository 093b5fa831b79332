package mdshow

import (
	"regexp"
	"strings"
)

const titleMaxLen = 50

var (
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	boldPattern       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern     = regexp.MustCompile(`\*(.+?)\*`)
	inlineCodePattern = regexp.MustCompile("`(.+?)`")
	linkPattern       = regexp.MustCompile(`\[(.+?)\]\(.*?\)`)
)

// SlideTitle derives a short human readable title from a slide's raw text:
// the first Markdown heading if one exists, otherwise the first line of
// prose with inline formatting stripped, truncated to 50 characters. Never
// returns an empty string.
func SlideTitle(content string) string {
	if m := headingPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		// Skip empty lines, code fences and HTML
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "<") {
			continue
		}
		line = boldPattern.ReplaceAllString(line, "$1")
		line = italicPattern.ReplaceAllString(line, "$1")
		line = inlineCodePattern.ReplaceAllString(line, "$1")
		line = linkPattern.ReplaceAllString(line, "$1")

		if runes := []rune(line); len(runes) > titleMaxLen {
			return string(runes[:titleMaxLen]) + "..."
		}
		return line
	}

	return "Untitled"
}
