package mdshow

import (
	blackfriday "github.com/russross/blackfriday/v2"
)

// markdownExtensions is the fixed extension set every slide is rendered
// with: tables, footnotes, fenced code blocks, hard line breaks, heading
// anchors, definition lists, autolinks and strikethrough. Raw inline HTML
// passes through unescaped, which is why protected blocks are extracted
// before conversion rather than after.
const markdownExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables |
	blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough |
	blackfriday.SpaceHeadings | blackfriday.HeadingIDs | blackfriday.BackslashLineBreak |
	blackfriday.DefinitionLists | blackfriday.Footnotes | blackfriday.HardLineBreak

// renderMarkdown converts one slide's placeholder safe text to HTML. A fresh
// blackfriday processor runs per call, so footnote and cross reference state
// accumulated while rendering one slide can never bleed into the next.
func renderMarkdown(input string) string {
	return string(blackfriday.Run([]byte(input),
		blackfriday.WithExtensions(markdownExtensions),
	))
}
