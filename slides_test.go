package mdshow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlidesSplitsOnSeparator(t *testing.T) {
	slides := ParseSlides("# One\n\nfirst\n\n---\n\n# Two\n\nsecond")
	require.Len(t, slides, 2)
	assert.Equal(t, "One", slides[0].Title)
	assert.Equal(t, "Two", slides[1].Title)
	assert.Contains(t, string(slides[0].HTML), "first")
	assert.Contains(t, string(slides[1].HTML), "second")
}

func TestParseSlidesLongSeparator(t *testing.T) {
	slides := ParseSlides("# One\n\n------\n\n# Two")
	require.Len(t, slides, 2)
}

func TestParseSlidesDropsEmptySegments(t *testing.T) {
	slides := ParseSlides("# One\n\n---\n\n---\n\n# Two\n\n---\n")
	require.Len(t, slides, 2)
	assert.Equal(t, "One", slides[0].Title)
	assert.Equal(t, "Two", slides[1].Title)
}

func TestParseSlidesSingleSlide(t *testing.T) {
	slides := ParseSlides("## Hello World\n\nBody text")
	require.Len(t, slides, 1)
	assert.Equal(t, "Hello World", slides[0].Title)
}

func TestParseSlidesRoundTrip(t *testing.T) {
	content := "# A\n\none\n\n---\n\n# B\n\ntwo\n\n---\n\n# C\n\nthree"
	slides := ParseSlides(content)
	require.Len(t, slides, 3)

	raws := make([]string, len(slides))
	for i, s := range slides {
		raws[i] = s.Raw
	}
	assert.Equal(t, content, strings.Join(raws, "\n\n---\n\n"))
}

func TestParseSlidesNotesExtraction(t *testing.T) {
	slides := ParseSlides("# Topic\n\nBody text\n\n<!-- notes -->Speaker note here<!-- /notes -->")
	require.Len(t, slides, 1)

	s := slides[0]
	assert.Equal(t, "Speaker note here", s.Notes)
	assert.True(t, s.HasNotes())
	assert.NotContains(t, s.Raw, "notes")
	assert.NotContains(t, s.Raw, "Speaker note here")
	assert.NotContains(t, string(s.HTML), "Speaker note here")
	assert.Contains(t, string(s.HTML), "Body text")
}

func TestParseSlidesNotesWithoutEndMarker(t *testing.T) {
	// an unterminated notes block degrades gracefully: notes run to the
	// end of the slide
	slides := ParseSlides("# Topic\n\nBody\n\n<!-- notes -->runs to the end")
	require.Len(t, slides, 1)
	assert.Equal(t, "runs to the end", slides[0].Notes)
	assert.NotContains(t, slides[0].Raw, "runs to the end")
}

func TestParseSlidesNoNotes(t *testing.T) {
	slides := ParseSlides("# Topic\n\nBody")
	require.Len(t, slides, 1)
	assert.Equal(t, "", slides[0].Notes)
	assert.False(t, slides[0].HasNotes())
}

func TestParseSlidesYouTubeEmbed(t *testing.T) {
	slides := ParseSlides("# Video\n\n![youtube](https://youtube.com/watch?v=abc123)")
	require.Len(t, slides, 1)

	html := string(slides[0].HTML)
	assert.Contains(t, html, "https://www.youtube.com/embed/abc123")
	assert.Contains(t, html, "<iframe")
	assert.NotContains(t, html, "![youtube]")
}

func TestParseSlidesScriptRoundTrip(t *testing.T) {
	script := "<script>console.log('hi');</script>"
	slides := ParseSlides("# Scripted\n\nBody\n\n" + script)
	require.Len(t, slides, 1)

	s := slides[0]
	require.Len(t, s.Scripts, 1)
	assert.Equal(t, script, s.Scripts[0])

	html := string(s.HTML)
	assert.Equal(t, 1, strings.Count(html, script), "script must appear exactly once, unescaped")
	assert.NotContains(t, html, "&lt;script")
	assert.NotContains(t, html, "SCRIPT_PLACEHOLDER")
}

func TestParseSlidesRawHasNoPlaceholders(t *testing.T) {
	content := "# S\n\n" + instagramEmbed + "\n\n<script>x()</script>"
	slides := ParseSlides(content)
	require.Len(t, slides, 1)

	assert.NotContains(t, slides[0].Raw, "HTML_BLOCK")
	assert.NotContains(t, slides[0].Raw, "SCRIPT_PLACEHOLDER")
	assert.NotContains(t, string(slides[0].HTML), "HTML_BLOCK")
	assert.NotContains(t, string(slides[0].HTML), "SCRIPT_PLACEHOLDER")
}

func TestParseSlidesEmbedBlockSurvivesRendering(t *testing.T) {
	slides := ParseSlides("# Embed\n\n" + instagramEmbed)
	require.Len(t, slides, 1)

	html := string(slides[0].HTML)
	assert.Contains(t, html, `class="instagram-media"`)
	assert.NotContains(t, html, "&lt;blockquote")
}

func TestParseSlidesMermaidFirstOnly(t *testing.T) {
	content := "# Diagrams\n\n```mermaid\ngraph TD; A-->B;\n```\n\n```mermaid\ngraph TD; C-->D;\n```"
	slides := ParseSlides(content)
	require.Len(t, slides, 1)
	assert.Equal(t, "graph TD; A-->B;", slides[0].Mermaid)
}

func TestParseSlidesNoMermaid(t *testing.T) {
	slides := ParseSlides("# Plain")
	require.Len(t, slides, 1)
	assert.Equal(t, "", slides[0].Mermaid)
}

func TestParseSlidesMarkdownFeatures(t *testing.T) {
	content := "# Table\n\n| a | b |\n|---|---|\n| 1 | 2 |"
	slides := ParseSlides(content)
	require.Len(t, slides, 1)
	assert.Contains(t, string(slides[0].HTML), "<table>")
}

func TestParseSlidesOrderPreserved(t *testing.T) {
	var parts []string
	for _, title := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		parts = append(parts, "# "+title)
	}
	slides := ParseSlides(strings.Join(parts, "\n\n---\n\n"))
	require.Len(t, slides, 4)
	for i, title := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		assert.Equal(t, title, slides[i].Title)
	}
}

func TestExtractFrontMatter(t *testing.T) {
	meta, body := ExtractFrontMatter("+++\ntitle: Demo Deck\nauthor: Jane\ntheme: dark\n+++\n\n# Hi")
	assert.Equal(t, "Demo Deck", meta.Title)
	assert.Equal(t, "Jane", meta.Author)
	assert.Equal(t, "dark", meta.Theme)
	assert.Equal(t, "# Hi", strings.TrimSpace(body))

	slides := ParseSlides(body)
	require.Len(t, slides, 1)
	assert.Equal(t, "Hi", slides[0].Title)
}

func TestExtractFrontMatterAbsent(t *testing.T) {
	meta, body := ExtractFrontMatter("# Hi")
	assert.Equal(t, DocumentMeta{}, meta)
	assert.Equal(t, "# Hi", body)
}

func TestExtractFrontMatterMalformed(t *testing.T) {
	in := "+++\ntitle: [unclosed\n+++\n# Hi"
	meta, body := ExtractFrontMatter(in)
	assert.Equal(t, DocumentMeta{}, meta)
	assert.Equal(t, in, body)
}
