package mdshow

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

var Version = "undefined"

var (
	slideSeparator = regexp.MustCompile(`\n---+\n`)
	mermaidPattern = regexp.MustCompile("(?s)```mermaid\n(.*?)\n```")
	notesPattern   = regexp.MustCompile(`(?s)<!-- notes -->(.*?)(?:<!-- /notes -->|$)`)
)

// Slide is one rendering unit of a presentation, derived from one document
// segment between horizontal rule separators. Slides are immutable once
// produced; a content update replaces the whole list.
type Slide struct {
	// HTML is the rendered slide body with protected blocks restored.
	HTML template.HTML `json:"html"`
	// Mermaid holds the inner text of the first mermaid code block, if any.
	Mermaid string `json:"mermaid"`
	// Notes is the extracted speaker notes text, empty when absent.
	Notes string `json:"notes"`
	// Raw is the slide text after notes removal and media rewriting but
	// before rendering. It never contains placeholder tokens.
	Raw string `json:"raw"`
	// Scripts are extracted inline scripts, kept for injection into the
	// presentation DOM at display time.
	Scripts []string `json:"scripts"`
	Title   string   `json:"title"`
}

func (s *Slide) HasNotes() bool {
	return len(s.Notes) > 0
}

// DocumentMeta is optional presentation metadata carried in a front matter
// block at the head of a document.
type DocumentMeta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Theme       string `yaml:"theme"`
}

var frontMatterDelimiter = []byte(`+++`)

func parseFrontMatter(in []byte) (fm []byte, content []byte) {
	if !bytes.HasPrefix(in, frontMatterDelimiter) {
		return nil, in
	}

	parts := bytes.SplitN(in, frontMatterDelimiter, 3)
	if len(parts) < 3 {
		return nil, in
	}

	return parts[1], parts[2]
}

// ExtractFrontMatter splits an optional +++ delimited YAML block off the
// head of a document. Malformed front matter is ignored and the document
// returned unchanged.
func ExtractFrontMatter(content string) (DocumentMeta, string) {
	fm, body := parseFrontMatter([]byte(content))
	if len(fm) == 0 {
		return DocumentMeta{}, content
	}

	var meta DocumentMeta
	if err := yaml.Unmarshal(fm, &meta); err != nil {
		return DocumentMeta{}, content
	}
	return meta, strings.TrimLeft(string(body), "\n")
}

// ParseSlides splits a Markdown document on horizontal rule separators and
// converts every non-empty segment into a Slide, preserving document order.
// It is a pure function: no side effects, safe to call concurrently for
// different inputs.
func ParseSlides(content string) []*Slide {
	segments := slideSeparator.Split(content, -1)

	slides := make([]*Slide, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		slides = append(slides, parseSlide(segment))
	}
	return slides
}

// parseSlide runs the per slide pipeline. The stage order is load bearing:
// notes must leave before media rewriting can touch the text, media HTML
// must exist before the protection passes can capture it, and both
// protection passes must run before rendering so the renderer only ever
// sees inert placeholder tokens.
func parseSlide(content string) *Slide {
	var mermaid string
	if m := mermaidPattern.FindStringSubmatch(content); m != nil {
		// only the first diagram block is kept
		mermaid = m[1]
	}

	var notes string
	if m := notesPattern.FindStringSubmatch(content); m != nil {
		// the end marker is optional; without it the notes run to the end
		// of the slide
		notes = strings.TrimSpace(m[1])
		content = notesPattern.ReplaceAllString(content, "")
	}

	content = ProcessMediaLinks(content)

	// Captured before the protection passes, so the finalized record can
	// never expose a placeholder token.
	raw := content

	content, embeds := extractEmbedBlocks(content)
	content, scripts := extractScripts(content)

	html := renderMarkdown(content)
	html = restoreEmbedBlocks(html, embeds)
	html = restoreScripts(html, scripts)

	if scripts == nil {
		scripts = []string{}
	}

	return &Slide{
		HTML:    template.HTML(html),
		Mermaid: mermaid,
		Notes:   notes,
		Raw:     raw,
		Scripts: scripts,
		Title:   SlideTitle(raw),
	}
}
