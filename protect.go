package mdshow

import (
	"fmt"
	"regexp"
	"strings"
)

// The Markdown renderer would escape or mangle third party widget markup and
// script tags. Both are swapped for opaque placeholder tokens before
// conversion and restored verbatim afterwards. The two passes use distinct
// token prefixes with independent numbering, so they can never collide with
// each other or with renderer output.
var (
	embedBlockPattern = regexp.MustCompile(`(?is)<blockquote[^>]*(?:instagram-media|twitter-tweet|tiktok-embed)[^>]*>.*?</blockquote>(?:\s*<script[^>]*>.*?</script>)?`)
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
)

func embedPlaceholder(i int) string {
	return fmt.Sprintf("{{HTML_BLOCK_%d}}", i)
}

func scriptPlaceholder(i int) string {
	return fmt.Sprintf("{{SCRIPT_PLACEHOLDER_%d}}", i)
}

// extractEmbedBlocks replaces trusted embed markup (Instagram, Twitter and
// TikTok blockquotes with their optional trailing script) by numbered
// placeholders and returns the captured blocks in match order.
func extractEmbedBlocks(content string) (string, []string) {
	blocks := embedBlockPattern.FindAllString(content, -1)
	for i, block := range blocks {
		content = strings.Replace(content, block, embedPlaceholder(i), 1)
	}
	return content, blocks
}

// extractScripts captures any remaining inline script the same way. Runs
// after extractEmbedBlocks, so scripts belonging to an embed block are
// already gone.
func extractScripts(content string) (string, []string) {
	scripts := scriptPattern.FindAllString(content, -1)
	for i, script := range scripts {
		content = strings.Replace(content, script, scriptPlaceholder(i), 1)
	}
	return content, scripts
}

// restoreEmbedBlocks substitutes each captured block back, exactly once per
// placeholder.
func restoreEmbedBlocks(html string, blocks []string) string {
	for i, block := range blocks {
		html = strings.Replace(html, embedPlaceholder(i), block, 1)
	}
	return html
}

func restoreScripts(html string, scripts []string) string {
	for i, script := range scripts {
		html = strings.Replace(html, scriptPlaceholder(i), script, 1)
	}
	return html
}
