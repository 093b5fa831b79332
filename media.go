package mdshow

import "regexp"

// Custom media shorthand is rewritten to HTML before the Markdown renderer
// runs, so the fragments pass through conversion as raw blocks. The passes
// form an ordered pipeline: each one operates on the output of the previous,
// and a later pattern must never re-match HTML produced by an earlier one.
var (
	videoPattern   = regexp.MustCompile(`!\[video\]\((.*?)\)`)
	svgPattern     = regexp.MustCompile(`!\[svg\]\((.*?\.svg)\)`)
	imgSizePattern = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)\{width=(.*?)\}`)

	youtubeWatchPattern = regexp.MustCompile(`!\[youtube\]\((?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+).*?\)`)
	youtubeShortPattern = regexp.MustCompile(`!\[youtube\]\((?:https?://)?youtu\.be/([a-zA-Z0-9_-]+).*?\)`)
	vimeoPattern        = regexp.MustCompile(`!\[vimeo\]\((?:https?://)?(?:www\.)?vimeo\.com/([0-9]+).*?\)`)
)

const (
	videoReplacement   = `<video controls class="embedded-video"><source src="$1" type="video/mp4"></video>`
	svgReplacement     = `<img src="$1" class="embedded-svg" alt="SVG Image">`
	imgSizeReplacement = `<img alt="$1" src="$2" style="width: $3">`
	youtubeReplacement = `<div class="video-embed"><iframe src="https://www.youtube.com/embed/$1" frameborder="0" allowfullscreen></iframe></div>`
	vimeoReplacement   = `<div class="video-embed"><iframe src="https://player.vimeo.com/video/$1" frameborder="0" allowfullscreen></iframe></div>`
)

// ProcessMediaLinks rewrites the media shorthand forms to HTML fragments.
// Shorthand that matches none of the patterns is left alone and ends up in
// front of the generic Markdown renderer, which treats it as a plain image
// link. That is accepted behavior, not an error.
func ProcessMediaLinks(content string) string {
	content = videoPattern.ReplaceAllString(content, videoReplacement)
	content = svgPattern.ReplaceAllString(content, svgReplacement)

	// Only rewrite images carrying the literal {width=...} suffix. Plain
	// ![alt](path) images stay untouched for the renderer.
	content = imgSizePattern.ReplaceAllString(content, imgSizeReplacement)

	content = youtubeWatchPattern.ReplaceAllString(content, youtubeReplacement)
	content = youtubeShortPattern.ReplaceAllString(content, youtubeReplacement)
	content = vimeoPattern.ReplaceAllString(content, vimeoReplacement)
	return content
}
