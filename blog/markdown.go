package blog

import (
	"bytes"
	stdhtml "html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md          goldmark.Markdown
	ugcPolicy   *bluemonday.Policy
	stripPolicy *bluemonday.Policy
)

func init() {
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(), // sanitized below
		),
	)

	ugcPolicy = bluemonday.UGCPolicy()
	ugcPolicy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span")
	ugcPolicy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	stripPolicy = bluemonday.StripTagsPolicy()
}

// MarkdownToHTML renders a post body and sanitizes the output.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// markdownFilter is the template form of MarkdownToHTML.
func markdownFilter(src string) template.HTML {
	out, err := MarkdownToHTML(src)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(out)
}

// StripHTML removes every tag from s.
func StripHTML(s string) string {
	return stripPolicy.Sanitize(s)
}

// TruncateWords keeps the first n whitespace-separated words of s and appends
// an ellipsis when something was cut.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

// Excerpt renders body as Markdown, strips the markup and keeps n words of
// plain, unescaped text.
func Excerpt(body string, n int) string {
	rendered, err := MarkdownToHTML(body)
	if err != nil {
		rendered = body
	}
	return TruncateWords(stdhtml.UnescapeString(StripHTML(rendered)), n)
}
