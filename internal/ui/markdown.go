package ui

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	markdownMargin   = 2
	defaultCodeTheme = "monokai"
)

// RenderMarkdown renders explain output and guide pages for the terminal.
// SQL blocks are highlighted with the configured code theme.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle()),
		glamour.WithWordWrap(width-markdownMargin),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// RenderHTML converts markdown to an HTML fragment with GFM tables.
func RenderHTML(content string) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// markdownStyle is glamour's dark style with the accent colour on headings
// and inline code. Headings keep no background so SQL stays the focus.
func markdownStyle() ansi.StyleConfig {
	style := styles.DarkStyleConfig

	margin := uint(markdownMargin)
	style.Document.Margin = &margin

	var accent *string
	if c, ok := AccentColor(); ok {
		accent = &c
	}
	style.Heading.Color = accent
	style.Code.Color = accent
	style.Code.BackgroundColor = nil

	underline := true
	style.H1.Color = nil
	style.H1.BackgroundColor = nil
	style.H1.Prefix = "# "
	style.H1.Suffix = ""
	style.H1.Underline = &underline

	theme := CodeTheme()
	if theme == "" {
		theme = defaultCodeTheme
	}
	style.CodeBlock.Theme = theme
	style.CodeBlock.Chroma = nil
	return style
}
