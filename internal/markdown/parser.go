// Package markdown renders user-written markdown (memories) and parses card
// definition files with YAML frontmatter.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

type Parser struct {
	md goldmark.Markdown
}

// NewParser builds a renderer that escapes raw HTML, so output is safe to
// embed in the SPA.
func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{
		md: md,
	}
}

// Render converts a markdown body to HTML.
func (p *Parser) Render(source string) (string, error) {
	var buf bytes.Buffer
	err := p.md.Convert([]byte(source), &buf)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Document is a markdown file split into frontmatter and rendered body.
type Document struct {
	Meta map[string]any
	Body string // markdown source without frontmatter
	HTML string
}

// ParseDocument renders source and decodes its frontmatter. Missing or
// malformed frontmatter yields an empty Meta.
func (p *Parser) ParseDocument(source []byte) (*Document, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer

	err := p.md.Convert(source, &buf, parser.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Meta: make(map[string]any),
		Body: string(stripFrontmatter(source)),
		HTML: buf.String(),
	}

	data := frontmatter.Get(ctx)
	if data != nil {
		var meta map[string]any
		if data.Decode(&meta) == nil && meta != nil {
			doc.Meta = meta
		}
	}

	return doc, nil
}

func stripFrontmatter(source []byte) []byte {
	delim := []byte("---")
	if !bytes.HasPrefix(source, delim) {
		return source
	}
	rest := source[len(delim):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return source
	}
	rest = rest[end+len("\n---"):]
	return bytes.TrimLeft(rest, "\r\n")
}
