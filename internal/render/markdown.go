package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Mode selects how the generated README is displayed.
type Mode string

const (
	ModeRendered Mode = "rendered"
	ModeRaw      Mode = "raw"
	ModeCode     Mode = "code"
)

// ParseMode maps a query value to a display mode, defaulting to rendered.
func ParseMode(v string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case "", ModeRendered:
		return ModeRendered, nil
	case ModeRaw:
		return ModeRaw, nil
	case ModeCode:
		return ModeCode, nil
	default:
		return "", fmt.Errorf("unknown display mode %q", v)
	}
}

// Renderer turns stored Markdown into display fragments.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	style  *chroma.Style
}

func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		policy: policy,
		style:  styles.Get("github"),
	}
}

// Render produces an HTML fragment for the rendered and code modes; the raw mode
// returns the Markdown escaped inside a pre block.
func (r *Renderer) Render(markdown string, mode Mode) (template.HTML, error) {
	switch mode {
	case ModeRendered:
		return r.Markdown(StripFences(markdown))
	case ModeCode:
		return r.Highlight(markdown, "markdown")
	case ModeRaw:
		return template.HTML("<pre class=\"raw\">" + template.HTMLEscapeString(markdown) + "</pre>"), nil
	default:
		return "", fmt.Errorf("unknown display mode %q", mode)
	}
}

// Markdown converts Markdown to sanitized HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// Highlight renders source code with inline styles for the given language.
func (r *Renderer) Highlight(src, language string) (template.HTML, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", language, err)
	}
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r.style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", language, err)
	}
	return template.HTML(buf.String()), nil
}
