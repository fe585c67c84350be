package ingest

import (
	"unicode/utf8"

	"readmegen/internal/models"
)

const previewLimit = 1000

var previewLanguages = map[string]string{
	"py":   "python",
	"js":   "javascript",
	"html": "html",
	"css":  "css",
	"json": "json",
	"yaml": "yaml",
	"yml":  "yaml",
	"sh":   "bash",
	"sql":  "sql",
}

// Preview is the short view of one ingested file.
type Preview struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Text        string `json:"text"`
	Truncated   bool   `json:"truncated"`
	Placeholder bool   `json:"placeholder"`
	Characters  int    `json:"characters"`
	Lines       int    `json:"lines"`
}

// Language returns the highlighting hint for a file name.
func Language(name string) string {
	if lang, ok := previewLanguages[Extension(name)]; ok {
		return lang
	}
	return "text"
}

// NewPreview truncates text content to the first 1000 characters.
func NewPreview(rec models.FileRecord) Preview {
	p := Preview{
		Name:        rec.Name,
		Language:    Language(rec.Name),
		Text:        rec.Content,
		Placeholder: rec.Placeholder,
		Characters:  utf8.RuneCountInString(rec.Content),
		Lines:       models.CountLines(rec.Content),
	}
	if rec.Placeholder {
		return p
	}
	if p.Characters > previewLimit {
		runes := []rune(rec.Content)
		p.Text = string(runes[:previewLimit]) + "\n\n... (truncated)"
		p.Truncated = true
	}
	return p
}
