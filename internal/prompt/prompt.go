// Package prompt builds the single text payload sent to the generation model.
package prompt

import (
	_ "embed"
	"errors"
	"strings"

	"readmegen/internal/models"
)

//go:embed instruction.md
var systemInstruction string

const (
	descriptionHeader = "\n\n**User Project Description:**\n"
	filesHeader       = "\n\n**Project Files:**\n"
	closingRequest    = "\n\nGenerate a comprehensive README.md based on the above information."
)

// ErrEmptyDescription rejects a blank project description before any model call.
var ErrEmptyDescription = errors.New("please enter a project description first")

// SystemInstruction returns the fixed instruction block that opens every prompt.
func SystemInstruction() string {
	return systemInstruction
}

// Request is a validated description plus the file snapshot it was built with.
type Request struct {
	Description string
	Files       models.FileSet
}

// NewRequest validates the description and snapshots the files.
func NewRequest(description string, files models.FileSet) (Request, error) {
	if strings.TrimSpace(description) == "" {
		return Request{}, ErrEmptyDescription
	}
	return Request{Description: description, Files: files.Clone()}, nil
}

// Prompt composes the request.
func (r Request) Prompt() string {
	return Compose(r.Description, r.Files)
}

// Compose concatenates the instruction, the description and every file in order.
// File contents are inserted verbatim.
func Compose(description string, files models.FileSet) string {
	var b strings.Builder
	b.Grow(len(systemInstruction) + len(description) + 256)
	b.WriteString(systemInstruction)
	b.WriteString(descriptionHeader)
	b.WriteString(description)
	if !files.Empty() {
		b.WriteString(filesHeader)
		for _, rec := range files.Records {
			b.WriteString("\n--- ")
			b.WriteString(rec.Name)
			b.WriteString(" ---\n")
			b.WriteString(rec.Content)
			b.WriteString("\n")
		}
	}
	b.WriteString(closingRequest)
	return b.String()
}
