package models

import (
	"strings"
	"unicode/utf8"
)

// Stats are the counters shown next to the input and output panes.
type Stats struct {
	FilesUploaded   int    `json:"files_uploaded"`
	TotalCharacters int    `json:"total_characters"`
	ReadmeLength    int    `json:"readme_length"`
	Status          string `json:"status"`
	Lines           int    `json:"lines"`
	Words           int    `json:"words"`
	Characters      int    `json:"characters"`
}

const (
	StatusGenerated = "generated"
	StatusPending   = "pending"
)

// ComputeStats derives the counters from the session state.
func ComputeStats(s *SessionState) Stats {
	st := Stats{Status: StatusPending}
	if s == nil {
		return st
	}
	st.FilesUploaded = s.Files.Len()
	for _, rec := range s.Files.Records {
		st.TotalCharacters += utf8.RuneCountInString(rec.Content)
	}
	if s.Generated() {
		st.Status = StatusGenerated
	}
	st.ReadmeLength = utf8.RuneCountInString(s.Output)
	st.Characters = st.ReadmeLength
	st.Lines = CountLines(s.Output)
	st.Words = len(strings.Fields(s.Output))
	return st
}

// CountLines counts lines the way a line splitter would: a trailing newline does
// not open a new line.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
