package ingest

import (
	"strings"

	"readmegen/internal/models"
)

// textExtensions lists extensions decoded as UTF-8 text.
var textExtensions = map[string]struct{}{
	"py": {}, "txt": {}, "md": {}, "json": {}, "yaml": {}, "yml": {}, "html": {}, "css": {}, "js": {},
	"xml": {}, "csv": {}, "toml": {}, "ini": {}, "sh": {}, "bat": {}, "ps1": {}, "sql": {}, "log": {},
	"gitignore": {}, "dockerfile": {}, "makefile": {}, "rakefile": {}, "gemfile": {},
	"rc": {}, "htaccess": {}, "htpasswd": {}, "prettierrc": {}, "eslintrc": {}, "babelrc": {},
	"editorconfig": {}, "conf": {}, "cfg": {},
}

// specialNames are extensionless build files matched on the whole name.
var specialNames = map[string]struct{}{
	"dockerfile": {}, "makefile": {}, "rakefile": {}, "gemfile": {}, "jenkinsfile": {},
}

const configSubstring = "config"

// Extension returns the lower-cased text after the last dot. A name without a
// dot is its own extension.
func Extension(name string) string {
	lower := strings.ToLower(name)
	if idx := strings.LastIndex(lower, "."); idx >= 0 {
		return lower[idx+1:]
	}
	return lower
}

// Classify decides whether a file is read as text or described as binary.
func Classify(name string) models.FileKind {
	lower := strings.ToLower(name)
	if _, ok := textExtensions[Extension(name)]; ok {
		return models.KindText
	}
	if _, ok := specialNames[lower]; ok {
		return models.KindText
	}
	if strings.Contains(lower, configSubstring) {
		return models.KindText
	}
	return models.KindBinary
}

// AllowList is the set of names the upload boundary accepts.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from extensions such as "py" or ".py".
func NewAllowList(exts []string) AllowList {
	al := make(AllowList, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			al[e] = struct{}{}
		}
	}
	return al
}

// Allows accepts a file whose extension, or whole lower-cased name, is listed.
func (al AllowList) Allows(name string) bool {
	if len(al) == 0 {
		return true
	}
	if _, ok := al[Extension(name)]; ok {
		return true
	}
	_, ok := al[strings.ToLower(name)]
	return ok
}
