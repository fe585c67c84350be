package ingest

import (
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"readmegen/internal/models"
)

// Source is one uploaded blob. Open is called once per ingestion.
type Source struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// BinaryPlaceholder describes a file that is not read as text.
func BinaryPlaceholder(name string, size int64) string {
	return fmt.Sprintf("[Binary file: %s - Size: %d bytes]", name, size)
}

// UndecodablePlaceholder describes a text-classified file with invalid UTF-8.
func UndecodablePlaceholder(name string) string {
	return fmt.Sprintf("[Binary file: %s - Could not read as text]", name)
}

// ErrorPlaceholder describes a file whose bytes could not be read.
func ErrorPlaceholder(name string, err error) string {
	return fmt.Sprintf("[Error reading file %s: %v]", name, err)
}

// Read classifies and decodes an in-memory file.
func Read(name string, data []byte, size int64) models.FileRecord {
	rec := models.FileRecord{Name: name, Size: size, Kind: Classify(name)}
	if rec.Kind == models.KindBinary {
		rec.Content = BinaryPlaceholder(name, size)
		rec.Placeholder = true
		return rec
	}
	if !utf8.Valid(data) {
		rec.Content = UndecodablePlaceholder(name)
		rec.Placeholder = true
		return rec
	}
	rec.Content = string(data)
	return rec
}

// ReadSource opens and reads one source. Binary files are never read.
func ReadSource(src Source) models.FileRecord {
	if Classify(src.Name) == models.KindBinary {
		return Read(src.Name, nil, src.Size)
	}
	data, err := readAll(src)
	if err != nil {
		log.Printf("ingest %s: %v", src.Name, err)
		return models.FileRecord{
			Name:        src.Name,
			Size:        src.Size,
			Kind:        models.KindText,
			Content:     ErrorPlaceholder(src.Name, err),
			Placeholder: true,
		}
	}
	return Read(src.Name, data, src.Size)
}

func readAll(src Source) ([]byte, error) {
	if src.Open == nil {
		return nil, fmt.Errorf("no reader for %s", src.Name)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Ingest builds a fresh file set from a batch. Callers replace, never merge,
// the previous set with the result.
func Ingest(sources []Source) models.FileSet {
	var fs models.FileSet
	for _, src := range sources {
		fs.Put(ReadSource(src))
	}
	return fs
}
