package models

// FileKind is the closed result of classifying an uploaded file.
type FileKind string

const (
	KindText   FileKind = "text"
	KindBinary FileKind = "binary"
)

// FileRecord is one ingested upload. Content holds either the decoded text or a
// placeholder description, never both.
type FileRecord struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Size        int64    `json:"size"`
	Kind        FileKind `json:"kind"`
	Placeholder bool     `json:"placeholder"`
}

// FileSet is a name-keyed mapping that keeps insertion order.
type FileSet struct {
	Records []FileRecord `json:"records"`
}

// Put inserts or replaces a record. A replaced record keeps its original position.
func (fs *FileSet) Put(rec FileRecord) {
	for i := range fs.Records {
		if fs.Records[i].Name == rec.Name {
			fs.Records[i] = rec
			return
		}
	}
	fs.Records = append(fs.Records, rec)
}

// Get returns the record stored under name.
func (fs *FileSet) Get(name string) (FileRecord, bool) {
	for _, rec := range fs.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return FileRecord{}, false
}

func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.Records)
}

func (fs *FileSet) Empty() bool {
	return fs.Len() == 0
}

// Clone returns a copy that does not share the record slice.
func (fs FileSet) Clone() FileSet {
	if len(fs.Records) == 0 {
		return FileSet{}
	}
	return FileSet{Records: append([]FileRecord(nil), fs.Records...)}
}
