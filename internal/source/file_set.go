package source

import "os"

// FileSet owns the files of one analysis; spans refer to them by FileID.
type FileSet struct {
	files   []File
	byPath  map[string]FileID // latest file per path
	baseDir string
}

func NewFileSet() *FileSet {
	return &FileSet{byPath: make(map[string]FileID)}
}

// SetBaseDir sets the directory relative paths are rendered against.
func (fs *FileSet) SetBaseDir(dir string) { fs.baseDir = dir }

// BaseDir is the directory set by SetBaseDir, or the working directory.
func (fs *FileSet) BaseDir() string {
	if fs.baseDir != "" {
		return fs.baseDir
	}
	wd, _ := os.Getwd()
	return wd
}

// Add registers content as-is under path and returns its new ID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	id := FileID(mustU32(len(fs.files)))
	path = cleanPath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: lineIndex(content),
		Flags:   flags,
	})
	fs.byPath[path] = id
	return id
}

// Load reads path, drops a BOM and normalizes CRLF line ends.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path comes from the command line
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, flags := normalize(raw)
	return fs.Add(path, content, flags), nil
}

// AddVirtual registers an in-memory file.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get panics on an unknown id.
func (fs *FileSet) Get(id FileID) *File { return &fs.files[id] }

func (fs *FileSet) Len() int { return len(fs.files) }

// Lookup returns the latest file added under path.
func (fs *FileSet) Lookup(path string) (*File, bool) {
	id, ok := fs.byPath[cleanPath(path)]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

// Resolve converts both ends of span to line and column.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := &fs.files[span.File]
	return f.position(span.Start), f.position(span.End)
}
