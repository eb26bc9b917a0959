package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// FileFlags records how content was changed on load.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota // added from memory
	FileHadBOM
	FileNormalizedCRLF
)

// File is one fixture held by a FileSet.
type File struct {
	ID      FileID
	Path    string // slash-separated and cleaned
	Content []byte
	LineIdx []uint32 // offset of every '\n'
	Flags   FileFlags
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalize strips a UTF-8 BOM and turns CRLF into LF. Lone CRs stay.
func normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, utf8BOM); ok {
		content, flags = rest, FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content, flags = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")), flags|FileNormalizedCRLF
	}
	return content, flags
}

func lineIndex(content []byte) []uint32 {
	idx := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for off := 0; ; {
		i := bytes.IndexByte(content[off:], '\n')
		if i < 0 {
			return idx
		}
		off += i
		idx = append(idx, mustU32(off))
		off++
	}
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return v
}

// position converts off; a '\n' belongs to the line it ends.
func (f *File) position(off uint32) LineCol {
	line, _ := slices.BinarySearch(f.LineIdx, off)
	var start uint32
	if line > 0 {
		start = f.LineIdx[line-1] + 1
	}
	return LineCol{Line: mustU32(line + 1), Col: off - start + 1}
}

func (f *File) size() uint32      { return mustU32(len(f.Content)) }
func (f *File) lineCount() uint32 { return mustU32(len(f.LineIdx)) + 1 }

// lineBounds is [start, end) of line n without its terminator. Lines past
// the end are empty at the end of the content.
func (f *File) lineBounds(n uint32) (start, end uint32) {
	size := f.size()
	if n == 0 || n > f.lineCount() {
		return size, size
	}
	if n > 1 {
		start = f.LineIdx[n-2] + 1
	}
	end = size
	if int(n) <= len(f.LineIdx) {
		end = f.LineIdx[n-1]
	}
	return min(start, size), end
}

// Offset is the inverse of FileSet.Resolve. Columns past the line end clamp
// to the line end; line 0 is offset 0.
func (f *File) Offset(pos LineCol) uint32 {
	if pos.Line == 0 {
		return 0
	}
	start, end := f.lineBounds(pos.Line)
	if pos.Col == 0 {
		return start
	}
	return min(start+pos.Col-1, end)
}

// SpanAt is the span of n bytes from pos, cut at the end of the file.
func (f *File) SpanAt(pos LineCol, n uint32) Span {
	start := f.Offset(pos)
	return Span{File: f.ID, Start: start, End: min(start+n, f.size())}
}

// GetLine returns line n (1-based) without its terminator.
func (f *File) GetLine(n uint32) string {
	if n == 0 || n > f.lineCount() {
		return ""
	}
	start, end := f.lineBounds(n)
	return string(f.Content[start:end])
}

// FormatPath renders the path for output. mode is absolute, relative,
// basename or auto; auto shortens long absolute paths to their base name.
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
	case "relative":
		if baseDir == "" {
			baseDir, _ = os.Getwd()
		}
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
	case "basename":
		return BaseName(f.Path)
	case "auto":
		if len(f.Path) >= 40 && filepath.IsAbs(f.Path) {
			return BaseName(f.Path)
		}
	}
	return f.Path
}

func cleanPath(p string) string { return filepath.ToSlash(filepath.Clean(p)) }

// AbsolutePath returns p absolute and slash-separated.
func AbsolutePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return cleanPath(abs), nil
}

// RelativePath renders target relative to baseDir. Targets outside baseDir
// are returned absolute, so output never starts with "../".
func RelativePath(target, baseDir string) (string, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return cleanPath(absTarget), nil
	}
	return cleanPath(rel), nil
}

func BaseName(p string) string { return filepath.Base(cleanPath(p)) }
