package source

import "fmt"

// FileID indexes a FileSet.
type FileID uint32

// Span is the byte range [Start, End) of one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan marks entities synthesized by the analysis.
var NoSpan = Span{}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span holding both s and other. A span of
// another file leaves s unchanged.
func (s Span) Cover(other Span) Span {
	if s.File == other.File {
		s.Start = min(s.Start, other.Start)
		s.End = max(s.End, other.End)
	}
	return s
}

// Contains reports whether other lies inside s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}
