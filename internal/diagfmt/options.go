package diagfmt

// PathMode selects how file names are printed.
type PathMode uint8

const (
	PathModeAuto PathMode = iota // as given, long absolute paths shortened
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

var pathModeNames = [...]string{"auto", "absolute", "relative", "basename"}

// String is the mode name source.File.FormatPath understands.
func (m PathMode) String() string {
	if int(m) < len(pathModeNames) {
		return pathModeNames[m]
	}
	return pathModeNames[PathModeAuto]
}

type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown above the primary line.
	Context   int8
	PathMode  PathMode
	ShowNotes bool
}

type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	// Max truncates the output; the bag itself is left alone.
	Max          int
	IncludeNotes bool
}
