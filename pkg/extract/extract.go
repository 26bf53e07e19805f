package extract

// Mode selects how candidates are found.
type Mode string

const (
	// ModeWalk parses the input as protobuf wire data.
	ModeWalk Mode = "walk"
	// ModeScan collects printable byte runs.
	ModeScan Mode = "scan"
)

// Options tune a Run.
type Options struct {
	Mode          Mode
	MaxDepth      int
	MinLength     int
	MaxNoiseRatio float64
	ScanMinRun    int
	// Tail keeps only the last Tail strings when positive.
	Tail int
}

// DefaultOptions returns the thresholds the tool ships with.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeWalk,
		MaxDepth:      DefaultMaxDepth,
		MinLength:     DefaultMinLength,
		MaxNoiseRatio: DefaultMaxNoiseRatio,
		ScanMinRun:    DefaultScanMinRun,
	}
}

// Output is the result of a Run.
type Output struct {
	// Candidates is the number of strings found before filtering.
	Candidates int
	// Strings are the filtered strings in discovery order. Never nil.
	Strings []string
}

// Strings runs the default pipeline over data.
func Strings(data []byte) []string {
	return Run(data, DefaultOptions()).Strings
}

// Run finds candidates in data, filters them and applies Tail.
func Run(data []byte, opts Options) Output {
	var candidates []string
	switch opts.Mode {
	case ModeScan:
		candidates = Scan(data, opts.ScanMinRun)
	default:
		w := &Walker{MaxDepth: opts.MaxDepth}
		candidates = w.Walk(data, 0)
	}

	f := &Filter{MinLength: opts.MinLength, MaxNoiseRatio: opts.MaxNoiseRatio}
	kept := f.Apply(candidates)
	return Output{
		Candidates: len(candidates),
		Strings:    Tail(kept, opts.Tail),
	}
}

// Tail returns the last n elements of s, or s itself when n is not positive
// or s is already short enough.
func Tail(s []string, n int) []string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// ParseMode maps a flag value to a Mode. Unknown values yield ModeWalk and
// false.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeWalk, "":
		return ModeWalk, true
	case ModeScan:
		return ModeScan, true
	}
	return ModeWalk, false
}
