package types

// Result is one completed extraction.
type Result struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`     // input path, or "-" for inline data
	Format     string   `json:"format"`     // container unwrapped before parsing, "raw" if none
	Mode       string   `json:"mode"`       // "walk" or "scan"
	Strings    []string `json:"strings"`    // filtered strings in discovery order
	Candidates int      `json:"candidates"` // strings found before filtering
	Bytes      int      `json:"bytes"`      // parsed size after unwrapping
	CreatedAt  int64    `json:"createdAt"`  // unix ms
}

// RunSummary describes a stored Result without its strings.
type RunSummary struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Format     string `json:"format"`
	Mode       string `json:"mode"`
	Count      int    `json:"count"`
	Candidates int    `json:"candidates"`
	Bytes      int    `json:"bytes"`
	CreatedAt  int64  `json:"createdAt"`
}

// ExtractRequest describes an extraction requested over MCP.
type ExtractRequest struct {
	Path       string `json:"path,omitempty"`
	Data       []byte `json:"data,omitempty"` // used when Path is empty
	Mode       string `json:"mode,omitempty"`
	Decompress string `json:"decompress,omitempty"`
	Tail       int    `json:"tail,omitempty"`
}
