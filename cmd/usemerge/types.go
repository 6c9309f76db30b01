package main

// CLIResult is the top-level envelope for all command output.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIFile is an indexed file.
type CLIFile struct {
	ID          int64  `json:"id" yaml:"id"`
	Path        string `json:"path" yaml:"path"`
	Hash        string `json:"hash" yaml:"hash"`
	UseCount    int    `json:"use_count" yaml:"use_count"`
	Unparsed    int    `json:"unparsed,omitempty" yaml:"unparsed,omitempty"`
	LastIndexed string `json:"last_indexed" yaml:"last_indexed"`
}

// CLIUse is an indexed use declaration.
type CLIUse struct {
	ID         int64    `json:"id" yaml:"id"`
	Ordinal    int      `json:"ordinal" yaml:"ordinal"`
	Block      int      `json:"block" yaml:"block"`
	Text       string   `json:"text" yaml:"text"`
	Tree       string   `json:"tree" yaml:"tree"`
	Visibility string   `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Attrs      []string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	StartLine  int      `json:"start_line" yaml:"start_line"`
	EndLine    int      `json:"end_line" yaml:"end_line"`
	Paths      []string `json:"paths" yaml:"paths"`
}

// CLICandidate is a pair of declarations that merge into Merged.
type CLICandidate struct {
	A      CLIUse `json:"a" yaml:"a"`
	B      CLIUse `json:"b" yaml:"b"`
	Merged string `json:"merged" yaml:"merged"`
}

// CLIFileResult reports the rewrite of one file. Source holds the new file
// content when it changed and was not written.
type CLIFileResult struct {
	Path    string `json:"path" yaml:"path"`
	Changed bool   `json:"changed" yaml:"changed"`
	Written bool   `json:"written" yaml:"written"`
	Before  int    `json:"before" yaml:"before"`
	After   int    `json:"after" yaml:"after"`
	Skipped int    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Index   int    `json:"index,omitempty" yaml:"index,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
}
