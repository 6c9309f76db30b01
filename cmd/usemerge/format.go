package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tUSES\tHASH")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.ID, f.Path, f.UseCount, f.Hash)
	}
	tw.Flush()
}

// formatUsesText formats CLIUse results as aligned columns.
func formatUsesText(w io.Writer, uses []CLIUse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tBLOCK\tDECLARATION")
	for _, u := range uses {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", u.StartLine, u.Block, oneLine(u.Text))
	}
	tw.Flush()
}

// formatCandidatesText prints each mergeable pair followed by its merge.
func formatCandidatesText(w io.Writer, cands []CLICandidate) {
	for i, c := range cands {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d: %s\n", c.A.StartLine, oneLine(c.A.Text))
		fmt.Fprintf(w, "%d: %s\n", c.B.StartLine, oneLine(c.B.Text))
		fmt.Fprintf(w, "=> %s\n", oneLine(c.Merged))
	}
}

// formatFileResultsText prints one summary line per file.
func formatFileResultsText(w io.Writer, results []CLIFileResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTATUS\tBEFORE\tAFTER\tSKIPPED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.Path, status(r), r.Before, r.After, r.Skipped)
	}
	tw.Flush()
}

func status(r CLIFileResult) string {
	switch {
	case r.Written:
		return "written"
	case r.Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// oneLine collapses a multi-line declaration for columnar output.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// outputResultText writes a CLIResult to stdout as human-readable text.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIUse:
		formatUsesText(w, v)
	case []CLICandidate:
		formatCandidatesText(w, v)
	case []CLIFileResult:
		formatFileResultsText(w, v)
	case CLIFileResult:
		formatFileResultsText(w, []CLIFileResult{v})
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
