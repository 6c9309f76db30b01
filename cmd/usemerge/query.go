package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/usemerge"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the declaration index",
	Long:  "Run queries against an indexed repository. Line numbers are 0-based.",
}

func init() {
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(usesCmd)
	queryCmd.AddCommand(importersCmd)
	queryCmd.AddCommand(candidatesCmd)
	queryCmd.AddCommand(pathsCmd)
}

// openIndex opens the engine for the current repository, failing when it
// has not been indexed yet.
func openIndex() (*usemerge.Engine, func(), error) {
	dir, err := cwd()
	if err != nil {
		return nil, nil, err
	}
	cfg, repoRoot, err := loadConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	dbPath := resolveDBPath(repoRoot, cfg.DB)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("database not found: %s (run 'usemerge index' first)", dbPath)
	}
	return openEngine(dir)
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	engine, done, err := openIndex()
	if err != nil {
		return outputError("files", err)
	}
	defer done()

	files, err := engine.Query().Files()
	if err != nil {
		return outputError("files", err)
	}
	total := len(files)
	return outputResult(CLIResult{
		Command:    "files",
		Results:    lo.Map(files, func(f *usemerge.File, _ int) CLIFile { return fileToCLI(f) }),
		TotalCount: &total,
	})
}

var usesCmd = &cobra.Command{
	Use:   "uses <file>",
	Short: "List the use declarations of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUses,
}

func runUses(cmd *cobra.Command, args []string) error {
	engine, done, err := openIndex()
	if err != nil {
		return outputError("uses", err)
	}
	defer done()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("uses", err)
	}
	uses, err := engine.Query().UsesInFile(path)
	if err != nil {
		return outputError("uses", err)
	}
	total := len(uses)
	return outputResult(CLIResult{
		Command:    "uses",
		Results:    lo.Map(uses, func(u *usemerge.IndexedUse, _ int) CLIUse { return useToCLI(u) }),
		TotalCount: &total,
	})
}

var importersCmd = &cobra.Command{
	Use:   "importers <path>",
	Short: "List files importing a path or anything below it",
	Long:  "Lists the files with a declaration importing path or one of its descendants. `std::fmt` matches `std::fmt::Display` but not `std::fmtx`.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImporters,
}

func runImporters(cmd *cobra.Command, args []string) error {
	engine, done, err := openIndex()
	if err != nil {
		return outputError("importers", err)
	}
	defer done()

	files, err := engine.Query().FilesImporting(args[0])
	if err != nil {
		return outputError("importers", err)
	}
	total := len(files)
	return outputResult(CLIResult{
		Command:    "importers",
		Results:    lo.Map(files, func(f *usemerge.File, _ int) CLIFile { return fileToCLI(f) }),
		TotalCount: &total,
	})
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates <file>",
	Short: "List pairs of declarations in a file that would merge",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandidates,
}

func runCandidates(cmd *cobra.Command, args []string) error {
	engine, done, err := openIndex()
	if err != nil {
		return outputError("candidates", err)
	}
	defer done()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("candidates", err)
	}
	cands, err := engine.Query().MergeCandidates(path)
	if err != nil {
		return outputError("candidates", err)
	}
	total := len(cands)
	return outputResult(CLIResult{
		Command: "candidates",
		Results: lo.Map(cands, func(c usemerge.Candidate, _ int) CLICandidate {
			return CLICandidate{A: useToCLI(c.A), B: useToCLI(c.B), Merged: c.Merged}
		}),
		TotalCount: &total,
	})
}

var pathsCmd = &cobra.Command{
	Use:   "paths <file>",
	Short: "List the concrete paths a file imports",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaths,
}

func runPaths(cmd *cobra.Command, args []string) error {
	engine, done, err := openIndex()
	if err != nil {
		return outputError("paths", err)
	}
	defer done()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("paths", err)
	}
	paths, err := engine.Query().ImportedPaths(path)
	if err != nil {
		return outputError("paths", err)
	}
	total := len(paths)
	return outputResult(CLIResult{Command: "paths", Results: paths, TotalCount: &total})
}

// --- Output ---

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	switch flagFormat {
	case "text":
		return outputResultText(result)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In text mode it goes to stderr, otherwise a
// CLIResult envelope is written to stdout.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = outputResult(CLIResult{Command: command, Error: err.Error()})
	return err
}

func fileToCLI(f *usemerge.File) CLIFile {
	return CLIFile{
		ID:          f.ID,
		Path:        relPath(f.Path),
		Hash:        f.Hash,
		UseCount:    f.UseCount,
		Unparsed:    f.Unparsed,
		LastIndexed: f.LastIndexed.UTC().Format(time.RFC3339),
	}
}

func useToCLI(u *usemerge.IndexedUse) CLIUse {
	return CLIUse{
		ID:         u.ID,
		Ordinal:    u.Ordinal,
		Block:      u.Block,
		Text:       u.Text,
		Tree:       u.Tree,
		Visibility: u.Visibility,
		Attrs:      u.Attrs,
		StartLine:  u.StartLine,
		EndLine:    u.EndLine,
		Paths:      u.Paths,
	}
}

// relPath shortens path relative to the working directory when it lies below it.
func relPath(path string) string {
	dir, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || !filepath.IsLocal(rel) {
		return path
	}
	return rel
}
