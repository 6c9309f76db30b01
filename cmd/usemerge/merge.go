package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jward/usemerge"
)

var (
	flagWrite bool
	flagCheck bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge the use declarations of Rust files",
	Long:  "Merges and orders every block of consecutive use declarations. Files are only rewritten with --write. Blocks containing comments are left untouched.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write merged files back to disk")
	mergeCmd.Flags().BoolVar(&flagCheck, "check", false, "exit with an error if any file would change")
}

func runMerge(cmd *cobra.Command, args []string) error {
	dir, err := cwd()
	if err != nil {
		return outputError("merge", err)
	}
	engine, done, err := openEngine(dir)
	if err != nil {
		return outputError("merge", err)
	}
	defer done()

	ctx := context.Background()
	results := make([]CLIFileResult, 0, len(args))
	for _, arg := range args {
		path, err := resolveFilePath(arg)
		if err != nil {
			return outputError("merge", err)
		}
		res, err := engine.MergeFile(ctx, path)
		if err != nil {
			return outputError("merge", err)
		}
		if flagWrite {
			if err := engine.WriteFile(ctx, res); err != nil {
				return outputError("merge", err)
			}
		}
		results = append(results, fileResultToCLI(res, flagWrite))
	}

	total := len(results)
	if err := outputResult(CLIResult{Command: "merge", Results: results, TotalCount: &total}); err != nil {
		return err
	}
	if flagCheck && !flagWrite {
		if n := lo.CountBy(results, func(r CLIFileResult) bool { return r.Changed }); n > 0 {
			return fmt.Errorf("%d of %d files need merging", n, total)
		}
	}
	return nil
}

var insertCmd = &cobra.Command{
	Use:   "insert <file> <use>",
	Short: "Add a use declaration to a Rust file",
	Long:  "Merges the declaration into the file's leading block of use declarations, or inserts it in sorted position. Accepts `use a::b;` or a bare tree `a::b`.",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsert,
}

func init() {
	insertCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write the file back to disk")
}

func runInsert(cmd *cobra.Command, args []string) error {
	dir, err := cwd()
	if err != nil {
		return outputError("insert", err)
	}
	engine, done, err := openEngine(dir)
	if err != nil {
		return outputError("insert", err)
	}
	defer done()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("insert", err)
	}
	ctx := context.Background()
	res, err := engine.InsertImport(ctx, path, args[1])
	if err != nil {
		return outputError("insert", err)
	}
	if flagWrite {
		if err := engine.WriteFile(ctx, res); err != nil {
			return outputError("insert", err)
		}
	}
	return outputResult(CLIResult{Command: "insert", Results: fileResultToCLI(res, flagWrite)})
}

func fileResultToCLI(res *usemerge.FileResult, written bool) CLIFileResult {
	out := CLIFileResult{
		Path:    res.Path,
		Changed: res.Changed,
		Written: written && res.Changed,
		Before:  res.Before,
		After:   res.After,
		Skipped: res.Skipped,
		Index:   res.Index,
	}
	if res.Changed && !written {
		out.Source = string(res.Source)
	}
	return out
}
