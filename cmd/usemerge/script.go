package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagVars []string

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor>",
	Short: "Run a Risor script against the merge engine and index",
	Long:  "Runs a Risor script with the merge builtins (try_merge, merge_block, insert_use, parse_use, ...) and, when the repository has been indexed, the index builtins (files, uses_in_file, files_importing, db_query). Values passed with --var are available as string globals.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	scriptCmd.Flags().StringArrayVar(&flagVars, "var", nil, "global variable for the script as name=value (repeatable)")
}

func runScript(cmd *cobra.Command, args []string) error {
	globals, err := parseVars(flagVars)
	if err != nil {
		return err
	}
	dir, err := cwd()
	if err != nil {
		return err
	}
	engine, done, err := openEngine(dir)
	if err != nil {
		return err
	}
	defer done()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}
	if err := engine.RunScript(context.Background(), path, globals); err != nil {
		return fmt.Errorf("script %s: %w", args[0], err)
	}
	return nil
}

// parseVars turns name=value pairs into script globals.
func parseVars(vars []string) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for _, kv := range vars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}
