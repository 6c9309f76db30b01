package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/usemerge"
	"github.com/jward/usemerge/internal/config"
	"github.com/jward/usemerge/internal/logging"
)

var (
	flagDB        string
	flagFormat    string
	flagPolicy    string
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "usemerge",
	Short:         "Merge and normalize Rust use declarations",
	Long:          "usemerge merges Rust `use` declarations under a configurable granularity policy and keeps a SQLite index of every declaration in a repository.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default: .usemerge/index.db relative to repo root)")
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text|yaml")
	pf.StringVar(&flagPolicy, "policy", "", "merge policy: one|crate|module (default from config, else crate)")
	pf.StringVar(&flagConfig, "config", "", "config file (default: .usemerge.yaml in the repo root)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: console|json")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(scriptCmd)
}

// loadConfig reads configuration for the repository containing dir. Flags
// override the config file, which overrides USEMERGE_* variables.
func loadConfig(dir string) (*config.Config, string, error) {
	repoRoot := findRepoRoot(dir)
	v, err := config.NewViper(flagConfig, repoRoot)
	if err != nil {
		return nil, "", err
	}
	pf := rootCmd.PersistentFlags()
	for key, name := range map[string]string{
		"db":           "db",
		"merge.policy": "policy",
		"log.level":    "log-level",
		"log.format":   "log-format",
	} {
		if err := v.BindPFlag(key, pf.Lookup(name)); err != nil {
			return nil, "", fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, repoRoot, nil
}

// openEngine builds an Engine for the repository containing dir. The
// returned cleanup closes the engine and flushes the logger.
func openEngine(dir string) (*usemerge.Engine, func(), error) {
	cfg, repoRoot, err := loadConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	dbPath := resolveDBPath(repoRoot, cfg.DB)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	scriptsDir := cfg.Scripts
	if scriptsDir != "" && !filepath.IsAbs(scriptsDir) {
		scriptsDir = filepath.Join(repoRoot, scriptsDir)
	}

	engine, err := usemerge.New(dbPath,
		usemerge.WithPolicy(cfg.Policy()),
		usemerge.WithLogger(logger),
		usemerge.WithParallel(cfg.Parallel),
		usemerge.WithWorkers(cfg.Workers),
		usemerge.WithScriptsDir(scriptsDir),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}
	logger.Debug("engine ready",
		zap.String("db", dbPath),
		zap.Stringer("policy", cfg.Policy()),
	)
	return engine, func() {
		engine.Close()
		_ = logger.Sync()
	}, nil
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the use declarations of a repository",
	Long:  "Parses every Rust file under path with tree-sitter and records its use declarations in the SQLite database. Unchanged files are skipped and deleted files are dropped from the index.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	if flagForce {
		cfg, repoRoot, err := loadConfig(targetDir)
		if err != nil {
			return err
		}
		dbPath := resolveDBPath(repoRoot, cfg.DB)
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, done, err := openEngine(targetDir)
	if err != nil {
		return err
	}
	defer done()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	files, err := engine.Query().Files()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Indexed %d files in %s in %s\n",
		len(files), targetDir, time.Since(start).Round(time.Millisecond))
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns db relative to repoRoot, or the default location.
func resolveDBPath(repoRoot, db string) string {
	if db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".usemerge", "index.db")
}

// cwd returns the working directory, the starting point for config lookup
// of commands that take file arguments.
func cwd() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return dir, nil
}
