package usemerge

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/parse"
	umrt "github.com/jward/usemerge/internal/runtime"
	"github.com/jward/usemerge/internal/store"
)

// Engine indexes Rust sources, merges their use declarations and runs
// user scripts against both.
type Engine struct {
	store      *store.Store
	runtime    *umrt.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	policy     merge.Policy
	logger     *zap.Logger

	// useParallel enables the worker-pool indexing pipeline.
	useParallel bool
	workers     int // 0 means runtime.NumCPU()
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the merge policy. The default is Crate.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// parses files on a bounded worker pool and commits the results to SQLite
// in a single transaction. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers bounds the parallel indexing pool. n <= 0 uses one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir sets the directory relative script paths and `import`
// statements are resolved against.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("usemerge: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("usemerge: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		policy:      merge.Crate,
		logger:      zap.NewNop(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	rtOpts := []umrt.RuntimeOption{
		umrt.WithPolicy(e.policy),
		umrt.WithLogger(e.logger),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, umrt.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = umrt.NewRuntime(s, e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Policy returns the merge policy in effect.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, policy: e.policy}
}

// RunScript runs a Risor script from the scripts directory or filesystem.
func (e *Engine) RunScript(ctx context.Context, path string, extras map[string]any) error {
	return e.runtime.RunScript(ctx, path, extras)
}

// RunSource runs Risor source code with the same globals as RunScript.
func (e *Engine) RunSource(ctx context.Context, src string, extras map[string]any) error {
	return e.runtime.RunSource(ctx, src, extras)
}

// IndexFiles indexes the given file paths. Relative paths are resolved
// against the working directory. Files that are not Rust sources are ignored
// and unchanged files (same content hash) are skipped.
//
// A failing file does not stop the batch; all failures are returned together.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs *multierror.Error
	indexed := 0
	for _, path := range paths {
		ok, err := e.indexFile(ctx, path, e.store)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if ok {
			indexed++
		}
	}
	e.logger.Info("index complete", zap.Int("files", len(paths)), zap.Int("indexed", indexed))
	return errs.ErrorOrNil()
}

// indexFile reads, hashes and extracts one file into ds. It reports false
// when the file was skipped. Files are stored under their absolute path.
func (e *Engine) indexFile(ctx context.Context, path string, ds store.DataStore) (bool, error) {
	if !parse.IsRustFile(path) {
		return false, nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}
	hash, err := store.ContentHash(content)
	if err != nil {
		return false, err
	}

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		e.logger.Debug("unchanged", zap.String("file", path))
		return false, nil
	}

	f, uses, err := extract(ctx, path, content)
	if err != nil {
		return false, err
	}
	f.Hash = hash
	if err := ds.PutFile(f, uses); err != nil {
		return false, fmt.Errorf("store file: %w", err)
	}
	e.logger.Debug("indexed", zap.String("file", path), zap.Int("uses", len(uses)), zap.Int("unparsed", f.Unparsed))
	return true, nil
}

// extract parses content and returns the file record and its declarations.
func extract(ctx context.Context, path string, content []byte) (*store.File, []*store.Use, error) {
	pf, err := parse.Source(ctx, content)
	if err != nil {
		return nil, nil, err
	}

	var uses []*store.Use
	ordinal := 0
	for bi, b := range pf.Blocks {
		for _, d := range b.Decls {
			uses = append(uses, storeUse(d, ordinal, bi))
			ordinal++
		}
	}
	f := &store.File{
		Path:        path,
		Unparsed:    pf.Unparsed,
		LastIndexed: time.Now(),
	}
	return f, uses, nil
}

func storeUse(d parse.Decl, ordinal, block int) *store.Use {
	u := &store.Use{
		Ordinal:   ordinal,
		Block:     block,
		Text:      d.Text,
		Tree:      d.Use.Tree.String(),
		StartLine: int(d.StartLine),
		EndLine:   int(d.EndLine),
		StartByte: int(d.StartByte),
		EndByte:   int(d.EndByte),
		Paths:     d.Use.Tree.ConcretePaths(),
	}
	if d.Use.Visibility != nil {
		u.Visibility = d.Use.Visibility.String()
	}
	for _, a := range d.Use.Attrs {
		u.Attrs = append(u.Attrs, a.Text)
	}
	return u
}

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory indexes every Rust file under root and forgets indexed files
// under root that no longer exist. Inside a git repository git ls-files is
// used so .gitignore is respected; otherwise the filesystem is walked,
// skipping hidden directories and build output.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("usemerge: %w", err)
	}
	paths, err := gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", zap.String("root", root), zap.Error(err))
		paths, err = walkListFiles(root)
		if err != nil {
			return fmt.Errorf("usemerge: %w", err)
		}
	}

	var errs *multierror.Error
	if err := e.IndexFiles(ctx, paths); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := e.pruneMissing(root, paths); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// pruneMissing deletes index entries under root whose file is not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	prefix := filepath.Clean(root) + string(filepath.Separator)
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("prune %s: %w", f.Path, err)
		}
		e.logger.Debug("pruned", zap.String("file", f.Path))
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Rust files under root.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if parse.IsRustFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers Rust files by walking the filesystem.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if parse.IsRustFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
