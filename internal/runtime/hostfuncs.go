package runtime

import (
	"context"
	"fmt"
	"os"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/parse"
	"github.com/jward/usemerge/internal/usetree"
)

// parseDecl reads either a full declaration (`pub use a::b;`) or a bare tree
// (`a::b`).
func parseDecl(text string) (*usetree.Use, error) {
	u, err := usetree.ParseUse(text)
	if err == nil {
		return u, nil
	}
	t, treeErr := usetree.ParseTree(text)
	if treeErr != nil {
		return nil, err
	}
	return &usetree.Use{Tree: t}, nil
}

// policyArg returns the policy named by args[i], or def when absent.
func policyArg(name string, args []object.Object, i int, def merge.Policy) (merge.Policy, *object.Error) {
	if len(args) <= i {
		return def, nil
	}
	s, err := toString(args[i])
	if err != nil {
		return "", object.Errorf("%s: policy: %v", name, err)
	}
	p, err := merge.ParsePolicy(s)
	if err != nil {
		return "", object.Errorf("%s: %v", name, err)
	}
	return p, nil
}

// makeParseUseFn creates the "parse_use" host function.
//
// parse_use(text) → map describing the declaration
func makeParseUseFn() *object.Builtin {
	return object.NewBuiltin("parse_use", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_use", 1, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_use: %v", err)
		}
		u, err := parseDecl(text)
		if err != nil {
			return object.Errorf("parse_use: %v", err)
		}
		return object.NewMap(useFields(u))
	})
}

// makeParseUsesFn creates "parse_uses", which extracts every declaration
// from Rust source text.
//
// parse_uses(source) → []map
func makeParseUsesFn() *object.Builtin {
	return object.NewBuiltin("parse_uses", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_uses", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_uses: %v", err)
		}
		return parseSource(ctx, "parse_uses", []byte(src))
	})
}

// makeParseFileFn creates "parse_file", the on-disk form of parse_uses.
//
// parse_file(path) → []map
func makeParseFileFn() *object.Builtin {
	return object.NewBuiltin("parse_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_file: %v", err)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse_file: reading %s: %v", path, err)
		}
		return parseSource(ctx, "parse_file", src)
	})
}

func parseSource(ctx context.Context, name string, src []byte) object.Object {
	f, err := parse.Source(ctx, src)
	if err != nil {
		return object.Errorf("%s: %v", name, err)
	}
	results := []object.Object{}
	for bi, b := range f.Blocks {
		for _, d := range b.Decls {
			m := useFields(d.Use)
			m["source"] = object.NewString(d.Text)
			m["block"] = object.NewInt(int64(bi))
			m["start_line"] = object.NewInt(int64(d.StartLine))
			m["end_line"] = object.NewInt(int64(d.EndLine))
			m["commented"] = object.NewBool(d.Commented)
			results = append(results, object.NewMap(m))
		}
	}
	return object.NewList(results)
}

// makeTryMergeFn creates the "try_merge" host function.
//
// try_merge(a, b [, policy]) → merged declaration text, or nil
func makeTryMergeFn(def merge.Policy) *object.Builtin {
	return object.NewBuiltin("try_merge", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 && len(args) != 3 {
			return object.Errorf("try_merge: expected 2 or 3 arguments, got %d", len(args))
		}
		p, perr := policyArg("try_merge", args, 2, def)
		if perr != nil {
			return perr
		}
		a, errObj := useArg("try_merge", args[0])
		if errObj != nil {
			return errObj
		}
		b, errObj := useArg("try_merge", args[1])
		if errObj != nil {
			return errObj
		}
		merged, ok := merge.TryMergeImports(a, b, p)
		if !ok {
			return object.Nil
		}
		return object.NewString(merged.String())
	})
}

// makeMergeBlockFn creates the "merge_block" host function.
//
// merge_block([texts] [, policy]) → []string
func makeMergeBlockFn(def merge.Policy) *object.Builtin {
	return object.NewBuiltin("merge_block", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 && len(args) != 2 {
			return object.Errorf("merge_block: expected 1 or 2 arguments, got %d", len(args))
		}
		p, perr := policyArg("merge_block", args, 1, def)
		if perr != nil {
			return perr
		}
		uses, errObj := useListArg("merge_block", args[0])
		if errObj != nil {
			return errObj
		}
		return usesToList(merge.MergeBlock(uses, p))
	})
}

// makeInsertUseFn creates the "insert_use" host function.
//
// insert_use([texts], text [, policy]) → {uses: []string, index: int}
func makeInsertUseFn(def merge.Policy) *object.Builtin {
	return object.NewBuiltin("insert_use", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 && len(args) != 3 {
			return object.Errorf("insert_use: expected 2 or 3 arguments, got %d", len(args))
		}
		p, perr := policyArg("insert_use", args, 2, def)
		if perr != nil {
			return perr
		}
		uses, errObj := useListArg("insert_use", args[0])
		if errObj != nil {
			return errObj
		}
		u, errObj := useArg("insert_use", args[1])
		if errObj != nil {
			return errObj
		}
		out, idx := merge.InsertUse(uses, u, p)
		return object.NewMap(map[string]object.Object{
			"uses":  usesToList(out),
			"index": object.NewInt(int64(idx)),
		})
	})
}

// makeConcretePathsFn creates "concrete_paths".
//
// concrete_paths(text) → []string
func makeConcretePathsFn() *object.Builtin {
	return object.NewBuiltin("concrete_paths", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("concrete_paths", 1, len(args))
		}
		u, errObj := useArg("concrete_paths", args[0])
		if errObj != nil {
			return errObj
		}
		return stringsToList(u.Tree.ConcretePaths())
	})
}

func useArg(name string, obj object.Object) (*usetree.Use, *object.Error) {
	text, err := toString(obj)
	if err != nil {
		return nil, object.Errorf("%s: %v", name, err)
	}
	u, err := parseDecl(text)
	if err != nil {
		return nil, object.Errorf("%s: %v", name, err)
	}
	return u, nil
}

func useListArg(name string, obj object.Object) ([]*usetree.Use, *object.Error) {
	list, ok := obj.(*object.List)
	if !ok {
		return nil, object.Errorf("%s: expected list, got %s", name, obj.Type())
	}
	var uses []*usetree.Use
	for _, item := range list.Value() {
		u, errObj := useArg(name, item)
		if errObj != nil {
			return nil, errObj
		}
		uses = append(uses, u)
	}
	return uses, nil
}

func useFields(u *usetree.Use) map[string]object.Object {
	attrs := make([]string, len(u.Attrs))
	for i, a := range u.Attrs {
		attrs[i] = a.Text
	}
	vis := ""
	if u.Visibility != nil {
		vis = u.Visibility.String()
	}
	return map[string]object.Object{
		"text":       object.NewString(u.String()),
		"tree":       object.NewString(u.Tree.String()),
		"visibility": object.NewString(vis),
		"attrs":      stringsToList(attrs),
		"paths":      stringsToList(u.Tree.ConcretePaths()),
	}
}

func usesToList(uses []*usetree.Use) object.Object {
	out := make([]string, len(uses))
	for i, u := range uses {
		out[i] = u.String()
	}
	return stringsToList(out)
}

func stringsToList(ss []string) object.Object {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }

func (l *logObject) Info(msg string) { l.logger.Info(msg) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg) }

func (l *logObject) Error(msg string) { l.logger.Error(msg) }

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
