package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/usemerge/internal/store"
)

// Index query bridges. Risor cannot walk Go struct slices conveniently, so
// these return lists of maps with primitive values.

func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		return filesToList(files)
	})
}

func makeFilesImportingFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files_importing", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("files_importing", 1, len(args))
		}
		prefix, err := toString(args[0])
		if err != nil {
			return object.Errorf("files_importing: %v", err)
		}
		files, err := s.FilesImporting(prefix)
		if err != nil {
			return object.Errorf("files_importing: %v", err)
		}
		return filesToList(files)
	})
}

func makeUsesInFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("uses_in_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("uses_in_file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("uses_in_file: %v", err)
		}
		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("uses_in_file: %v", err)
		}
		if f == nil {
			return object.NewList([]object.Object{})
		}
		uses, err := s.UsesByFile(f.ID)
		if err != nil {
			return object.Errorf("uses_in_file: %v", err)
		}
		results := make([]object.Object, 0, len(uses))
		for _, u := range uses {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":         object.NewInt(u.ID),
				"ordinal":    object.NewInt(int64(u.Ordinal)),
				"block":      object.NewInt(int64(u.Block)),
				"text":       object.NewString(u.Text),
				"tree":       object.NewString(u.Tree),
				"visibility": object.NewString(u.Visibility),
				"attrs":      stringsToList(u.Attrs),
				"paths":      stringsToList(u.Paths),
				"start_line": object.NewInt(int64(u.StartLine)),
				"end_line":   object.NewInt(int64(u.EndLine)),
			}))
		}
		return object.NewList(results)
	})
}

// makeDBQueryFn creates a db_query bridge that executes read-only SQL.
// Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func filesToList(files []*store.File) object.Object {
	results := make([]object.Object, 0, len(files))
	for _, f := range files {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":        object.NewInt(f.ID),
			"path":      object.NewString(f.Path),
			"hash":      object.NewString(f.Hash),
			"use_count": object.NewInt(int64(f.UseCount)),
			"unparsed":  object.NewInt(int64(f.Unparsed)),
		}))
	}
	return object.NewList(results)
}
