// Package include performs filesystem include resolution for Huff source
// files: a depth-first walk from an entry path that rejects cycles and
// dedups already-visited files by absolute path, per spec.md §6's
// "Include resolver contract".
package include

import (
	"os"
	"path/filepath"

	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/parser"
	"github.com/huffc-go/huffc/internal/source"
)

// Result is the flattened definition stream for a whole compilation unit,
// plus any non-fatal warnings collected while parsing its constituent files.
type Result struct {
	Definitions source.Definitions
	Warnings    []string
}

type resolver struct {
	visited    map[string]bool
	onStack    map[string]bool
	avoidPush0 bool
	warnings   []string
}

// Resolve reads entryPath and everything it (transitively) #includes,
// returning the merged, include-flattened Definitions in depth-first
// declaration order.
func Resolve(entryPath string, avoidPush0 bool) (Result, error) {
	r := &resolver{visited: map[string]bool{}, onStack: map[string]bool{}, avoidPush0: avoidPush0}
	var defs source.Definitions
	if err := r.resolve(entryPath, &defs); err != nil {
		return Result{}, err
	}
	return Result{Definitions: defs, Warnings: r.warnings}, nil
}

func (r *resolver) resolve(path string, defs *source.Definitions) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return compileerr.Wrap(compileerr.KindParseError, err, "resolving path %q", path)
	}
	if r.onStack[abs] {
		return compileerr.New(compileerr.KindCircularInclude, "include cycle detected at %s", abs)
	}
	if r.visited[abs] {
		return nil
	}
	r.onStack[abs] = true
	defer delete(r.onStack, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return compileerr.Wrap(compileerr.KindParseError, err, "reading %s", abs)
	}
	res, err := parser.Parse(data, r.avoidPush0)
	if err != nil {
		return compileerr.Wrap(compileerr.KindParseError, err, "parsing %s: %v", abs, err)
	}
	r.warnings = append(r.warnings, res.Warnings...)

	dir := filepath.Dir(abs)
	for _, inc := range res.File.Includes {
		incPath := inc.Path
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		if err := r.resolve(incPath, defs); err != nil {
			return err
		}
	}

	defs.Append(res.File)
	r.visited[abs] = true
	return nil
}
