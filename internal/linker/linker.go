// Package linker resolves the transitive closure of `import "path";`
// statements starting from an entry .poly file, producing the ordered
// set of parsed files the IR builder and validator operate on.
//
// Traversal is breadth-first: the entry file is visited first, then each
// of its direct imports in declaration order, then their imports, and so
// on. A file already visited (by canonical path) is never re-parsed or
// re-queued, so import cycles terminate gracefully rather than erroring.
package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/parser"
)

// ImportNotFoundError reports that an import statement named a path that
// could not be read from disk.
type ImportNotFoundError struct {
	FromFile string
	Path     string
	Err      error
}

func (e *ImportNotFoundError) Error() string {
	return fmt.Sprintf("%s: import %q not found: %v", e.FromFile, e.Path, e.Err)
}

func (e *ImportNotFoundError) Unwrap() error { return e.Err }

// Link loads entryPath and the transitive closure of its imports,
// returning every parsed file in BFS visitation order (the entry file is
// always first).
func Link(entryPath string) ([]*ast.Root, error) {
	entryAbs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, fmt.Errorf("linker: resolve entry path: %w", err)
	}

	visited := map[string]bool{}
	queue := []string{entryAbs}
	var roots []*ast.Root

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		if visited[path] {
			continue
		}
		visited[path] = true

		root, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)

		baseDir := filepath.Dir(path)
		for _, imp := range root.Imports {
			importPath := imp.Path
			if !filepath.IsAbs(importPath) {
				importPath = filepath.Join(baseDir, importPath)
			}
			importAbs, err := filepath.Abs(importPath)
			if err != nil {
				return nil, &ImportNotFoundError{FromFile: path, Path: imp.Path, Err: err}
			}
			if visited[importAbs] {
				continue
			}
			if _, err := os.Stat(importAbs); err != nil {
				return nil, &ImportNotFoundError{FromFile: path, Path: imp.Path, Err: err}
			}
			queue = append(queue, importAbs)
		}
	}

	return roots, nil
}

func parseFile(path string) (*ast.Root, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImportNotFoundError{Path: path, Err: err}
	}
	defer f.Close()
	return parser.Parse(path, f)
}
