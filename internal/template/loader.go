package template

import (
	"os"
	"path/filepath"
)

// FSLoader resolves %include paths against a templates directory on
// disk, parsing and caching each file the first time it is requested.
type FSLoader struct {
	Dir   string
	cache map[string][]Node
}

// NewFSLoader creates a loader rooted at dir (a language's templates
// directory, per langconfig.Config.Templates).
func NewFSLoader(dir string) *FSLoader {
	return &FSLoader{Dir: dir, cache: map[string][]Node{}}
}

// Load implements Loader.
func (l *FSLoader) Load(path string) ([]Node, error) {
	if nodes, ok := l.cache[path]; ok {
		return nodes, nil
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, path))
	if err != nil {
		return nil, err
	}
	nodes, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	l.cache[path] = nodes
	return nodes, nil
}
