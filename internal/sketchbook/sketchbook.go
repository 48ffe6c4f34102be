// Package sketchbook finds runnable sketches on disk.
package sketchbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sketch is a directory holding at least one source file.
type Sketch struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// IsSketchDir reports whether dir directly contains a regular file with the
// extension ext. Subdirectories are not searched.
func IsSketchDir(dir, ext string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if filepath.Ext(e.Name()) == ext {
			return true
		}
	}
	return false
}

// List returns the sketches in root, sorted by name. Root itself is included
// when it is a sketch.
func List(root, ext string) ([]Sketch, error) {
	root = ExpandHome(root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading sketchbook %s: %w", root, err)
	}

	var out []Sketch
	if IsSketchDir(root, ext) {
		out = append(out, Sketch{Name: filepath.Base(root), Path: root})
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if IsSketchDir(dir, ext) {
			out = append(out, Sketch{Name: e.Name(), Path: dir})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
