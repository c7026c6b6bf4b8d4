// Package world gives the agent its read-only view of the workspace:
// file listing, file contents, and symbol extraction via tree-sitter.
package world

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codescout/internal/logging"
)

// Hidden directories that still carry project-relevant configuration.
var allowedHidden = map[string]bool{
	".github":   true,
	".vscode":   true,
	".circleci": true,
	".config":   true,
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"target":       true,
	"__pycache__":  true,
	".scout":       true,
}

const maxFileBytes = 512 * 1024

// Workspace is rooted at a project directory. All paths in and out are
// relative to the root with forward slashes.
type Workspace struct {
	root    string
	symbols *SymbolParser
}

// NewWorkspace creates a workspace view over root.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", root)
	}
	return &Workspace{root: abs, symbols: NewSymbolParser()}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Close releases parser resources.
func (w *Workspace) Close() {
	w.symbols.Close()
}

// ListFiles walks the workspace and returns every tracked file path,
// sorted. Hidden and dependency directories are skipped unless allowlisted.
func (w *Workspace) ListFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := info.Name()
		if info.IsDir() {
			if path == w.root {
				return nil
			}
			if skippedDirs[name] {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && !allowedHidden[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace: %w", err)
	}
	sort.Strings(files)
	logging.WorldDebug("listed %d file(s) under %s", len(files), w.root)
	return files, nil
}

// ReadFile returns the contents of a workspace-relative path. Files over
// maxFileBytes are truncated with a marker so a single read cannot blow
// the model's context.
func (w *Workspace) ReadFile(ctx context.Context, path string) (string, error) {
	abs, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxFileBytes {
		return string(data[:maxFileBytes]) + "\n... (truncated)", nil
	}
	return string(data), nil
}

// Snapshot reads every listed file into memory, keyed by relative path.
// Used by the indexer; unreadable files are skipped with a log line.
func (w *Workspace) Snapshot(ctx context.Context) (map[string]string, error) {
	files, err := w.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		content, err := w.ReadFile(ctx, f)
		if err != nil {
			logging.Get(logging.CategoryWorld).Warnf("skipping unreadable file %s: %v", f, err)
			continue
		}
		out[f] = content
	}
	return out, nil
}

// ListSymbols returns the top-level symbol signatures of a source file.
func (w *Workspace) ListSymbols(ctx context.Context, path string) ([]string, error) {
	content, err := w.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	syms, err := w.symbols.Parse(ctx, path, []byte(content))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Signature
	}
	return out, nil
}

// ReadSymbol returns the full source text of one named symbol in a file.
func (w *Workspace) ReadSymbol(ctx context.Context, path, name string) (string, error) {
	content, err := w.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	syms, err := w.symbols.Parse(ctx, path, []byte(content))
	if err != nil {
		return "", err
	}
	for _, s := range syms {
		if s.Name == name {
			return s.Body, nil
		}
	}
	return "", fmt.Errorf("symbol %q not found in %s", name, path)
}

// resolve maps a relative path onto the root and rejects escapes.
func (w *Workspace) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return filepath.Join(w.root, clean), nil
}
