package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/voiceast/server/domain/entities"
)

const (
	maxListedFiles  = 20
	maxSearchResult = 10
)

// FileInfo describes one listed file
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
	Path     string `json:"path,omitempty"`
}

// resolveDir maps an alias such as "documents" to its path
func (e *Executor) resolveDir(directory string) string {
	if dir, ok := e.config.PathAliases[strings.ToLower(directory)]; ok {
		return dir
	}
	return directory
}

// CreateFile implements repositories.ActionExecutor. Files are created in the documents directory.
func (e *Executor) CreateFile(ctx context.Context, filename string) (entities.ActionResult, error) {
	if filename == "" {
		return failure("No file name provided", nil), nil
	}

	path := filepath.Join(e.resolveDir("documents"), filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure(fmt.Sprintf("Failed to create file: %s", err), err), nil
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return failure(fmt.Sprintf("Failed to create file: %s", err), err), nil
	}

	return success(fmt.Sprintf("Created file: %s", filename)).With("path", path), nil
}

// DeleteFile implements repositories.ActionExecutor. The documents, desktop
// and downloads directories are searched before the name is taken as a path.
func (e *Executor) DeleteFile(ctx context.Context, filename string) (entities.ActionResult, error) {
	if filename == "" {
		return failure("No file name provided", nil), nil
	}

	candidates := []string{
		filepath.Join(e.resolveDir("documents"), filename),
		filepath.Join(e.resolveDir("desktop"), filename),
		filepath.Join(e.resolveDir("downloads"), filename),
		filename,
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(path); err != nil {
			return failure(fmt.Sprintf("Failed to delete file: %s", err), err), nil
		}
		return success(fmt.Sprintf("Deleted file: %s", filename)).With("path", path), nil
	}

	return failure(fmt.Sprintf("File not found: %s", filename), nil), nil
}

// ListFiles implements repositories.ActionExecutor
func (e *Executor) ListFiles(ctx context.Context, directory string) (entities.ActionResult, error) {
	dir := e.resolveDir(directory)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return failure(fmt.Sprintf("Directory not found: %s", directory), nil), nil
	}
	if err != nil {
		return failure(fmt.Sprintf("Failed to list files: %s", err), err), nil
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().Format(time.RFC3339),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	total := len(files)
	if len(files) > maxListedFiles {
		files = files[:maxListedFiles]
	}

	return success(fmt.Sprintf("Found %d files in %s", total, directory)).
		With("files", files).
		With("total", total).
		With("directory", dir), nil
}

// SearchFiles implements repositories.ActionExecutor with a case-insensitive
// name match over the directory tree
func (e *Executor) SearchFiles(ctx context.Context, query, directory string) (entities.ActionResult, error) {
	dir := e.resolveDir(directory)
	if _, err := os.Stat(dir); err != nil {
		return failure(fmt.Sprintf("Directory not found: %s", directory), nil), nil
	}

	needle := strings.ToLower(query)
	var matches []FileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type().IsRegular() && strings.Contains(strings.ToLower(d.Name()), needle) {
			info, err := d.Info()
			if err == nil {
				matches = append(matches, FileInfo{Name: d.Name(), Path: path, Size: info.Size()})
			}
		}
		return nil
	})
	if err != nil {
		return entities.ActionResult{}, err
	}

	total := len(matches)
	if len(matches) > maxSearchResult {
		matches = matches[:maxSearchResult]
	}
	if matches == nil {
		matches = []FileInfo{}
	}

	return success(fmt.Sprintf("Found %d files matching '%s'", total, query)).
		With("matches", matches).
		With("total", total), nil
}
