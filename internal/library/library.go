// Package library exposes the music directory: folder tree browsing,
// recursive audio file listing, sibling discovery, and safe renames.
// Every client-supplied path is validated against the library root.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"metaremote/pkg/audio"
)

// ErrInvalidPath marks a client-supplied path that escapes the library root.
var ErrInvalidPath = errors.New("path outside library root")

// Library is a view over the configured music directory.
type Library struct {
	root string
}

// New creates a Library rooted at dir, which must exist.
func New(dir string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve music directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("music directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("music directory is not a directory: %s", abs)
	}

	return &Library{root: abs}, nil
}

// Root returns the absolute library root.
func (l *Library) Root() string { return l.root }

// Resolve validates a library-relative path and returns its absolute form.
// Traversal sequences that would escape the root are rejected.
func (l *Library) Resolve(rel string) (string, error) {
	// Cleaning with a leading separator collapses any ".." prefix runs.
	cleaned := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(rel))
	abs := filepath.Join(l.root, cleaned)

	if abs != l.root && !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

// Rel converts an absolute path under the root back to a library-relative
// slash path.
func (l *Library) Rel(abs string) string {
	rel, err := filepath.Rel(l.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Folder is one directory in the tree listing.
type Folder struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	AudioCount int    `json:"audio_count"`
	HasSubdirs bool   `json:"has_subdirs"`
}

// Tree lists the immediate subfolders of a library-relative path.
func (l *Library) Tree(rel string) ([]Folder, error) {
	dir, err := l.Resolve(rel)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	folders := make([]Folder, 0)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		sub := filepath.Join(dir, entry.Name())
		folders = append(folders, Folder{
			Name:       entry.Name(),
			Path:       l.Rel(sub),
			AudioCount: countAudioFiles(sub),
			HasSubdirs: hasSubdirs(sub),
		})
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// File is one audio file in a listing.
type File struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Folder   string `json:"folder"`
	Modified int64  `json:"date"`
	Size     int64  `json:"size"`
}

// Files lists all audio files under a library-relative path, recursively.
func (l *Library) Files(rel string) ([]File, error) {
	dir, err := l.Resolve(rel)
	if err != nil {
		return nil, err
	}

	var files []File
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() || !audio.IsAudioFile(d.Name()) {
			return nil
		}

		var modified, size int64
		if info, err := d.Info(); err == nil {
			modified = info.ModTime().Unix()
			size = info.Size()
		}

		folder, _ := filepath.Rel(dir, filepath.Dir(path))
		files = append(files, File{
			Name:     d.Name(),
			Path:     l.Rel(path),
			Folder:   filepath.ToSlash(folder),
			Modified: modified,
			Size:     size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Siblings lists the audio files in the same directory as an absolute path
// (the file itself included).
func (l *Library) Siblings(abs string) []File {
	entries, err := os.ReadDir(filepath.Dir(abs))
	if err != nil {
		return nil
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !audio.IsAudioFile(entry.Name()) {
			continue
		}
		files = append(files, File{
			Name: entry.Name(),
			Path: l.Rel(filepath.Join(filepath.Dir(abs), entry.Name())),
		})
	}
	return files
}

// Rename renames an audio file within its directory. The new name must be a
// bare audio filename, not a path.
func (l *Library) Rename(rel, newName string) (string, error) {
	if strings.ContainsAny(newName, `/\`) || newName == "" || strings.HasPrefix(newName, ".") {
		return "", fmt.Errorf("invalid filename %q", newName)
	}
	if !audio.IsAudioFile(newName) {
		return "", fmt.Errorf("filename %q has no supported audio extension", newName)
	}

	oldAbs, err := l.Resolve(rel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(oldAbs); err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}

	newAbs := filepath.Join(filepath.Dir(oldAbs), newName)
	if _, err := os.Stat(newAbs); err == nil {
		return "", fmt.Errorf("target already exists: %s", newName)
	}

	if err := os.Rename(oldAbs, newAbs); err != nil {
		return "", fmt.Errorf("rename failed: %w", err)
	}
	return l.Rel(newAbs), nil
}

func countAudioFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && audio.IsAudioFile(entry.Name()) {
			count++
		}
	}
	return count
}

func hasSubdirs(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			return true
		}
	}
	return false
}
