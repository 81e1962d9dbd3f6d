package posts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	ext = ".md"

	// tempPrefix marks in-progress atomic writes; the watcher ignores them.
	tempPrefix = ".ghost-sync-write-"

	dirPerm  = fs.FileMode(0o755)
	filePerm = fs.FileMode(0o644)
)

// ErrInvalidPath is returned for file names that escape the posts
// directory or are not markdown files.
var ErrInvalidPath = errors.New("invalid post path")

// fileName maps a slug to a file name. Slugs are NFC-normalized so the
// same post maps to the same file on every platform.
func fileName(slug string) string {
	slug = norm.NFC.String(strings.TrimSpace(slug))
	slug = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}

		return r
	}, slug)
	slug = strings.TrimLeft(slug, ".")

	if slug == "" {
		slug = "untitled"
	}

	return slug + ext
}

// rel resolves name, absolute or relative to dir, to a clean path
// relative to dir.
func rel(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		r, err := filepath.Rel(dir, name)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, name)
		}

		name = r
	}

	name = filepath.Clean(name)

	if name == "." || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the posts directory", ErrInvalidPath, name)
	}

	if filepath.Ext(name) != ext {
		return "", fmt.Errorf("%w: %s is not a %s file", ErrInvalidPath, name, ext)
	}

	return filepath.ToSlash(norm.NFC.String(name)), nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Preserve permissions of existing file, or use default.
	perm := filePerm
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
