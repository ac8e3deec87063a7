// Package authstore locates durable session credentials on disk.
//
// The store never writes; the messaging adapter owns the file format.
package authstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/wadispatch/internal/session"
)

// DefaultRequiredFiles names the files a usable session directory holds.
var DefaultRequiredFiles = []string{"session.db"}

// DirStore resolves a session directory relative to Root.
type DirStore struct {
	Root     string
	Required []string
}

var _ session.Store = DirStore{}

func NewDirStore(root string, required []string) DirStore {
	if required == nil {
		required = DefaultRequiredFiles
	}
	return DirStore{Root: strings.TrimSpace(root), Required: required}
}

// Load checks that location is a readable directory holding every required
// file and returns its listing.
func (s DirStore) Load(ctx context.Context, location string) (session.AuthMaterial, error) {
	if err := ctx.Err(); err != nil {
		return session.AuthMaterial{}, err
	}
	dir, err := s.resolve(location)
	if err != nil {
		return session.AuthMaterial{}, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return session.AuthMaterial{}, fmt.Errorf("%w: %s: %w", session.ErrAuthMaterialMissing, dir, err)
	}
	if !info.IsDir() {
		return session.AuthMaterial{}, fmt.Errorf("%w: %s is not a directory", session.ErrAuthMaterialMissing, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return session.AuthMaterial{}, fmt.Errorf("%w: read %s: %w", session.ErrAuthMaterialMissing, dir, err)
	}

	files := make([]string, 0, len(entries))
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
		present[entry.Name()] = true
	}
	sort.Strings(files)
	if len(files) == 0 {
		return session.AuthMaterial{}, fmt.Errorf("%w: %s is empty", session.ErrAuthMaterialMissing, dir)
	}
	for _, name := range s.Required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !present[name] {
			return session.AuthMaterial{}, fmt.Errorf("%w: %s missing %s", session.ErrAuthMaterialMissing, dir, name)
		}
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return session.AuthMaterial{}, fmt.Errorf("%w: open %s: %w", session.ErrAuthMaterialMissing, name, err)
		}
		_ = f.Close()
	}

	return session.AuthMaterial{Location: dir, Files: files}, nil
}

func (s DirStore) resolve(location string) (string, error) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return "", fmt.Errorf("%w: empty location", session.ErrAuthMaterialMissing)
	}
	if !filepath.IsAbs(loc) && s.Root != "" {
		loc = filepath.Join(s.Root, loc)
	}
	abs, err := filepath.Abs(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", session.ErrAuthMaterialMissing, err)
	}
	return filepath.Clean(abs), nil
}
