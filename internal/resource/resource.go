// Package resource locates bundled frame images by symbolic name.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// Extensions are tried in order when a name has no matching file as given.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// Locator resolves resource names against a filesystem of bundled images.
type Locator struct {
	fsys fs.FS
}

// NewLocator returns a Locator reading from fsys.
func NewLocator(fsys fs.FS) *Locator {
	return &Locator{fsys: fsys}
}

// Normalize converts a resource name into the form used for bundled files:
// lower case with '-' replaced by '_'.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// Resolve returns the path within the locator's filesystem for name. The
// name is tried as given, then normalized, each bare and with every entry of
// Extensions appended. Errors wrap fs.ErrNotExist when nothing matches.
func (l *Locator) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("resource %q: %w", name, fs.ErrNotExist)
	}
	candidates := []string{name}
	if n := Normalize(name); n != name {
		candidates = append(candidates, n)
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if ok, err := l.isFile(c); err != nil {
			return "", err
		} else if ok {
			return c, nil
		}
		if path.Ext(c) != "" {
			continue
		}
		for _, ext := range Extensions {
			if ok, err := l.isFile(c + ext); err != nil {
				return "", err
			} else if ok {
				return c + ext, nil
			}
		}
	}
	return "", fmt.Errorf("resource %q: %w", name, fs.ErrNotExist)
}

// Open resolves name and opens the resulting file.
func (l *Locator) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := l.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return l.fsys.Open(p)
}

func (l *Locator) isFile(name string) (bool, error) {
	fi, err := fs.Stat(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}
