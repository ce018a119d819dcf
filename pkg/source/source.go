// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source exposes the local document tree: folders, the files inside
// them, reading content and renaming during extension repair.
package source

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrExists is returned by Rename when the target name is taken.
var ErrExists = errors.Base("target already exists")

// 📄 File is one local document. ParentFolder is the slash separated path of
// its folder relative to the tree root.
type File struct {
	ParentFolder string
	FileName     string
	AbsolutePath string
}

// RelPath is the file's slash separated path relative to the tree root.
func (f File) RelPath() string {
	return path.Join(f.ParentFolder, f.FileName)
}

// 📁 Folder is one local directory below the root
type Folder struct {
	Name string
	// RelPath is slash separated and relative to the tree root
	RelPath      string
	AbsolutePath string
}

// 🌳 Dir is a document tree rooted at a local directory
type Dir struct {
	root   string
	ignore []string

	// renameMu makes the existence check and the rename one step
	renameMu sync.Mutex
}

// 🏭 NewDir opens root. Ignore patterns are doublestar globs matched against
// slash separated paths relative to root.
func NewDir(root string, ignore []string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Errorf("opening source root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("source root %s is not a directory", abs)
	}

	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid ignore pattern %q", p)
		}
	}

	return &Dir{root: abs, ignore: ignore}, nil
}

// Root returns the absolute tree root.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) abs(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(rel))
}

func (d *Dir) ignored(ctx context.Context, rel string) bool {
	for _, pattern := range d.ignore {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Str("path", rel).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			zerolog.Ctx(ctx).Debug().Str("path", rel).Str("pattern", pattern).Msg("path ignored by pattern")
			return true
		}
	}
	return false
}

// 📂 ListFolders returns the directories directly below rel ("" for the root),
// ordered so that numeric names sort by value.
func (d *Dir) ListFolders(ctx context.Context, rel string) ([]Folder, error) {
	entries, err := os.ReadDir(d.abs(rel))
	if err != nil {
		return nil, errors.Errorf("listing folders in %q: %w", rel, err)
	}

	var out []Folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		childRel := path.Join(rel, e.Name())
		if d.ignored(ctx, childRel) {
			continue
		}
		out = append(out, Folder{
			Name:         e.Name(),
			RelPath:      childRel,
			AbsolutePath: d.abs(childRel),
		})
	}

	slices.SortFunc(out, func(a, b Folder) int { return CompareNames(a.Name, b.Name) })
	return out, nil
}

// 📄 ListFiles returns the regular files directly inside rel, sorted by name.
func (d *Dir) ListFiles(ctx context.Context, rel string) ([]File, error) {
	entries, err := os.ReadDir(d.abs(rel))
	if err != nil {
		return nil, errors.Errorf("listing files in %q: %w", rel, err)
	}

	var out []File
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		childRel := path.Join(rel, e.Name())
		if d.ignored(ctx, childRel) {
			continue
		}
		out = append(out, File{
			ParentFolder: rel,
			FileName:     e.Name(),
			AbsolutePath: d.abs(childRel),
		})
	}

	slices.SortFunc(out, func(a, b File) int { return strings.Compare(a.FileName, b.FileName) })
	return out, nil
}

// 🚶 Walk visits every folder below the root depth first, in ListFolders
// order, passing the folder and its files.
func (d *Dir) Walk(ctx context.Context, fn func(Folder, []File) error) error {
	var visit func(rel string) error
	visit = func(rel string) error {
		folders, err := d.ListFolders(ctx, rel)
		if err != nil {
			return err
		}
		for _, f := range folders {
			if err := ctx.Err(); err != nil {
				return errors.Errorf("walking source tree: %w", err)
			}
			files, err := d.ListFiles(ctx, f.RelPath)
			if err != nil {
				return err
			}
			if err := fn(f, files); err != nil {
				return err
			}
			if err := visit(f.RelPath); err != nil {
				return err
			}
		}
		return nil
	}
	return visit("")
}

// ReadFile returns the full content of f.
func (d *Dir) ReadFile(ctx context.Context, f File) ([]byte, error) {
	content, err := os.ReadFile(f.AbsolutePath)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", f.RelPath(), err)
	}
	return content, nil
}

// Stat looks up a single file by folder and name.
func (d *Dir) Stat(ctx context.Context, folder, name string) (File, error) {
	f := File{ParentFolder: folder, FileName: name, AbsolutePath: d.abs(path.Join(folder, name))}
	info, err := os.Stat(f.AbsolutePath)
	if err != nil {
		return File{}, errors.Errorf("locating %s: %w", f.RelPath(), err)
	}
	if !info.Mode().IsRegular() {
		return File{}, errors.Errorf("%s is not a regular file", f.RelPath())
	}
	return f, nil
}

// ✏️ Rename gives f a new name in the same folder. It never overwrites, even
// when several goroutines rename onto the same name at once.
func (d *Dir) Rename(ctx context.Context, f File, newName string) (File, error) {
	if newName == f.FileName {
		return f, nil
	}
	if strings.ContainsAny(newName, `/\`) {
		return File{}, errors.Errorf("new name %q must not contain a path separator", newName)
	}

	target := File{
		ParentFolder: f.ParentFolder,
		FileName:     newName,
		AbsolutePath: filepath.Join(filepath.Dir(f.AbsolutePath), newName),
	}

	d.renameMu.Lock()
	defer d.renameMu.Unlock()

	if _, err := os.Lstat(target.AbsolutePath); err == nil {
		return File{}, errors.WithDetails(ErrExists, "path", target.RelPath())
	} else if !os.IsNotExist(err) {
		return File{}, errors.Errorf("checking %s: %w", target.RelPath(), err)
	}

	if err := os.Rename(f.AbsolutePath, target.AbsolutePath); err != nil {
		return File{}, errors.Errorf("renaming %s to %s: %w", f.RelPath(), newName, err)
	}

	zerolog.Ctx(ctx).Debug().Str("from", f.RelPath()).Str("to", target.RelPath()).Msg("renamed file")
	return target, nil
}
