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

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func TestCompareNames(t *testing.T) {
	names := []string{"10", "2", "lote 10", "1", "lote 9", "abc", "02", "100"}
	slices.SortFunc(names, CompareNames)
	assert.Equal(t, []string{"1", "02", "2", "10", "100", "abc", "lote 9", "lote 10"}, names)

	assert.Equal(t, 0, CompareNames("same", "same"))
	assert.Equal(t, -1, CompareNames("a", "ab"))
	assert.Equal(t, -1, CompareNames("a2", "a10"))
}

func TestListFoldersAndFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"10/b.pdf":         "b",
		"10/a.pdf":         "a",
		"2/contract":       "c",
		"2/sub/inner.docx": "d",
		"loose.txt":        "x",
		"tmp/skip.pdf":     "s",
		"2/.DS_Store":      "junk",
	})

	d, err := NewDir(root, []string{"tmp", "**/.DS_Store"})
	require.NoError(t, err)
	ctx := context.Background()

	folders, err := d.ListFolders(ctx, "")
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "2", folders[0].Name)
	assert.Equal(t, "10", folders[1].Name)
	assert.Equal(t, filepath.Join(d.Root(), "10"), folders[1].AbsolutePath)

	files, err := d.ListFiles(ctx, "10")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, File{ParentFolder: "10", FileName: "a.pdf", AbsolutePath: filepath.Join(d.Root(), "10", "a.pdf")}, files[0])
	assert.Equal(t, "10/b.pdf", files[1].RelPath())

	files, err = d.ListFiles(ctx, "2")
	require.NoError(t, err)
	require.Len(t, files, 1, "subdirectories and ignored files are not listed")
	assert.Equal(t, "contract", files[0].FileName)

	sub, err := d.ListFolders(ctx, "2")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "2/sub", sub[0].RelPath)
}

func TestWalk(t *testing.T) {
	root := writeTree(t, map[string]string{
		"10/a.pdf":       "a",
		"2/b.pdf":        "b",
		"2/x/c.pdf":      "c",
		"2/x/y/d.pdf":    "d",
		"2/x/y/e.pdf":    "e",
		"3/empty/.keep":  "",
		"3/empty2/f.pdf": "f",
	})
	d, err := NewDir(root, []string{"**/.keep"})
	require.NoError(t, err)

	var visited []string
	counts := map[string]int{}
	err = d.Walk(context.Background(), func(f Folder, files []File) error {
		visited = append(visited, f.RelPath)
		counts[f.RelPath] = len(files)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "2/x", "2/x/y", "3", "3/empty", "3/empty2", "10"}, visited)
	assert.Equal(t, 2, counts["2/x/y"])
	assert.Equal(t, 0, counts["3/empty"])
}

func TestWalkStopsOnError(t *testing.T) {
	root := writeTree(t, map[string]string{"1/a": "a", "2/b": "b"})
	d, err := NewDir(root, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = d.Walk(context.Background(), func(Folder, []File) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRename(t *testing.T) {
	root := writeTree(t, map[string]string{"1/invoice": "%PDF", "1/taken.pdf": "x"})
	d, err := NewDir(root, nil)
	require.NoError(t, err)
	ctx := context.Background()

	f, err := d.Stat(ctx, "1", "invoice")
	require.NoError(t, err)

	renamed, err := d.Rename(ctx, f, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", renamed.FileName)
	assert.FileExists(t, renamed.AbsolutePath)
	assert.NoFileExists(t, f.AbsolutePath)

	content, err := d.ReadFile(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content))

	_, err = d.Rename(ctx, renamed, "taken.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExists))
	assert.FileExists(t, renamed.AbsolutePath, "failed rename leaves the file alone")

	_, err = d.Rename(ctx, renamed, "../escape.pdf")
	assert.Error(t, err)

	same, err := d.Rename(ctx, renamed, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, renamed, same)
}

func TestRenameConcurrentOntoSameName(t *testing.T) {
	const contenders = 16
	files := map[string]string{}
	for i := 0; i < contenders; i++ {
		files[fmt.Sprintf("1/doc.v%02d", i)] = fmt.Sprintf("%%PDF-%d", i)
	}
	d, err := NewDir(writeTree(t, files), nil)
	require.NoError(t, err)
	ctx := context.Background()

	listed, err := d.ListFiles(ctx, "1")
	require.NoError(t, err)
	require.Len(t, listed, contenders)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		refused int
	)
	start := make(chan struct{})
	for _, f := range listed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := d.Rename(ctx, f, "doc.pdf")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			if errors.Is(err, ErrExists) {
				refused++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one rename should take the name")
	assert.Equal(t, contenders-1, refused, "every other rename should be refused")

	after, err := d.ListFiles(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, after, contenders, "no file should be lost")
}

func TestNewDirValidation(t *testing.T) {
	root := writeTree(t, map[string]string{"file.txt": "x"})

	_, err := NewDir(filepath.Join(root, "missing"), nil)
	assert.Error(t, err)

	_, err = NewDir(filepath.Join(root, "file.txt"), nil)
	assert.ErrorContains(t, err, "not a directory")

	_, err = NewDir(root, []string{"[unclosed"})
	assert.ErrorContains(t, err, "invalid ignore pattern")
}

func TestStatMissing(t *testing.T) {
	d, err := NewDir(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = d.Stat(context.Background(), "1", "nope.pdf")
	assert.Error(t, err)
}
