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

package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirAppendsPerChannel(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "logs")

	j, err := NewDir(dir)
	require.NoError(t, err, "creating journal")

	j.Record(ctx, Processed, "Processed: a.pdf")
	j.Record(ctx, Processed, "Processed: b.pdf\n")
	j.Record(ctx, NoExtension, "file without extension: 100/invoice")
	require.NoError(t, j.Close())

	data, err := os.ReadFile(filepath.Join(dir, "processed.log"))
	require.NoError(t, err)
	assert.Equal(t, "Processed: a.pdf\nProcessed: b.pdf\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "no_extension.log"))
	require.NoError(t, err)
	assert.Equal(t, "file without extension: 100/invoice\n", string(data))

	// reopening appends instead of truncating
	j, err = NewDir(dir)
	require.NoError(t, err)
	j.Record(ctx, Processed, "Processed: c.pdf")
	require.NoError(t, j.Close())

	data, err = os.ReadFile(j.Path(Processed))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestDirConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	j, err := NewDir(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j.Record(ctx, RequestErrors, fmt.Sprintf("line-%02d", i))
		}(i)
	}
	wg.Wait()
	require.NoError(t, j.Close())

	data, err := os.ReadFile(j.Path(RequestErrors))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 50, "every record should land on its own line")
	sort.Strings(lines)
	assert.Equal(t, "line-00", lines[0])
	assert.Equal(t, "line-49", lines[49])
}

func TestDirUnwritableIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	j, err := NewDir(dir)
	require.NoError(t, err)

	// a directory where the channel file should be makes every open fail
	require.NoError(t, os.Mkdir(j.Path(Clean), 0755))

	assert.NotPanics(t, func() {
		j.Record(context.Background(), Clean, "ignored")
	})
	require.NoError(t, j.Close())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Record(context.Background(), FolderErrors, "PATH: 100\n")
	m.Record(context.Background(), FolderErrors, "PATH: 200")

	assert.Equal(t, []string{"PATH: 100", "PATH: 200"}, m.Entries(FolderErrors))
	assert.Empty(t, m.Entries(Processed))
}
