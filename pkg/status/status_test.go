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

package status

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tests := []struct {
		name  string
		track []FileInfo
		check func(t *testing.T, tr *Tracker)
	}{
		{
			name: "counts_by_status",
			track: []FileInfo{
				{Path: "1/a.pdf", Status: StatusUploaded, Document: "d1"},
				{Path: "1/b.pdf", Status: StatusUploaded, Document: "d2"},
				{Path: "1/c", Status: StatusSkipped},
				{Path: "2/d.pdf", Status: StatusFailed, Error: assert.AnError},
			},
			check: func(t *testing.T, tr *Tracker) {
				counts := tr.Counts()
				assert.Equal(t, 2, counts[StatusUploaded])
				assert.Equal(t, 1, counts[StatusSkipped])
				assert.Equal(t, 1, counts[StatusFailed])

				failures := tr.Failures(context.Background())
				require.Len(t, failures, 1)
				assert.Equal(t, "2/d.pdf", failures[0].Path)
			},
		},
		{
			name: "later_outcome_replaces_earlier",
			track: []FileInfo{
				{Path: "1/invoice", Status: StatusRepaired, NewName: "invoice.pdf"},
				{Path: "1/invoice", Status: StatusUploaded, Document: "d1"},
			},
			check: func(t *testing.T, tr *Tracker) {
				info, err := tr.GetFileInfo(context.Background(), "1/invoice")
				require.NoError(t, err)
				assert.Equal(t, StatusUploaded, info.Status)

				processed, total := tr.Progress()
				assert.Equal(t, 1, processed, "a path counts once towards progress")
				assert.Equal(t, 2, total)
			},
		},
		{
			name: "list_is_sorted",
			track: []FileInfo{
				{Path: "b", Status: StatusUploaded},
				{Path: "a", Status: StatusUploaded},
				{Path: "c", Status: StatusUploaded},
			},
			check: func(t *testing.T, tr *Tracker) {
				var paths []string
				for _, f := range tr.ListFiles(context.Background()) {
					paths = append(paths, f.Path)
				}
				assert.Equal(t, []string{"a", "b", "c"}, paths)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tr := New()
			tr.StartOperation(ctx, 0)
			tr.AddTotal(ctx, 2)
			for _, info := range tt.track {
				tr.TrackFile(ctx, info)
			}
			tr.FinishOperation(ctx)
			tt.check(t, tr)
		})
	}
}

func TestTrackerUntracked(t *testing.T) {
	_, err := New().GetFileInfo(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not tracked")
}

func TestTrackerConcurrent(t *testing.T) {
	ctx := context.Background()
	tr := New()
	tr.StartOperation(ctx, 100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackFile(ctx, FileInfo{Path: fmt.Sprintf("f%03d", i), Status: StatusUploaded})
		}()
	}
	wg.Wait()

	processed, total := tr.Progress()
	assert.Equal(t, 100, processed)
	assert.Equal(t, 100, total)
}

func TestRenderSummary(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	tests := []struct {
		name        string
		summary     Summary
		contains    []string
		notContains []string
	}{
		{
			name: "clean_run",
			summary: Summary{
				RunID:  "run-1",
				Counts: map[FileStatus]int{StatusUploaded: 3},
			},
			contains:    []string{"migration summary (run run-1)", "uploaded", "3", "no failures"},
			notContains: []string{"more failures"},
		},
		{
			name: "failures_listed",
			summary: Summary{
				Title:          "upload summary",
				Counts:         map[FileStatus]int{StatusFailed: 1},
				Failures:       []FileInfo{{Path: "1/b.pdf", Status: StatusFailed, Error: assert.AnError}},
				FolderFailures: []string{"/Migracao/9: gave up"},
			},
			contains:    []string{"upload summary", "failed folders", "Failed 1/b.pdf", "/Migracao/9: gave up"},
			notContains: []string{"no failures"},
		},
		{
			name: "failures_capped",
			summary: func() Summary {
				s := Summary{Counts: map[FileStatus]int{}}
				for i := 0; i < maxListedFailures+5; i++ {
					s.Failures = append(s.Failures, FileInfo{Path: fmt.Sprintf("f%02d", i), Status: StatusFailed})
				}
				return s
			}(),
			contains:    []string{"5 more failures, see the journal"},
			notContains: []string{"Failed f24"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, RenderSummary(buf, tt.summary))
			out := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, nope := range tt.notContains {
				assert.NotContains(t, out, nope)
			}
		})
	}
}
