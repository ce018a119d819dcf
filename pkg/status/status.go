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
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus is where a file ended up during a run
type FileStatus int

const (
	StatusUnknown  FileStatus = iota
	StatusUploaded            // Document created remotely
	StatusRepaired            // Renamed locally to match its content
	StatusSkipped             // Left out of the run (no extension, dry run)
	StatusFailed              // Read, upload or folder failure
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusUploaded:
		return "uploaded"
	case StatusRepaired:
		return "repaired"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo is the last known outcome of one file
type FileInfo struct {
	Path     string     // Path relative to the source root
	Status   FileStatus // Current status
	Document string     // Remote document id, once uploaded
	NewName  string     // Name after repair or strip
	Attempts uint       // Attempts spent on the last operation
	Error    error      // Failure, if any
}

// 📈 Reporter tracks file outcomes and reports progress
type Reporter interface {
	// Status tracking
	TrackFile(ctx context.Context, info FileInfo)
	GetFileInfo(ctx context.Context, path string) (FileInfo, error)
	ListFiles(ctx context.Context) []FileInfo

	// Progress reporting
	StartOperation(ctx context.Context, total int)
	AddTotal(ctx context.Context, n int)
	FinishOperation(ctx context.Context)
}

// 🔧 Tracker is the in-memory Reporter used by a single run
type Tracker struct {
	formatter FileFormatter

	// Status tracking
	mu    sync.RWMutex
	files map[string]FileInfo

	// Progress tracking
	total     int
	processed int
}

var _ Reporter = (*Tracker)(nil)

// 🏭 New creates an empty tracker
func New() *Tracker {
	return &Tracker{
		formatter: NewDefaultFileFormatter(),
		files:     make(map[string]FileInfo),
	}
}

// TrackFile records info, replacing any earlier outcome for the same path.
// The first outcome for a path counts towards progress.
func (t *Tracker) TrackFile(ctx context.Context, info FileInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.files[info.Path]; !seen {
		t.processed++
	}
	t.files[info.Path] = info

	logger := zerolog.Ctx(ctx)
	msg := t.formatter.FormatFileOutcome(info)
	if info.Error != nil {
		logger.Debug().Str("path", info.Path).Err(info.Error).Msg(msg)
	} else {
		logger.Debug().Str("path", info.Path).Msg(msg)
	}

	if t.total > 0 {
		logger.Debug().
			Int("processed", t.processed).
			Int("total", t.total).
			Msg(t.formatter.FormatProgress(t.processed, t.total))
	}
}

func (t *Tracker) GetFileInfo(ctx context.Context, path string) (FileInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, ok := t.files[path]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", path)
	}
	return info, nil
}

// ListFiles returns every tracked file ordered by path.
func (t *Tracker) ListFiles(ctx context.Context) []FileInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	files := make([]FileInfo, 0, len(t.files))
	for _, info := range t.files {
		files = append(files, info)
	}
	slices.SortFunc(files, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return files
}

// Counts tallies tracked files by status.
func (t *Tracker) Counts() map[FileStatus]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[FileStatus]int)
	for _, info := range t.files {
		counts[info.Status]++
	}
	return counts
}

// Failures returns the failed files ordered by path.
func (t *Tracker) Failures(ctx context.Context) []FileInfo {
	var out []FileInfo
	for _, info := range t.ListFiles(ctx) {
		if info.Status == StatusFailed {
			out = append(out, info)
		}
	}
	return out
}

// Progress returns how many files have an outcome and how many are expected.
func (t *Tracker) Progress() (processed, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.processed, t.total
}

func (t *Tracker) StartOperation(ctx context.Context, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.processed = 0
	zerolog.Ctx(ctx).Info().Int("total", total).Msg(t.formatter.FormatProgress(0, total))
}

// AddTotal grows the expected file count; the tree is discovered folder by folder.
func (t *Tracker) AddTotal(ctx context.Context, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += n
}

func (t *Tracker) FinishOperation(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Int("processed", t.processed).
		Int("total", t.total).
		Msg(t.formatter.FormatProgress(t.processed, t.total))
}
