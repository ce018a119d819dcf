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

package operation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/filetype"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/source"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔧 RepairOptions tunes a bulk extension repair
type RepairOptions struct {
	BatchSize int
	// Limit caps the number of renamed files; zero means no cap
	Limit int
	// DryRun writes notes instead of renaming
	DryRun bool
}

// 📊 RepairReport counts what a repair pass did
type RepairReport struct {
	Scanned    int
	Renamed    int
	Noted      int
	Undetected int
	Failed     []FileFailure
}

// quota hands out at most limit slots across goroutines.
type quota struct {
	mu    sync.Mutex
	limit int
	used  int
}

func (q *quota) take() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && q.used >= q.limit {
		return false
	}
	q.used++
	return true
}

func (q *quota) give() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used--
}

func (q *quota) full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit > 0 && q.used >= q.limit
}

type repairOutcome int

const (
	repairKept repairOutcome = iota
	repairRenamed
	repairNoted
	repairUndetected
	repairFailed
)

// 🩹 RepairExtensions walks the whole tree and renames every file whose
// extension disagrees with its content. Folders are visited in numeric order
// and files in name order. Files whose type cannot be detected are never
// touched.
func RepairExtensions(ctx context.Context, src Source, j journal.Journal, opts RepairOptions) (*RepairReport, error) {
	if j == nil {
		j = journal.Discard{}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	files, err := collectFiles(ctx, src)
	if err != nil {
		return nil, err
	}

	types := filetype.NewResolver(j)
	q := &quota{limit: opts.Limit}
	report := &RepairReport{}

	zerolog.Ctx(ctx).Info().Int("files", len(files)).Bool("dry_run", opts.DryRun).Int("limit", opts.Limit).Msg("starting extension repair")

	for i, batch := range chunk(files, batchSize) {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("repair cancelled before batch %d: %w", i, err)
		}
		if q.full() {
			break
		}

		outcomes := make([]repairOutcome, len(batch))
		errs := make([]error, len(batch))

		var g errgroup.Group
		g.SetLimit(len(batch))
		for k, f := range batch {
			g.Go(func() error {
				outcomes[k], errs[k] = repairFile(ctx, src, types, j, q, f, opts.DryRun)
				return nil
			})
		}
		_ = g.Wait()

		for k, o := range outcomes {
			report.Scanned++
			switch o {
			case repairRenamed:
				report.Renamed++
			case repairNoted:
				report.Noted++
			case repairUndetected:
				report.Undetected++
			case repairFailed:
				report.Failed = append(report.Failed, FileFailure{File: batch[k], Err: errs[k]})
			}
		}
	}

	return report, nil
}

func repairFile(ctx context.Context, src Source, types *filetype.Resolver, j journal.Journal, q *quota, f source.File, dryRun bool) (repairOutcome, error) {
	console := log.Ctx(ctx)

	content, err := src.ReadFile(ctx, f)
	if err != nil {
		j.Record(ctx, journal.Unprocessed, fmt.Sprintf("Unprocessed: %s", f.RelPath()))
		console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Failed, Detail: "unreadable"})
		return repairFailed, err
	}

	res, err := types.Resolve(ctx, f.RelPath(), content)
	if err != nil {
		return repairUndetected, nil
	}
	if filetype.Matches(f.FileName, res) {
		return repairKept, nil
	}

	if dryRun {
		j.Record(ctx, journal.Notes, fmt.Sprintf("archive: %s, ext: %s", f.FileName, res.Extension))
		console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Noted, Detail: res.Extension})
		return repairNoted, nil
	}

	if !q.take() {
		return repairKept, nil
	}

	renamed, err := src.Rename(ctx, f, filetype.RepairedName(f.FileName, res))
	if err != nil {
		q.give()
		console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Failed, Detail: "rename failed"})
		return repairFailed, err
	}

	console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Repaired, Detail: renamed.FileName})
	return repairRenamed, nil
}

// 📊 StripReport counts what a strip pass did
type StripReport struct {
	Scanned  int
	Stripped int
	Failed   []FileFailure
}

// ✂️ StripExtensions removes any of exts from the end of every file name in
// the tree. A name that would collide with an existing file is left alone
// and reported as failed.
func StripExtensions(ctx context.Context, src Source, exts []string, batchSize int) (*StripReport, error) {
	if len(exts) == 0 {
		return nil, errors.Errorf("no extensions to strip")
	}
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	files, err := collectFiles(ctx, src)
	if err != nil {
		return nil, err
	}

	report := &StripReport{}
	console := log.Ctx(ctx)

	for i, batch := range chunk(files, batchSize) {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("strip cancelled before batch %d: %w", i, err)
		}

		stripped := make([]bool, len(batch))
		errs := make([]error, len(batch))

		var g errgroup.Group
		g.SetLimit(len(batch))
		for k, f := range batch {
			g.Go(func() error {
				name, ok := stripAny(f.FileName, exts)
				if !ok {
					return nil
				}
				renamed, err := src.Rename(ctx, f, name)
				if err != nil {
					errs[k] = err
					console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Failed, Detail: "rename failed"})
					return nil
				}
				stripped[k] = true
				console.LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Repaired, Detail: renamed.FileName})
				return nil
			})
		}
		_ = g.Wait()

		for k := range batch {
			report.Scanned++
			switch {
			case errs[k] != nil:
				report.Failed = append(report.Failed, FileFailure{File: batch[k], Err: errs[k]})
			case stripped[k]:
				report.Stripped++
			}
		}
	}

	return report, nil
}

func stripAny(name string, exts []string) (string, bool) {
	for _, ext := range exts {
		if stripped, ok := filetype.StripExtension(name, ext); ok {
			return stripped, true
		}
	}
	return name, false
}

// collectFiles lists every file of the tree in walk order.
func collectFiles(ctx context.Context, src Source) ([]source.File, error) {
	var files []source.File
	err := src.Walk(ctx, func(_ source.Folder, fs []source.File) error {
		files = append(files, fs...)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking source tree: %w", err)
	}
	return files, nil
}
