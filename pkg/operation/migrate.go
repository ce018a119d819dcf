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
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/filetype"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/source"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🚦 FolderState is the progress of one folder through a tree migration
type FolderState int

const (
	StateDiscover FolderState = iota
	StateResolveRemote
	StateListFiles
	StateBatchUpload
	StateDone
	StateFailed
)

func (s FolderState) String() string {
	switch s {
	case StateDiscover:
		return "DISCOVER_FOLDER"
	case StateResolveRemote:
		return "RESOLVE_REMOTE_FOLDER"
	case StateListFiles:
		return "LIST_FILES"
	case StateBatchUpload:
		return "BATCH_UPLOAD"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FOLDER_FAILED"
	default:
		return "UNKNOWN"
	}
}

// folderRun carries one folder through its states.
type folderRun struct {
	folder  source.Folder
	logical string
	state   FolderState
	logger  zerolog.Logger
}

func (r *folderRun) to(s FolderState) {
	r.logger.Debug().Str("from", r.state.String()).Str("to", s.String()).Msg("folder state")
	r.state = s
}

// 🌳 MigrateTree mirrors every folder below the source root remotely and
// uploads its files. Folders run one after the other, parents before
// children. A folder that cannot be resolved is recorded and its subtree
// skipped. Only cancellation and an unreadable source root end the run early.
func (m *Migrator) MigrateTree(ctx context.Context) (*Report, error) {
	report := newReport()
	defer func() { report.Finished = time.Now() }()

	zerolog.Ctx(ctx).Info().Str("run_id", report.RunID).Str("prefix", m.prefix).Msg("starting tree migration")
	m.tracker.StartOperation(ctx, 0)
	defer m.tracker.FinishOperation(ctx)

	var visit func(rel string, parent clm.FolderID) error
	visit = func(rel string, parent clm.FolderID) error {
		folders, err := m.src.ListFolders(ctx, rel)
		if err != nil {
			if rel == "" {
				return errors.Errorf("listing source root: %w", err)
			}
			report.FailedFolders = append(report.FailedFolders, FolderFailure{RelPath: rel, LogicalPath: m.LogicalPath(rel), Err: err})
			return nil
		}

		for _, f := range folders {
			if err := ctx.Err(); err != nil {
				return errors.Errorf("migration cancelled before %s: %w", f.RelPath, err)
			}
			id, ok := m.migrateFolder(ctx, f, parent, report)
			if !ok {
				continue
			}
			if err := visit(f.RelPath, id); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit("", m.root); err != nil {
		return report, err
	}
	return report, nil
}

// migrateFolder resolves f remotely and uploads its files. It reports false
// when the folder failed and its subtree must be skipped.
func (m *Migrator) migrateFolder(ctx context.Context, f source.Folder, parent clm.FolderID, report *Report) (clm.FolderID, bool) {
	run := &folderRun{
		folder:  f,
		logical: m.LogicalPath(f.RelPath),
		state:   StateDiscover,
	}
	run.logger = zerolog.Ctx(ctx).With().Str("folder", f.RelPath).Str("path", run.logical).Logger()
	console := log.Ctx(ctx)

	fail := func(err error) (clm.FolderID, bool) {
		run.to(StateFailed)
		run.logger.Error().Err(err).Msg("folder failed, skipping its subtree")
		console.Errorf("folder %s failed: %v", f.RelPath, err)
		report.FailedFolders = append(report.FailedFolders, FolderFailure{RelPath: f.RelPath, LogicalPath: run.logical, Err: err})
		return "", false
	}

	run.to(StateResolveRemote)
	id, err := m.folders.Resolve(ctx, run.logical, f.Name, parent)
	if err != nil {
		return fail(err)
	}

	console.StartFolder(ctx, log.FolderOperation{Name: f.RelPath, LogicalPath: run.logical, RemoteID: string(id)})
	defer console.EndFolder(ctx)

	run.to(StateListFiles)
	files, err := m.src.ListFiles(ctx, f.RelPath)
	if err != nil {
		return fail(err)
	}
	m.tracker.AddTotal(ctx, len(files))

	run.to(StateBatchUpload)
	for i, batch := range chunk(files, m.batchSize) {
		if err := ctx.Err(); err != nil {
			run.logger.Warn().Err(err).Int("batch", i).Msg("stopping before next batch")
			return id, false
		}
		queue := m.prepare(ctx, id, batch, report)
		run.logger.Debug().Int("batch", i).Int("size", len(queue)).Msg("uploading batch")
		report.addBatch(m.runBatch(ctx, queue))
	}

	run.to(StateDone)
	report.Folders++
	return id, true
}

// prepare detects the type of every file in a batch, repairs names when
// enabled and drops files that end up without an extension. The content read
// here travels with the member so the upload does not read it again. Read
// failures are recorded as file failures.
func (m *Migrator) prepare(ctx context.Context, folder clm.FolderID, files []source.File, report *Report) []member {
	if len(files) == 0 {
		return nil
	}

	type prepared struct {
		member
		keep     bool
		repaired bool
		err      error
	}
	results := make([]prepared, len(files))

	var g errgroup.Group
	g.SetLimit(len(files))
	for i, f := range files {
		g.Go(func() error {
			mem, repaired, err := m.inspect(ctx, f)
			mem.folder = folder
			results[i] = prepared{member: mem, repaired: repaired, err: err, keep: filetype.HasExtension(mem.file.FileName)}
			return nil
		})
	}
	_ = g.Wait()

	var queue []member
	for _, r := range results {
		switch {
		case r.err != nil:
			report.Failed = append(report.Failed, FileFailure{File: r.file, Err: r.err})
		case !r.keep:
			m.journal.Record(ctx, journal.NoExtension, fmt.Sprintf("no extension: %s", r.file.RelPath()))
			m.fileSkipped(ctx, r.file, "no extension")
			report.Skipped++
		default:
			if r.repaired {
				report.Repaired++
			}
			queue = append(queue, r.member)
		}
	}
	return queue
}

// inspect reads f and, when repair is on, renames it to match its content.
// It returns the member as it should be uploaded.
func (m *Migrator) inspect(ctx context.Context, f source.File) (member, bool, error) {
	content, err := m.src.ReadFile(ctx, f)
	if err != nil {
		m.journal.Record(ctx, journal.Unprocessed, fmt.Sprintf("Unprocessed: %s", f.RelPath()))
		m.fileFailed(ctx, f, err)
		return member{file: f}, false, err
	}
	mem := member{file: f, content: content}

	res, err := m.types.Resolve(ctx, f.RelPath(), content)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("file", f.RelPath()).Msg("type not detected, keeping name")
		return mem, false, nil
	}
	mem.mimeType = res.MimeType

	if !m.repair || filetype.Matches(f.FileName, res) {
		return mem, false, nil
	}

	renamed, err := m.src.Rename(ctx, f, filetype.RepairedName(f.FileName, res))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", f.RelPath()).Msg("extension repair failed, keeping name")
		return mem, false, nil
	}
	m.fileRepaired(ctx, f, renamed.FileName)
	mem.file = renamed
	return mem, true, nil
}
