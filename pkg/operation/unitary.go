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
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/sheet"
	"github.com/walteh/clmigrate/pkg/source"
	"gitlab.com/tozd/go/errors"
)

// 📋 Item is one file named by a sheet row, with the attributes to attach
type Item struct {
	// Row is the 1-based data row the item came from; zero when not from a sheet
	Row int
	// Folder is the slash separated folder relative to the source root
	Folder     string
	FileName   string
	Attributes clm.AttributeSet
}

// RelPath is the item's path relative to the source root.
func (it Item) RelPath() string {
	return path.Join(it.Folder, it.FileName)
}

// 🗺️ RowMapping says which columns name the file and which become attributes
type RowMapping struct {
	FolderColumn string
	FileColumn   string
	Groups       []config.Group
}

// MappingFromConfig builds the row mapping of a metadata section.
func MappingFromConfig(md *config.Metadata) RowMapping {
	if md == nil {
		return RowMapping{FolderColumn: config.DefaultFolderColumn, FileColumn: config.DefaultFileColumn}
	}
	return RowMapping{FolderColumn: md.FolderColumn, FileColumn: md.FileColumn, Groups: md.Groups}
}

// Attributes builds the attribute set of row. Empty cells are left out.
func (rm RowMapping) Attributes(row sheet.Row) clm.AttributeSet {
	attrs := clm.AttributeSet{}
	for _, g := range rm.Groups {
		for _, f := range g.Fields {
			v := strings.TrimSpace(row.Get(f.Column))
			if v == "" {
				continue
			}
			if attrs[g.Name] == nil {
				attrs[g.Name] = map[string]string{}
			}
			attrs[g.Name][f.Name] = v
		}
	}
	return attrs
}

// ItemsFromRows turns sheet rows into items. Rows without a folder or file
// name are returned by number in skipped.
func ItemsFromRows(rows []sheet.Row, mapping RowMapping) (items []Item, skipped []int) {
	folderCol := mapping.FolderColumn
	if folderCol == "" {
		folderCol = config.DefaultFolderColumn
	}
	fileCol := mapping.FileColumn
	if fileCol == "" {
		fileCol = config.DefaultFileColumn
	}

	for i, row := range rows {
		folder := sheet.CleanCell(row.Get(folderCol))
		file := sheet.CleanCell(row.Get(fileCol))
		if folder == "" || file == "" {
			skipped = append(skipped, i+1)
			continue
		}
		items = append(items, Item{
			Row:        i + 1,
			Folder:     strings.Trim(path.Clean("/"+folder), "/"),
			FileName:   file,
			Attributes: mapping.Attributes(row),
		})
	}
	return items, skipped
}

// resolvePath resolves every segment of rel below the root folder, so nested
// folders are created parent first.
func (m *Migrator) resolvePath(ctx context.Context, rel string) (clm.FolderID, error) {
	parent := m.root
	walked := ""
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		walked = path.Join(walked, seg)
		id, err := m.folders.Resolve(ctx, m.LogicalPath(walked), seg, parent)
		if err != nil {
			return "", err
		}
		parent = id
	}
	return parent, nil
}

// 📤 MigrateItems uploads each item into its folder and attaches its
// attributes. Items are handled in batches; every folder a batch needs is
// resolved before any of its uploads start.
func (m *Migrator) MigrateItems(ctx context.Context, items []Item) (*Report, error) {
	report := newReport()
	defer func() { report.Finished = time.Now() }()

	zerolog.Ctx(ctx).Info().Str("run_id", report.RunID).Int("items", len(items)).Msg("starting unitary migration")
	m.tracker.StartOperation(ctx, len(items))
	defer m.tracker.FinishOperation(ctx)

	failedFolders := map[string]error{}
	folders := map[clm.FolderID]bool{}

	for i, batch := range chunk(items, m.batchSize) {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("migration cancelled before batch %d: %w", i, err)
		}

		var members []member
		for _, it := range batch {
			f := source.File{ParentFolder: it.Folder, FileName: it.FileName}

			// a folder that failed once is not retried for later rows
			if err, failed := failedFolders[it.Folder]; failed {
				m.fileFailed(ctx, f, err)
				report.Failed = append(report.Failed, FileFailure{File: f, Err: err})
				continue
			}

			id, err := m.resolvePath(ctx, it.Folder)
			if err != nil {
				failedFolders[it.Folder] = err
				report.FailedFolders = append(report.FailedFolders, FolderFailure{RelPath: it.Folder, LogicalPath: m.LogicalPath(it.Folder), Err: err})
				log.Ctx(ctx).Errorf("folder %s failed: %v", it.Folder, err)
				m.fileFailed(ctx, f, err)
				report.Failed = append(report.Failed, FileFailure{File: f, Err: err})
				continue
			}
			folders[id] = true

			located, err := m.src.Stat(ctx, it.Folder, it.FileName)
			if err != nil {
				m.journal.Record(ctx, journal.Unprocessed, fmt.Sprintf("Unprocessed: %s", it.RelPath()))
				m.fileFailed(ctx, f, err)
				report.Failed = append(report.Failed, FileFailure{File: f, Err: err})
				continue
			}

			members = append(members, member{file: located, folder: id, attrs: it.Attributes})
		}

		report.addBatch(m.runBatch(ctx, members))
	}

	report.Folders = len(folders)
	return report, nil
}

// 📄 MigrateFile uploads a single item and attaches its attributes.
func (m *Migrator) MigrateFile(ctx context.Context, it Item) (clm.DocumentID, error) {
	report, err := m.MigrateItems(ctx, []Item{it})
	if err != nil {
		return "", err
	}
	if len(report.Failed) > 0 {
		return "", report.Failed[0].Err
	}
	if len(report.Uploaded) == 0 {
		return "", errors.Errorf("%s was not uploaded", it.RelPath())
	}
	return report.Uploaded[0], nil
}
