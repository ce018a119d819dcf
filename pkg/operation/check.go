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

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/sheet"
	"github.com/walteh/clmigrate/pkg/source"
	"gitlab.com/tozd/go/errors"
)

// 📊 CheckReport counts sheet rows and the ones that point nowhere
type CheckReport struct {
	Checked int
	Missing int
}

// 🔍 CheckItems verifies that every item's folder and file exist locally.
// Missing entries go to the missing channel; nothing is uploaded.
func CheckItems(ctx context.Context, src Source, items []Item, j journal.Journal) (*CheckReport, error) {
	if j == nil {
		j = journal.Discard{}
	}
	logger := zerolog.Ctx(ctx)
	report := &CheckReport{}

	// folder existence is looked up once per folder
	folders := map[string]bool{}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("check cancelled at row %d: %w", it.Row, err)
		}
		report.Checked++

		exists, seen := folders[it.Folder]
		if !seen {
			_, err := src.ListFiles(ctx, it.Folder)
			exists = err == nil
			folders[it.Folder] = exists
		}
		if !exists {
			report.Missing++
			logger.Warn().Int("row", it.Row).Str("folder", it.Folder).Msg("folder missing")
			j.Record(ctx, journal.Missing, fmt.Sprintf("folder: %s (row %d)", it.Folder, it.Row))
			continue
		}

		if _, err := src.Stat(ctx, it.Folder, it.FileName); err != nil {
			report.Missing++
			logger.Warn().Int("row", it.Row).Str("file", it.RelPath()).Msg("file missing")
			j.Record(ctx, journal.Missing, fmt.Sprintf("file: %s (row %d)", it.RelPath(), it.Row))
		}
	}

	return report, nil
}

// 🗂️ Inventory lists every file of the tree as inventory rows on page.
func Inventory(ctx context.Context, src Source, page string) ([]sheet.InventoryRow, error) {
	var rows []sheet.InventoryRow
	err := src.Walk(ctx, func(f source.Folder, files []source.File) error {
		for _, file := range files {
			rows = append(rows, sheet.InventoryRow{
				Page:   page,
				Folder: f.RelPath,
				File:   file.FileName,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("building inventory: %w", err)
	}
	return rows, nil
}
