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

package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/clmigrate/cmd/clmigrate/opts"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/operation"
	"github.com/walteh/clmigrate/pkg/sheet"
	"gitlab.com/tozd/go/errors"
)

func NewRepairCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		limit     int
		batchSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Rename files whose extension does not match their content",
		Long: `Repair walks the whole source tree and fixes file extensions from content.
Folders are visited in numeric order and files in name order. Files whose
type cannot be detected are never renamed. With --dry-run the detected
extensions are written to the notes journal instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.LocalConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			if batchSize <= 0 {
				batchSize = cfg.Migration.BatchSize
			}

			j, err := opts.OpenJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			src, err := newSource(cfg)
			if err != nil {
				return err
			}

			report, err := operation.RepairExtensions(ctx, src, j, operation.RepairOptions{
				BatchSize: batchSize,
				Limit:     limit,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}

			console := log.Ctx(ctx)
			if dryRun {
				console.Infof("%d of %d files need a new extension, see %s", report.Noted, report.Scanned, j.Path(journal.Notes))
			} else {
				console.Successf("renamed %d of %d files", report.Renamed, report.Scanned)
			}
			if report.Undetected > 0 {
				console.Warningf("%d files of unknown type left alone", report.Undetected)
			}
			for _, f := range report.Failed {
				console.Errorf("%s: %v", f.File.RelPath(), f.Err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "stop after renaming this many files")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "files inspected concurrently per batch")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write notes instead of renaming")

	return cmd
}

func NewStripCmd(opts *opts.RootOpts) *cobra.Command {
	var exts []string

	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Remove the given extensions from every file name",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.LocalConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}

			var cleaned []string
			for _, e := range exts {
				if e = strings.TrimSpace(e); e != "" {
					cleaned = append(cleaned, e)
				}
			}

			src, err := newSource(cfg)
			if err != nil {
				return err
			}

			report, err := operation.StripExtensions(ctx, src, cleaned, cfg.Migration.BatchSize)
			if err != nil {
				return err
			}

			console := log.Ctx(ctx)
			console.Successf("stripped %d of %d files", report.Stripped, report.Scanned)
			for _, f := range report.Failed {
				console.Errorf("%s: %v", f.File.RelPath(), f.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exts, "ext", nil, "extensions to remove, e.g. pdf,docx")
	_ = cmd.MarkFlagRequired("ext")

	return cmd
}

func NewInventoryCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		output string
		page   string
	)

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Write every file of the source tree to an xlsx sheet",
		Long: `Inventory lists every file below the source root as Pasta, SubPasta, arquivo.
An existing workbook gets a new page; a missing one is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.LocalConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			if page == "" {
				page = filepath.Base(cfg.Source.Root)
			}

			src, err := newSource(cfg)
			if err != nil {
				return err
			}

			rows, err := operation.Inventory(ctx, src, sheet.PageName(page))
			if err != nil {
				return err
			}
			if err := sheet.WriteInventory(ctx, output, page, rows); err != nil {
				return err
			}

			log.Ctx(ctx).Successf("wrote %d files to %s", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "inventory.xlsx", "workbook to write")
	cmd.Flags().StringVar(&page, "page", "", "page name, defaults to the source folder name")

	return cmd
}
