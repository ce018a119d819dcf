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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/clmigrate/cmd/clmigrate/opts"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/operation"
	"github.com/walteh/clmigrate/pkg/sheet"
	"gitlab.com/tozd/go/errors"
)

// readItems loads the metadata sheet and maps its rows to items.
func readItems(cmd *cobra.Command, md *config.Metadata, maxRows int) ([]operation.Item, error) {
	ctx := cmd.Context()

	rows, err := sheet.Read(ctx, md.Sheet, sheet.ReadOptions{Page: md.SheetPage, MaxRows: maxRows})
	if err != nil {
		return nil, errors.Errorf("reading sheet: %w", err)
	}

	items, skipped := operation.ItemsFromRows(rows, operation.MappingFromConfig(md))
	if len(skipped) > 0 {
		zerolog.Ctx(ctx).Warn().Ints("rows", skipped).Msg("rows without folder or file skipped")
		log.Ctx(ctx).Warningf("%d sheet rows have no folder or file name", len(skipped))
	}
	return items, nil
}

func NewUploadCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		sheetPath string
		maxRows   int
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the files listed in the metadata sheet",
		Long: `Upload reads the metadata sheet and uploads each named file.
It will:
1. Resolve each row's folder once, creating nested folders parent first
2. Upload the named file
3. Attach the row's attributes to the new document`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "upload").Logger().WithContext(ctx)
			cmd.SetContext(ctx)

			cfg, err := opts.LoadConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			if cfg.Metadata == nil {
				return errors.Errorf("upload needs a metadata section")
			}
			if sheetPath != "" {
				cfg.Metadata.Sheet = sheetPath
			}

			items, err := readItems(cmd, cfg.Metadata, maxRows)
			if err != nil {
				return err
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
			client, err := newClient(ctx, cfg, j)
			if err != nil {
				return err
			}
			m, err := newMigrator(cfg, client, src, j)
			if err != nil {
				return err
			}

			log.Ctx(ctx).Header(cfg.String())

			report, runErr := m.MigrateItems(ctx, items)
			if report != nil {
				if err := renderReport(ctx, cmd.OutOrStdout(), "upload summary", m, report); err != nil {
					return err
				}
			}
			if runErr != nil {
				return errors.Errorf("uploading items: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheetPath, "sheet", "", "metadata sheet, overrides metadata.sheet")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "read at most this many rows")

	return cmd
}

func NewCheckCmd(opts *opts.RootOpts) *cobra.Command {
	var sheetPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that every sheet row points at a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.LocalConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			if cfg.Metadata == nil {
				cfg.Metadata = &config.Metadata{}
			}
			if sheetPath != "" {
				cfg.Metadata.Sheet = sheetPath
			}
			if cfg.Metadata.Sheet == "" {
				return errors.Errorf("no sheet given")
			}

			items, err := readItems(cmd, cfg.Metadata, 0)
			if err != nil {
				return err
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

			report, err := operation.CheckItems(ctx, src, items, j)
			if err != nil {
				return err
			}

			if report.Missing == 0 {
				log.Ctx(ctx).Successf("all %d rows found", report.Checked)
				return nil
			}
			log.Ctx(ctx).Warningf("%d of %d rows missing, see %s", report.Missing, report.Checked, j.Path(journal.Missing))
			return nil
		},
	}

	cmd.Flags().StringVar(&sheetPath, "sheet", "", "metadata sheet, overrides metadata.sheet")

	return cmd
}
