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
	"github.com/walteh/clmigrate/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func NewMigrateCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		noRepair  bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the whole source tree into the CLM store",
		Long: `Migrate mirrors every folder below the source root remotely and uploads its files.
It will:
1. Resolve each folder by logical path, creating it when missing
2. Repair file extensions from content
3. Upload files in concurrent batches
4. Print a summary and write the journal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "migrate").Logger().WithContext(ctx)

			cfg, err := opts.LoadConfig(ctx)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			if noRepair {
				repair := false
				cfg.Migration.RepairExtensions = &repair
			}
			if batchSize > 0 {
				cfg.Migration.BatchSize = batchSize
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

			report, runErr := m.MigrateTree(ctx)
			if report != nil {
				if err := renderReport(ctx, cmd.OutOrStdout(), "migration summary", m, report); err != nil {
					return err
				}
			}
			if runErr != nil {
				return errors.Errorf("migrating tree: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRepair, "no-repair", false, "upload files under their current names")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "files uploaded concurrently per batch")

	return cmd
}
