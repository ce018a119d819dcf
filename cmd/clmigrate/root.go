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

package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/clmigrate/cmd/clmigrate/commands"
	"github.com/walteh/clmigrate/cmd/clmigrate/opts"
	"github.com/walteh/clmigrate/pkg/log"
)

func newRootCmd(stdout io.Writer) *cobra.Command {
	rootOpts := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "clmigrate",
		Short: "Migrate a local document tree into a CLM content library",
		Long: `clmigrate mirrors a local folder tree into a remote CLM store, uploading
every document and attaching metadata read from a spreadsheet. It also ships
the tools used to prepare a tree: extension repair, stripping, inventory and
sheet checks.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(rootOpts.Debug)

			level := zerolog.InfoLevel
			if rootOpts.Debug {
				level = zerolog.DebugLevel
			}
			rootOpts.Console = log.New(stdout, level)

			ctx := zerolog.DefaultContextLogger.WithContext(cmd.Context())
			ctx = log.NewContext(ctx, rootOpts.Console)
			cmd.SetContext(ctx)
		},
	}
	rootCmd.SetOut(stdout)

	// Add shared flags
	addRootFlags(rootCmd, rootOpts)

	// Add commands
	rootCmd.AddCommand(
		commands.NewMigrateCmd(rootOpts),
		commands.NewUploadCmd(rootOpts),
		commands.NewCheckCmd(rootOpts),
		commands.NewRepairCmd(rootOpts),
		commands.NewStripCmd(rootOpts),
		commands.NewInventoryCmd(rootOpts),
		newVersionCmd(),
	)

	return rootCmd
}

func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "clmigrate.yaml", "config file path")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&o.LogDir, "log-dir", "", "journal directory, overrides log_dir")
	cmd.PersistentFlags().StringVar(&o.SourceRoot, "source", "", "source tree root, overrides source.root")
}

func setupLogging(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
}
