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

package opts

import (
	"context"

	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// RootOpts carries the persistent flags shared by every command
type RootOpts struct {
	ConfigFile string
	Debug      bool
	// LogDir overrides the journal directory of the config
	LogDir string
	// SourceRoot overrides source.root of the config
	SourceRoot string

	Console *log.Logger
}

// LoadConfig reads and validates the config file. Commands that talk to the
// remote store use it.
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Read(ctx, o.ConfigFile)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LocalConfig is LoadConfig for commands that only touch the local tree: the
// remote sections are not required. A missing config file is fine when the
// source root comes from a flag.
func (o *RootOpts) LocalConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Read(ctx, o.ConfigFile)
	if err != nil {
		if o.SourceRoot == "" {
			return nil, err
		}
		cfg = &config.Config{}
	}
	o.apply(cfg)
	if cfg.Source.Root == "" {
		return nil, errors.Errorf("source.root is required")
	}
	if cfg.Migration.BatchSize <= 0 {
		cfg.Migration.BatchSize = config.DefaultBatchSize
	}
	if cfg.LogDir == "" {
		cfg.LogDir = config.DefaultLogDir
	}
	return cfg, nil
}

func (o *RootOpts) apply(cfg *config.Config) {
	if o.SourceRoot != "" {
		cfg.Source.Root = o.SourceRoot
	}
	if o.LogDir != "" {
		cfg.LogDir = o.LogDir
	}
}

// OpenJournal opens the journal directory named by cfg.
func (o *RootOpts) OpenJournal(cfg *config.Config) (*journal.Dir, error) {
	j, err := journal.NewDir(cfg.LogDir)
	if err != nil {
		return nil, errors.Errorf("opening journal: %w", err)
	}
	return j, nil
}
