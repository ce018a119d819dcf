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
	"context"
	"io"
	"os"

	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/credentials"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/operation"
	"github.com/walteh/clmigrate/pkg/source"
	"github.com/walteh/clmigrate/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func newSource(cfg *config.Config) (*source.Dir, error) {
	dir, err := source.NewDir(cfg.Source.Root, cfg.Source.Ignore)
	if err != nil {
		return nil, errors.Errorf("opening source tree: %w", err)
	}
	return dir, nil
}

// newLookup builds the credential chain: the environment variable first,
// then the data store.
func newLookup(cfg *config.Config) (credentials.Lookup, error) {
	var chain credentials.Chain
	if cfg.Credentials.TokenEnv != "" {
		chain = append(chain, credentials.Env{Var: cfg.Credentials.TokenEnv})
	}
	if ds := cfg.Credentials.DataStore; ds != nil {
		store, err := credentials.NewDataStore(credentials.DataStoreOptions{
			URL:         ds.URL,
			Key:         os.Getenv(ds.KeyEnv),
			ClientField: ds.ClientField,
			TokenField:  ds.TokenField,
			Timeout:     cfg.CLM.RequestTimeout.Std(),
		})
		if err != nil {
			return nil, errors.Errorf("configuring data store: %w", err)
		}
		chain = append(chain, store)
	}
	return chain, nil
}

func newClient(ctx context.Context, cfg *config.Config, j journal.Journal) (*clm.Client, error) {
	lookup, err := newLookup(cfg)
	if err != nil {
		return nil, err
	}
	ts, err := credentials.TokenSource(ctx, lookup, cfg.Credentials.Company, j)
	if err != nil {
		return nil, err
	}
	client, err := clm.New(clm.Options{
		APIURL:         cfg.CLM.APIURL,
		UploadURL:      cfg.CLM.UploadURL,
		RequestTimeout: cfg.CLM.RequestTimeout.Std(),
		TokenSource:    ts,
	})
	if err != nil {
		return nil, errors.Errorf("creating clm client: %w", err)
	}
	return client, nil
}

func newMigrator(cfg *config.Config, api operation.API, src operation.Source, j journal.Journal) (*operation.Migrator, error) {
	m, err := operation.New(operation.Options{
		API:              api,
		Source:           src,
		Journal:          j,
		RootFolder:       clm.FolderID(cfg.CLM.RootFolderID),
		PathPrefix:       cfg.CLM.PathPrefix,
		BatchSize:        cfg.Migration.BatchSize,
		MaxAttempts:      cfg.Migration.MaxAttempts,
		FolderBackoff:    cfg.Migration.FolderBackoff.Std(),
		UploadDelay:      cfg.Migration.UploadDelay.Std(),
		RepairExtensions: cfg.Migration.Repair(),
	})
	if err != nil {
		return nil, errors.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

func renderReport(ctx context.Context, w io.Writer, title string, m *operation.Migrator, report *operation.Report) error {
	return status.RenderSummary(w, status.Summary{
		Title:          title,
		RunID:          report.RunID,
		Counts:         report.Counts(),
		Failures:       m.Tracker().Failures(ctx),
		FolderFailures: report.FolderFailureLines(),
	})
}
