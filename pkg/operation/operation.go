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
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/filetype"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/retry"
	"github.com/walteh/clmigrate/pkg/source"
	"github.com/walteh/clmigrate/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🌐 API is the part of the remote store the migration drives
type API interface {
	FolderByPath(ctx context.Context, logicalPath string) (clm.FolderID, error)
	CreateFolder(ctx context.Context, name string, parent clm.FolderID) (clm.FolderID, error)
	UploadDocument(ctx context.Context, up clm.Upload) (clm.DocumentID, error)
	PatchDocument(ctx context.Context, id clm.DocumentID, attrs clm.AttributeSet) error
}

// 🌳 Source is the local document tree
type Source interface {
	ListFolders(ctx context.Context, rel string) ([]source.Folder, error)
	ListFiles(ctx context.Context, rel string) ([]source.File, error)
	Walk(ctx context.Context, fn func(source.Folder, []source.File) error) error
	ReadFile(ctx context.Context, f source.File) ([]byte, error)
	Stat(ctx context.Context, folder, name string) (source.File, error)
	Rename(ctx context.Context, f source.File, newName string) (source.File, error)
}

var (
	_ API    = (*clm.Client)(nil)
	_ Source = (*source.Dir)(nil)
)

// 🔧 RetryOptions bounds one retry loop
type RetryOptions struct {
	// MaxAttempts is the attempt ceiling, including the first try
	MaxAttempts uint
	// Policy produces the delays between attempts
	Policy retry.Policy
	// Sleep waits between attempts; retry.Sleep when nil
	Sleep retry.Sleeper
}

func (o RetryOptions) withDefaults(policy retry.Policy) RetryOptions {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = config.DefaultMaxAttempts
	}
	if o.Policy == nil {
		o.Policy = policy
	}
	if o.Sleep == nil {
		o.Sleep = retry.Sleep
	}
	return o
}

// 🔧 Options contains configuration for the migrator
type Options struct {
	// API is the remote store
	API API
	// Source is the local tree
	Source Source
	// Journal receives diagnostic records; discarded when nil
	Journal journal.Journal
	// Tracker receives per-file outcomes; a fresh one is used when nil
	Tracker *status.Tracker

	// RootFolder is the remote parent of every top-level folder
	RootFolder clm.FolderID
	// PathPrefix is prepended to every logical folder path
	PathPrefix string

	BatchSize        int
	MaxAttempts      uint
	FolderBackoff    time.Duration
	UploadDelay      time.Duration
	RepairExtensions bool

	// Sleep replaces the wait between attempts; used by tests
	Sleep retry.Sleeper
}

// 🎮 Migrator moves a local tree into the remote store
type Migrator struct {
	api       API
	src       Source
	journal   journal.Journal
	tracker   *status.Tracker
	root      clm.FolderID
	prefix    string
	batchSize int
	repair    bool

	folders  *FolderResolver
	uploader *Uploader
	attacher *Attacher
	types    *filetype.Resolver
}

// 🏭 New creates a migrator with the given options
func New(opts Options) (*Migrator, error) {
	if opts.API == nil {
		return nil, errors.Errorf("api is required")
	}
	if opts.Source == nil {
		return nil, errors.Errorf("source is required")
	}
	if opts.RootFolder == "" {
		return nil, errors.Errorf("root folder is required")
	}
	if opts.BatchSize < 0 {
		return nil, errors.Errorf("batch size must not be negative")
	}

	j := opts.Journal
	if j == nil {
		j = journal.Discard{}
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = status.New()
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = config.DefaultBatchSize
	}
	folderBackoff := opts.FolderBackoff
	if folderBackoff <= 0 {
		folderBackoff = config.DefaultFolderBackoff
	}
	uploadDelay := opts.UploadDelay
	if uploadDelay <= 0 {
		uploadDelay = config.DefaultUploadDelay
	}

	return &Migrator{
		api:       opts.API,
		src:       opts.Source,
		journal:   j,
		tracker:   tracker,
		root:      opts.RootFolder,
		prefix:    normalizePrefix(opts.PathPrefix),
		batchSize: batchSize,
		repair:    opts.RepairExtensions,
		folders: NewFolderResolver(opts.API, j, RetryOptions{
			MaxAttempts: opts.MaxAttempts,
			Policy:      retry.Exponential(folderBackoff),
			Sleep:       opts.Sleep,
		}),
		uploader: NewUploader(opts.API, j, RetryOptions{
			MaxAttempts: opts.MaxAttempts,
			Policy:      retry.Fixed(uploadDelay),
			Sleep:       opts.Sleep,
		}),
		attacher: NewAttacher(opts.API, j),
		types:    filetype.NewResolver(j),
	}, nil
}

// Tracker returns the outcome tracker of the migrator.
func (m *Migrator) Tracker() *status.Tracker {
	return m.tracker
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// LogicalPath is the remote path of a folder given its path relative to the
// source root.
func (m *Migrator) LogicalPath(rel string) string {
	return m.prefix + "/" + strings.Trim(path.Clean("/"+rel), "/")
}

// 📊 Report describes a finished run
type Report struct {
	RunID         string
	Started       time.Time
	Finished      time.Time
	Folders       int
	Uploaded      []clm.DocumentID
	Repaired      int
	Skipped       int
	Failed        []FileFailure
	FailedFolders []FolderFailure
}

// FileFailure is one file that did not make it.
type FileFailure struct {
	File source.File
	Err  error
}

// FolderFailure is one folder whose subtree was skipped.
type FolderFailure struct {
	RelPath     string
	LogicalPath string
	Err         error
}

func newReport() *Report {
	return &Report{RunID: uuid.NewString(), Started: time.Now()}
}

func (r *Report) addBatch(res BatchResult) {
	r.Uploaded = append(r.Uploaded, res.Succeeded...)
	r.Failed = append(r.Failed, res.Failed...)
}

// Err joins every failure of the run, or returns nil for a clean run.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.FailedFolders {
		errs = append(errs, f.Err)
	}
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Counts tallies the run by outcome.
func (r *Report) Counts() map[status.FileStatus]int {
	return map[status.FileStatus]int{
		status.StatusUploaded: len(r.Uploaded),
		status.StatusRepaired: r.Repaired,
		status.StatusSkipped:  r.Skipped,
		status.StatusFailed:   len(r.Failed),
	}
}

// FolderFailureLines renders folder failures for the summary.
func (r *Report) FolderFailureLines() []string {
	out := make([]string, 0, len(r.FailedFolders))
	for _, f := range r.FailedFolders {
		out = append(out, f.LogicalPath+": "+f.Err.Error())
	}
	return out
}
