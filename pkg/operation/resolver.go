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
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/retry"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

// 📂 FolderResolver finds or creates remote folders by logical path. Results
// are cached for the life of the resolver, so a path is created at most once.
type FolderResolver struct {
	api     API
	journal journal.Journal
	retry   RetryOptions

	inflight singleflight.Group
	mu       sync.RWMutex
	cache    map[string]clm.FolderID
}

// 🏭 NewFolderResolver creates a resolver with exponential backoff by default
func NewFolderResolver(api API, j journal.Journal, opts RetryOptions) *FolderResolver {
	if j == nil {
		j = journal.Discard{}
	}
	return &FolderResolver{
		api:     api,
		journal: j,
		retry:   opts.withDefaults(retry.Exponential(config.DefaultFolderBackoff)),
		cache:   make(map[string]clm.FolderID),
	}
}

// Cached returns the id already resolved for logicalPath.
func (r *FolderResolver) Cached(logicalPath string) (clm.FolderID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[logicalPath]
	return id, ok
}

// 🔍 Resolve returns the id of the folder at logicalPath, creating it as name
// under parent when the lookup does not find it. Failures come back as a
// FolderResolutionError.
func (r *FolderResolver) Resolve(ctx context.Context, logicalPath, name string, parent clm.FolderID) (clm.FolderID, error) {
	if id, ok := r.Cached(logicalPath); ok {
		return id, nil
	}

	// concurrent callers for the same path share one resolution
	v, err, _ := r.inflight.Do(logicalPath, func() (interface{}, error) {
		if id, ok := r.Cached(logicalPath); ok {
			return id, nil
		}
		id, err := r.resolve(ctx, logicalPath, name, parent)
		if err != nil {
			return clm.FolderID(""), err
		}
		r.mu.Lock()
		r.cache[logicalPath] = id
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(clm.FolderID), nil
}

func (r *FolderResolver) resolve(ctx context.Context, logicalPath, name string, parent clm.FolderID) (clm.FolderID, error) {
	logger := zerolog.Ctx(ctx).With().Str("path", logicalPath).Str("folder", name).Logger()
	state := retry.New(r.retry.MaxAttempts, r.retry.Policy)

	for {
		if err := ctx.Err(); err != nil {
			return "", &FolderResolutionError{LogicalPath: logicalPath, Err: err}
		}

		id, err := r.attempt(ctx, logicalPath, name, parent)
		if err == nil {
			logger.Debug().Str("remote_id", string(id)).Uint("attempt", state.Attempt+1).Msg("folder resolved")
			return id, nil
		}

		if clm.IsTimeout(err) {
			logger.Error().Err(err).Uint("attempt", state.Attempt+1).Msg("folder request timed out")
			r.record(ctx, logicalPath, err, state.Attempt+1)
			return "", &FolderResolutionError{LogicalPath: logicalPath, Err: err}
		}
		if ctx.Err() != nil {
			return "", &FolderResolutionError{LogicalPath: logicalPath, Err: err}
		}

		more := state.Advance()
		r.record(ctx, logicalPath, err, state.Attempt)

		if !more {
			logger.Error().Err(err).Uint("attempt", state.Attempt).Int("status", clm.StatusCode(err)).Msg("giving up on folder")
			return "", &FolderResolutionError{
				LogicalPath: logicalPath,
				Err: &RetryExhaustedError{
					Scope:      ScopeFolder,
					Subject:    logicalPath,
					Attempts:   state.Attempt,
					LastStatus: clm.StatusCode(err),
					Err:        err,
				},
			}
		}

		logger.Warn().Err(err).
			Uint("attempt", state.Attempt).
			Int("status", clm.StatusCode(err)).
			Dur("delay", state.NextDelay).
			Msg("retrying folder")

		if err := r.retry.Sleep(ctx, state.NextDelay); err != nil {
			return "", &FolderResolutionError{LogicalPath: logicalPath, Err: err}
		}
	}
}

// attempt is one lookup followed, when needed, by one creation. Creation
// only follows a lookup the server answered; a lookup that got no response
// says nothing about whether the folder exists.
func (r *FolderResolver) attempt(ctx context.Context, logicalPath, name string, parent clm.FolderID) (clm.FolderID, error) {
	id, err := r.api.FolderByPath(ctx, logicalPath)
	if err == nil {
		return id, nil
	}
	if clm.IsTimeout(err) {
		return "", err
	}
	if clm.StatusCode(err) == 0 {
		return "", errors.Errorf("looking up folder %s: %w", logicalPath, err)
	}
	zerolog.Ctx(ctx).Debug().Err(err).Str("path", logicalPath).Msg("folder lookup missed, creating")

	id, err = r.api.CreateFolder(ctx, name, parent)
	if err != nil {
		return "", errors.Errorf("creating folder %s: %w", name, err)
	}
	return id, nil
}

func (r *FolderResolver) record(ctx context.Context, logicalPath string, err error, attempt uint) {
	r.journal.Record(ctx, journal.FolderErrors, fmt.Sprintf("PATH:%s\nERROR:%v\nAttempt: %d\n", logicalPath, err, attempt))
}
