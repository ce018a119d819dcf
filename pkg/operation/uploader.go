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
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/config"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/retry"
)

// 📤 Uploader sends documents with a fixed delay between attempts.
//
// A request that reached the server but whose response was lost is retried
// like any other failure, so the remote folder can end up with a duplicate.
type Uploader struct {
	api     API
	journal journal.Journal
	retry   RetryOptions
}

// 🏭 NewUploader creates an uploader with a fixed delay by default
func NewUploader(api API, j journal.Journal, opts RetryOptions) *Uploader {
	if j == nil {
		j = journal.Discard{}
	}
	return &Uploader{
		api:     api,
		journal: j,
		retry:   opts.withDefaults(retry.Fixed(config.DefaultUploadDelay)),
	}
}

// Upload creates one document from up and returns its id, or an UploadError.
func (u *Uploader) Upload(ctx context.Context, up clm.Upload) (clm.DocumentID, error) {
	logger := zerolog.Ctx(ctx).With().Str("file", up.FileName).Str("folder", string(up.Folder)).Logger()
	state := retry.New(u.retry.MaxAttempts, u.retry.Policy)

	fail := func(err error) (clm.DocumentID, error) {
		u.journal.Record(ctx, journal.RequestErrors, fmt.Sprintf("file: %s, folder: %s, error: %v", up.FileName, up.Folder, err))
		return "", &UploadError{FileName: up.FileName, Folder: up.Folder, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		id, err := u.api.UploadDocument(ctx, up)
		if err == nil {
			logger.Info().Str("document", string(id)).Uint("attempt", state.Attempt+1).Msg("document uploaded")
			u.journal.Record(ctx, journal.Processed, fmt.Sprintf("Processed: %s", up.FileName))
			return id, nil
		}

		if clm.IsTimeout(err) {
			logger.Error().Err(err).Uint("attempt", state.Attempt+1).Msg("upload timed out")
			return fail(err)
		}
		if ctx.Err() != nil {
			return fail(err)
		}

		if !state.Advance() {
			logger.Error().Err(err).Uint("attempt", state.Attempt).Int("status", clm.StatusCode(err)).Msg("giving up on upload")
			return fail(&RetryExhaustedError{
				Scope:      ScopeFile,
				Subject:    up.FileName,
				Attempts:   state.Attempt,
				LastStatus: clm.StatusCode(err),
				Err:        err,
			})
		}

		logger.Warn().Err(err).
			Uint("attempt", state.Attempt).
			Int("status", clm.StatusCode(err)).
			Dur("delay", state.NextDelay).
			Msg("retrying upload")

		if err := u.retry.Sleep(ctx, state.NextDelay); err != nil {
			return fail(err)
		}
	}
}
