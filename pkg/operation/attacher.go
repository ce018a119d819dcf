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

	"github.com/rs/zerolog"
	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/journal"
)

// 🏷️ Attacher writes attribute sets onto uploaded documents. It tries once and
// never fails the caller.
type Attacher struct {
	api     API
	journal journal.Journal
}

func NewAttacher(api API, j journal.Journal) *Attacher {
	if j == nil {
		j = journal.Discard{}
	}
	return &Attacher{api: api, journal: j}
}

// Attach patches attrs onto doc. It reports whether the update went through;
// an empty set counts as done.
func (a *Attacher) Attach(ctx context.Context, attrs clm.AttributeSet, doc clm.DocumentID) bool {
	if attrs.Empty() {
		return true
	}

	logger := zerolog.Ctx(ctx).With().Str("document", string(doc)).Logger()

	if err := a.api.PatchDocument(ctx, doc, attrs); err != nil {
		failure := &MetadataAttachError{Document: doc, Err: err}
		logger.Warn().Err(err).Int("status", clm.StatusCode(err)).Msg("metadata not attached")
		a.journal.Record(ctx, journal.MetadataErrors, failure.Error())
		return false
	}

	logger.Debug().Msg("metadata attached")
	return true
}
