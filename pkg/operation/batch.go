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

	"github.com/walteh/clmigrate/pkg/clm"
	"github.com/walteh/clmigrate/pkg/filetype"
	"github.com/walteh/clmigrate/pkg/journal"
	"github.com/walteh/clmigrate/pkg/log"
	"github.com/walteh/clmigrate/pkg/source"
	"github.com/walteh/clmigrate/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📦 BatchResult is what one batch produced. Every member lands in exactly
// one of the two lists.
type BatchResult struct {
	Succeeded []clm.DocumentID
	Failed    []FileFailure
}

// member is one file queued for upload. content is nil until the file is read.
type member struct {
	file     source.File
	folder   clm.FolderID
	attrs    clm.AttributeSet
	content  []byte
	mimeType string
}

type memberResult struct {
	doc clm.DocumentID
	err error
}

// chunk splits items into consecutive slices of at most size.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

// runBatch uploads every member into its folder concurrently and waits for
// all of them. A failing member never affects the others.
func (m *Migrator) runBatch(ctx context.Context, batch []member) BatchResult {
	if len(batch) == 0 {
		return BatchResult{}
	}

	results := make([]memberResult, len(batch))

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i, mem := range batch {
		g.Go(func() error {
			results[i] = m.uploadMember(ctx, mem)
			return nil
		})
	}
	_ = g.Wait()

	var res BatchResult
	for i, r := range results {
		if r.err != nil {
			res.Failed = append(res.Failed, FileFailure{File: batch[i].file, Err: r.err})
			continue
		}
		res.Succeeded = append(res.Succeeded, r.doc)
	}
	return res
}

func (m *Migrator) uploadMember(ctx context.Context, mem member) memberResult {
	if mem.content == nil {
		content, err := m.src.ReadFile(ctx, mem.file)
		if err != nil {
			m.journal.Record(ctx, journal.Unprocessed, fmt.Sprintf("Unprocessed: %s", mem.file.RelPath()))
			m.fileFailed(ctx, mem.file, err)
			return memberResult{err: err}
		}
		mem.content = content
		if res, ok := filetype.Detect(content); ok {
			mem.mimeType = res.MimeType
		}
	}

	up := clm.Upload{
		FileName: mem.file.FileName,
		Content:  mem.content,
		Folder:   mem.folder,
		MimeType: mem.mimeType,
	}

	doc, err := m.uploader.Upload(ctx, up)
	if err != nil {
		m.fileFailed(ctx, mem.file, err)
		return memberResult{err: err}
	}
	m.fileUploaded(ctx, mem.file, doc)

	if !m.attacher.Attach(ctx, mem.attrs, doc) {
		m.fileNoted(ctx, mem.file, "metadata not attached")
	}
	return memberResult{doc: doc}
}

// 📝 outcome bookkeeping: tracker plus console line

func (m *Migrator) fileUploaded(ctx context.Context, f source.File, doc clm.DocumentID) {
	m.tracker.TrackFile(ctx, status.FileInfo{Path: f.RelPath(), Status: status.StatusUploaded, Document: string(doc)})
	log.Ctx(ctx).LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Uploaded, Detail: string(doc)})
}

func (m *Migrator) fileFailed(ctx context.Context, f source.File, err error) {
	attempts := attemptsOf(err)
	m.tracker.TrackFile(ctx, status.FileInfo{Path: f.RelPath(), Status: status.StatusFailed, Attempts: attempts, Error: err})
	log.Ctx(ctx).LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Failed, Detail: failureDetail(err), Attempts: attempts})
}

func (m *Migrator) fileSkipped(ctx context.Context, f source.File, reason string) {
	m.tracker.TrackFile(ctx, status.FileInfo{Path: f.RelPath(), Status: status.StatusSkipped})
	log.Ctx(ctx).LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Skipped, Detail: reason})
}

// fileRepaired only prints: the upload that follows is tracked under the new name.
func (m *Migrator) fileRepaired(ctx context.Context, f source.File, newName string) {
	log.Ctx(ctx).LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Repaired, Detail: newName})
}

func (m *Migrator) fileNoted(ctx context.Context, f source.File, detail string) {
	log.Ctx(ctx).LogFile(ctx, log.FileEvent{Path: f.RelPath(), Outcome: log.Noted, Detail: detail})
}

func attemptsOf(err error) uint {
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	return 0
}

// failureDetail is the short console form of err.
func failureDetail(err error) string {
	switch {
	case clm.IsTimeout(err):
		return "timeout"
	case clm.StatusCode(err) != 0:
		return fmt.Sprintf("status %d", clm.StatusCode(err))
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		var fr *FolderResolutionError
		if errors.As(err, &fr) {
			return "folder failed"
		}
		return "error"
	}
}
