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

// Package journal is the append-only diagnostic sink. Every failure category
// gets its own channel so an operator can re-run exactly the items listed in it.
package journal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📒 Channel names one diagnostic stream
type Channel string

const (
	FolderErrors     Channel = "folder_errors"
	RequestErrors    Channel = "request_errors"
	NoExtension      Channel = "no_extension"
	Processed        Channel = "processed"
	Clean            Channel = "clean"
	MetadataErrors   Channel = "metadata_errors"
	Notes            Channel = "notes"
	Unprocessed      Channel = "unprocessed"
	CredentialErrors Channel = "credential_errors"
	Missing          Channel = "missing"
)

// Channels lists every channel the tool writes to.
func Channels() []Channel {
	return []Channel{
		FolderErrors, RequestErrors, NoExtension, Processed, Clean,
		MetadataErrors, Notes, Unprocessed, CredentialErrors, Missing,
	}
}

// FileName is the log file backing the channel.
func (c Channel) FileName() string {
	return string(c) + ".log"
}

// ✍️ Journal accepts line-oriented records. Record never fails: a broken sink
// must not abort the migration.
type Journal interface {
	Record(ctx context.Context, ch Channel, msg string)
}

// 📁 Dir writes each channel to <dir>/<channel>.log
type Dir struct {
	dir   string
	mu    sync.Mutex
	files map[Channel]*os.File
}

// 🏭 NewDir creates the directory if needed
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating journal directory: %w", err)
	}
	return &Dir{
		dir:   filepath.Clean(dir),
		files: make(map[Channel]*os.File),
	}, nil
}

// Path returns the file backing ch.
func (d *Dir) Path(ch Channel) string {
	return filepath.Join(d.dir, ch.FileName())
}

// Record appends msg plus a newline to the channel file.
func (d *Dir) Record(ctx context.Context, ch Channel, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write(ch, msg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("channel", string(ch)).Msg("dropping journal record")
	}
}

func (d *Dir) write(ch Channel, msg string) error {
	f, ok := d.files[ch]
	if !ok {
		var err error
		f, err = os.OpenFile(d.Path(ch), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Errorf("opening %s: %w", ch.FileName(), err)
		}
		d.files[ch] = f
	}

	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if _, err := f.WriteString(msg); err != nil {
		return errors.Errorf("writing %s: %w", ch.FileName(), err)
	}
	return nil
}

// Close closes every open channel file.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for ch, f := range d.files {
		if err := f.Close(); err != nil {
			errs = append(errs, errors.Errorf("closing %s: %w", ch.FileName(), err))
		}
		delete(d.files, ch)
	}
	return errors.Join(errs...)
}

// 🧠 Memory keeps records in memory
type Memory struct {
	mu      sync.Mutex
	entries map[Channel][]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Channel][]string)}
}

func (m *Memory) Record(ctx context.Context, ch Channel, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ch] = append(m.entries[ch], strings.TrimSuffix(msg, "\n"))
}

// Entries returns a copy of the records written to ch.
func (m *Memory) Entries(ch Channel) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries[ch]...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Record(context.Context, Channel, string) {}

var (
	_ Journal = (*Dir)(nil)
	_ Journal = (*Memory)(nil)
	_ Journal = Discard{}
)
