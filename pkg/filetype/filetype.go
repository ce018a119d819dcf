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

// Package filetype works out what a file really is from its bytes, so files
// with a missing or wrong extension can be renamed before upload.
package filetype

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clmigrate/pkg/journal"
)

// ErrUndetected means neither the signature sniffing nor the text fallback
// recognised the content. It is never fatal.
var ErrUndetected = errors.Base("file type not detected")

var pdfMarker = []byte("%PDF")

// 🔎 Result is the inferred type of a file
type Result struct {
	// Extension without the leading dot, lower case
	Extension string
	MimeType  string
	// Fallback is set when the type came from the text heuristic
	Fallback bool
}

// 🧪 Detect inspects content and reports the inferred type. It has no side effects.
func Detect(content []byte) (Result, bool) {
	m := mimetype.Detect(content)
	if isSignature(m) {
		return Result{
			Extension: strings.TrimPrefix(m.Extension(), "."),
			MimeType:  m.String(),
		}, true
	}

	// malformed pdfs often carry junk or blank lines before the header
	if bytes.Contains(content, pdfMarker) {
		return Result{Extension: "pdf", MimeType: "application/pdf", Fallback: true}, true
	}

	return Result{}, false
}

func isSignature(m *mimetype.MIME) bool {
	if m == nil || m.Extension() == "" {
		return false
	}
	if m.Is("application/octet-stream") || m.Is("text/plain") {
		return false
	}
	return true
}

// 🧭 Resolver detects types and writes a diagnostic entry whenever the text
// fallback had to be used.
type Resolver struct {
	journal journal.Journal
}

// 🏭 NewResolver creates a resolver; a nil journal discards entries
func NewResolver(j journal.Journal) *Resolver {
	if j == nil {
		j = journal.Discard{}
	}
	return &Resolver{journal: j}
}

// Resolve classifies content read from path. It returns ErrUndetected when
// nothing matched.
func (r *Resolver) Resolve(ctx context.Context, path string, content []byte) (Result, error) {
	res, ok := Detect(content)
	if !ok {
		return Result{}, errors.WithDetails(ErrUndetected, "path", path)
	}

	if res.Fallback {
		zerolog.Ctx(ctx).Warn().Str("path", path).Msg("pdf marker found without a pdf header")
		r.journal.Record(ctx, journal.Clean, fmt.Sprintf("Recovered PDF: %s", path))
	}
	return res, nil
}

// equivalent groups extensions naming the same format
var equivalent = map[string]string{
	"jpeg": "jpg",
	"jpe":  "jpg",
	"tiff": "tif",
	"htm":  "html",
	"mpeg": "mpg",
	"yml":  "yaml",
	"text": "txt",
}

func canonical(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if c, ok := equivalent[ext]; ok {
		return c
	}
	return ext
}

// Matches reports whether the extension of name already names res.
func Matches(name string, res Result) bool {
	return canonical(filepath.Ext(name)) == canonical(res.Extension)
}

// ✏️ RepairedName returns the name a file should carry given its detected type.
// Names that already match are returned unchanged. A short alphanumeric
// extension that disagrees with the content is replaced; anything else, such
// as "report.2023", keeps its name and gets the extension appended.
func RepairedName(name string, res Result) string {
	if res.Extension == "" || Matches(name, res) {
		return name
	}

	ext := filepath.Ext(name)
	if looksLikeExtension(ext) {
		return strings.TrimSuffix(name, ext) + "." + res.Extension
	}
	return name + "." + res.Extension
}

func looksLikeExtension(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if len(ext) == 0 || len(ext) > 5 {
		return false
	}
	letters := 0
	for _, r := range ext {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return letters > 0
}

// HasExtension reports whether name carries any extension at all.
func HasExtension(name string) bool {
	return looksLikeExtension(filepath.Ext(name))
}

// StripExtension removes ext (with or without the dot, any case) from the end
// of name. It reports false when name does not end in ext.
func StripExtension(name, ext string) (string, bool) {
	ext = "." + strings.TrimPrefix(ext, ".")
	if len(name) <= len(ext) || !strings.EqualFold(name[len(name)-len(ext):], ext) {
		return name, false
	}
	return name[:len(name)-len(ext)], true
}
