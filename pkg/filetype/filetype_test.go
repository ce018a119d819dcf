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

package filetype

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clmigrate/pkg/journal"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01")
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name         string
		content      []byte
		wantOK       bool
		wantExt      string
		wantMime     string
		wantFallback bool
	}{
		{name: "pdf_signature", content: pdfBytes, wantOK: true, wantExt: "pdf", wantMime: "application/pdf"},
		{name: "png_signature", content: pngBytes, wantOK: true, wantExt: "png", wantMime: "image/png"},
		{name: "jpeg_signature", content: jpegBytes, wantOK: true, wantExt: "jpg", wantMime: "image/jpeg"},
		{name: "pdf_after_blank_lines", content: []byte("\n\n%PDF-1.4\nbody"), wantOK: true, wantExt: "pdf", wantMime: "application/pdf", wantFallback: true},
		{name: "pdf_marker_mid_buffer", content: []byte("garbage garbage %PDF-1.7 trailer"), wantOK: true, wantExt: "pdf", wantMime: "application/pdf", wantFallback: true},
		{name: "plain_text", content: []byte("just some notes about a contract"), wantOK: false},
		{name: "opaque_binary", content: []byte{0x00, 0x01, 0x02, 0x03, 0xfe}, wantOK: false},
		{name: "empty", content: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Detect(tt.content)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantExt, res.Extension)
			assert.Equal(t, tt.wantMime, res.MimeType)
			assert.Equal(t, tt.wantFallback, res.Fallback)
		})
	}
}

func TestResolveFallbackWritesDiagnostic(t *testing.T) {
	mem := journal.NewMemory()
	r := NewResolver(mem)

	res, err := r.Resolve(context.Background(), "/data/100/invoice", []byte("\n\n%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", res.Extension)
	assert.Equal(t, []string{"Recovered PDF: /data/100/invoice"}, mem.Entries(journal.Clean))

	_, err = r.Resolve(context.Background(), "/data/100/real.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Len(t, mem.Entries(journal.Clean), 1, "signature matches write no diagnostic")
}

func TestResolveUndetected(t *testing.T) {
	r := NewResolver(nil)

	_, err := r.Resolve(context.Background(), "notes", []byte("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndetected))
}

func TestRepairedName(t *testing.T) {
	pdf := Result{Extension: "pdf", MimeType: "application/pdf"}
	jpg := Result{Extension: "jpg", MimeType: "image/jpeg"}

	tests := []struct {
		name string
		file string
		res  Result
		want string
	}{
		{name: "no_extension", file: "invoice", res: pdf, want: "invoice.pdf"},
		{name: "already_correct", file: "invoice.pdf", res: pdf, want: "invoice.pdf"},
		{name: "already_correct_upper", file: "INVOICE.PDF", res: pdf, want: "INVOICE.PDF"},
		{name: "equivalent_alias", file: "photo.jpeg", res: jpg, want: "photo.jpeg"},
		{name: "wrong_extension", file: "contract.docx", res: pdf, want: "contract.pdf"},
		{name: "numeric_suffix", file: "report.2023", res: pdf, want: "report.2023.pdf"},
		{name: "dotted_words", file: "Contrato nº 1.2 final", res: pdf, want: "Contrato nº 1.2 final.pdf"},
		{name: "empty_result", file: "invoice", res: Result{}, want: "invoice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairedName(tt.file, tt.res))
		})
	}
}

func TestRepairIsStable(t *testing.T) {
	for _, content := range [][]byte{pdfBytes, pngBytes, jpegBytes, []byte("\n\n%PDF-1.4")} {
		first, ok := Detect(content)
		require.True(t, ok)

		name := RepairedName("document", first)
		second, ok := Detect(content)
		require.True(t, ok)

		assert.Equal(t, first, second)
		assert.Equal(t, name, RepairedName(name, second), "repairing a repaired name changes nothing")
	}
}

func TestStripExtension(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		ext    string
		want   string
		wantOK bool
	}{
		{name: "dotless_ext", file: "a.pdf", ext: "pdf", want: "a", wantOK: true},
		{name: "dotted_ext", file: "a.pdf", ext: ".pdf", want: "a", wantOK: true},
		{name: "case_insensitive", file: "a.PDF", ext: "pdf", want: "a", wantOK: true},
		{name: "other_ext", file: "a.docx", ext: "pdf", want: "a.docx"},
		{name: "whole_name", file: ".pdf", ext: "pdf", want: ".pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StripExtension(tt.file, tt.ext)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("a.pdf"))
	assert.True(t, HasExtension("clip.mp4"))
	assert.False(t, HasExtension("invoice"))
	assert.False(t, HasExtension("report.2023"))
	assert.False(t, HasExtension("weird.ext-with-dash"))
}
