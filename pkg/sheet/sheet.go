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

// Package sheet turns spreadsheets into rows keyed by column name and writes
// the inventory workbook listing every local document.
package sheet

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"
)

// 📋 Row is one spreadsheet line keyed by lower-case, trimmed column name
type Row map[string]string

// Get returns the value under column, matched case-insensitively.
func (r Row) Get(column string) string {
	return r[NormalizeHeader(column)]
}

// NormalizeHeader is the key form used for every column name.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// 🧹 CleanCell tidies a free-text cell used as a folder or file name: a single
// trailing dot is dropped, embedded line breaks removed and the result trimmed.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.TrimSpace(s)
}

// ReadOptions selects what to read
type ReadOptions struct {
	// Page is the zero based worksheet index; ignored for csv
	Page int
	// MaxRows caps the data rows returned; zero means all
	MaxRows int
}

// 📖 Read loads rows from an .xlsx/.xlsm workbook or a .csv file. The first
// line is the header. Blank lines are skipped and short lines padded with "".
func Read(ctx context.Context, path string, opts ReadOptions) ([]Row, error) {
	var (
		records [][]string
		err     error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path, opts.Page)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, errors.Errorf("unsupported sheet format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	rows := ParseRecords(records, opts.MaxRows)
	zerolog.Ctx(ctx).Debug().Str("sheet", path).Int("rows", len(rows)).Msg("read sheet")
	return rows, nil
}

func readWorkbook(path string, page int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if page < 0 || page >= len(sheets) {
		return nil, errors.Errorf("workbook %s has %d pages, page %d requested", path, len(sheets), page)
	}

	records, err := f.GetRows(sheets[page])
	if err != nil {
		return nil, errors.Errorf("reading page %q: %w", sheets[page], err)
	}
	return records, nil
}

func readCSV(path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("parsing %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseRecords turns raw records into rows using the first record as header.
// Columns with a blank header are dropped.
func ParseRecords(records [][]string, maxRows int) []Row {
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = NormalizeHeader(h)
	}

	var rows []Row
	for _, rec := range records[1:] {
		if maxRows > 0 && len(rows) >= maxRows {
			break
		}
		if blank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
