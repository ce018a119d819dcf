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

package sheet

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"
)

// InventoryHeader is the header line of every inventory page.
var InventoryHeader = []string{"Pasta", "SubPasta", "arquivo"}

const maxPageName = 31

// 🗂️ InventoryRow is one file of the local tree as listed in the inventory
type InventoryRow struct {
	Page   string
	Folder string
	File   string
}

// PageName makes name usable as a worksheet title.
func PageName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "inventory"
	}
	if r := []rune(name); len(r) > maxPageName {
		name = string(r[:maxPageName])
	}
	return name
}

// 📝 WriteInventory writes rows into a new page of the workbook at path. An
// existing workbook gets the page appended; a missing one is created.
func WriteInventory(ctx context.Context, path, page string, rows []InventoryRow) error {
	page = PageName(page)

	f, created, err := openOrCreate(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if created {
		// a fresh workbook starts with one blank page; reuse it
		if err := f.SetSheetName(f.GetSheetName(0), page); err != nil {
			return errors.Errorf("naming page %q: %w", page, err)
		}
	} else {
		idx, err := f.GetSheetIndex(page)
		if err != nil {
			return errors.Errorf("looking up page %q: %w", page, err)
		}
		if idx != -1 {
			return errors.Errorf("workbook %s already has a page named %q", path, page)
		}
		if _, err := f.NewSheet(page); err != nil {
			return errors.Errorf("adding page %q: %w", page, err)
		}
	}

	header := make([]interface{}, len(InventoryHeader))
	for i, h := range InventoryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(page, "A1", &header); err != nil {
		return errors.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Errorf("addressing row %d: %w", i+2, err)
		}
		values := []interface{}{r.Page, r.Folder, r.File}
		if err := f.SetSheetRow(page, cell, &values); err != nil {
			return errors.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if idx, err := f.GetSheetIndex(page); err == nil && idx != -1 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Errorf("saving workbook %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Info().Str("workbook", path).Str("page", page).Int("rows", len(rows)).Msg("wrote inventory")
	return nil
}

func openOrCreate(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return excelize.NewFile(), true, nil
		}
		return nil, false, errors.Errorf("checking workbook %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, errors.Errorf("opening workbook %s: %w", path, err)
	}
	return f, false, nil
}
