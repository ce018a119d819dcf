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

package status

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 🧾 Summary is what a finished run prints
type Summary struct {
	Title          string
	RunID          string
	Counts         map[FileStatus]int
	Failures       []FileInfo
	FolderFailures []string
}

// maxListedFailures caps the failure lines printed; the journal has them all.
const maxListedFailures = 20

var summaryOrder = []FileStatus{StatusUploaded, StatusRepaired, StatusSkipped, StatusFailed}

// 📋 RenderSummary writes the run summary table and failure list to w
func RenderSummary(w io.Writer, s Summary) error {
	title := s.Title
	if title == "" {
		title = "migration summary"
	}
	header := pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"}).Sprintfln("%s", title)
	if s.RunID != "" {
		header = pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"}).Sprintfln("%s (run %s)", title, s.RunID)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return errors.Errorf("writing summary header: %w", err)
	}

	data := pterm.TableData{{"outcome", "files"}}
	for _, st := range summaryOrder {
		data = append(data, []string{st.String(), strconv.Itoa(s.Counts[st])})
	}
	data = append(data, []string{"failed folders", strconv.Itoa(len(s.FolderFailures))})

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering summary table: %w", err)
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return errors.Errorf("writing summary table: %w", err)
	}

	for _, folder := range s.FolderFailures {
		line := pterm.Error.WithPrefix(pterm.Prefix{Text: "📁"}).Sprintln(folder)
		if _, err := io.WriteString(w, line); err != nil {
			return errors.Errorf("writing folder failure: %w", err)
		}
	}

	for i, f := range s.Failures {
		if i == maxListedFailures {
			more := pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Sprintfln("%d more failures, see the journal", len(s.Failures)-i)
			if _, err := io.WriteString(w, more); err != nil {
				return errors.Errorf("writing failure overflow: %w", err)
			}
			break
		}
		line := pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Sprintln(NewDefaultFileFormatter().FormatFileOutcome(f))
		if _, err := io.WriteString(w, line); err != nil {
			return errors.Errorf("writing file failure: %w", err)
		}
	}

	if len(s.Failures) == 0 && len(s.FolderFailures) == 0 {
		ok := pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Sprintln("no failures")
		if _, err := io.WriteString(w, ok); err != nil {
			return errors.Errorf("writing summary footer: %w", err)
		}
	}

	return nil
}
