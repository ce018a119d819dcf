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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		args        func(root, tmp string) []string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, root, tmp, out string)
	}{
		{
			name: "version",
			args: func(root, tmp string) []string { return []string{"version"} },
			validate: func(t *testing.T, root, tmp, out string) {
				assert.Contains(t, out, "clmigrate version info")
			},
		},
		{
			name:        "missing_config",
			args:        func(root, tmp string) []string { return []string{"migrate", "-c", filepath.Join(tmp, "nope.yaml")} },
			wantErr:     true,
			errContains: "reading config file",
		},
		{
			name:  "repair_renames",
			files: map[string]string{"1/invoice": "\n\n%PDF-1.4\n"},
			args: func(root, tmp string) []string {
				return []string{"repair", "-c", filepath.Join(tmp, "none.yaml"), "--source", root, "--log-dir", filepath.Join(tmp, "logs")}
			},
			validate: func(t *testing.T, root, tmp, out string) {
				_, err := os.Stat(filepath.Join(root, "1", "invoice.pdf"))
				assert.NoError(t, err, "invoice should be renamed")

				clean, err := os.ReadFile(filepath.Join(tmp, "logs", "clean.log"))
				require.NoError(t, err)
				assert.Equal(t, "Recovered PDF: 1/invoice\n", string(clean))
			},
		},
		{
			name:  "repair_dry_run",
			files: map[string]string{"1/invoice": "\n\n%PDF-1.4\n"},
			args: func(root, tmp string) []string {
				return []string{"repair", "--dry-run", "-c", filepath.Join(tmp, "none.yaml"), "--source", root, "--log-dir", filepath.Join(tmp, "logs")}
			},
			validate: func(t *testing.T, root, tmp, out string) {
				_, err := os.Stat(filepath.Join(root, "1", "invoice"))
				assert.NoError(t, err, "dry run keeps names")

				notes, err := os.ReadFile(filepath.Join(tmp, "logs", "notes.log"))
				require.NoError(t, err)
				assert.Equal(t, "archive: invoice, ext: pdf\n", string(notes))
			},
		},
		{
			name:  "strip",
			files: map[string]string{"1/a.pdf": "x", "1/b.txt": "y"},
			args: func(root, tmp string) []string {
				return []string{"strip", "--ext", "pdf", "-c", filepath.Join(tmp, "none.yaml"), "--source", root}
			},
			validate: func(t *testing.T, root, tmp, out string) {
				_, err := os.Stat(filepath.Join(root, "1", "a"))
				assert.NoError(t, err)
				_, err = os.Stat(filepath.Join(root, "1", "b.txt"))
				assert.NoError(t, err)
			},
		},
		{
			name:  "inventory",
			files: map[string]string{"1/a.pdf": "x", "2/b.pdf": "y"},
			args: func(root, tmp string) []string {
				return []string{"inventory", "-c", filepath.Join(tmp, "none.yaml"), "--source", root, "-o", filepath.Join(tmp, "inv.xlsx"), "--page", "Lote"}
			},
			validate: func(t *testing.T, root, tmp, out string) {
				f, err := excelize.OpenFile(filepath.Join(tmp, "inv.xlsx"))
				require.NoError(t, err)
				defer f.Close()

				rows, err := f.GetRows("Lote")
				require.NoError(t, err)
				assert.Equal(t, [][]string{
					{"Pasta", "SubPasta", "arquivo"},
					{"Lote", "1", "a.pdf"},
					{"Lote", "2", "b.pdf"},
				}, rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			root := filepath.Join(tmp, "tree")
			require.NoError(t, os.MkdirAll(root, 0755))
			writeFiles(t, root, tt.files)

			out, err := execute(t, tt.args(root, tmp)...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, root, tmp, out)
			}
		})
	}
}
