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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// envFunc exposes env("NAME") to config files.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{"env": envFunc},
	}

	// Define HCL schema
	type hclField struct {
		Name   string `hcl:"name,label"`
		Column string `hcl:"column"`
	}
	type hclGroup struct {
		Name   string     `hcl:"name,label"`
		Fields []hclField `hcl:"field,block"`
	}
	type hclConfig struct {
		CLM struct {
			APIURL         string `hcl:"api_url"`
			UploadURL      string `hcl:"upload_url,optional"`
			AccountID      string `hcl:"account_id,optional"`
			RootFolderID   string `hcl:"root_folder_id"`
			PathPrefix     string `hcl:"path_prefix,optional"`
			RequestTimeout string `hcl:"request_timeout,optional"`
		} `hcl:"clm,block"`
		Source struct {
			Root   string   `hcl:"root"`
			Ignore []string `hcl:"ignore,optional"`
		} `hcl:"source,block"`
		Migration *struct {
			BatchSize        int    `hcl:"batch_size,optional"`
			MaxAttempts      uint   `hcl:"max_attempts,optional"`
			FolderBackoff    string `hcl:"folder_backoff,optional"`
			UploadDelay      string `hcl:"upload_delay,optional"`
			RepairExtensions *bool  `hcl:"repair_extensions,optional"`
		} `hcl:"migration,block"`
		Credentials *struct {
			Company   string `hcl:"company,optional"`
			TokenEnv  string `hcl:"token_env,optional"`
			DataStore *struct {
				URL         string `hcl:"url"`
				KeyEnv      string `hcl:"key_env"`
				ClientField string `hcl:"client_field,optional"`
				TokenField  string `hcl:"token_field,optional"`
			} `hcl:"datastore,block"`
		} `hcl:"credentials,block"`
		Metadata *struct {
			Sheet        string     `hcl:"sheet"`
			SheetPage    int        `hcl:"sheet_page,optional"`
			FolderColumn string     `hcl:"folder_column,optional"`
			FileColumn   string     `hcl:"file_column,optional"`
			Groups       []hclGroup `hcl:"group,block"`
		} `hcl:"metadata,block"`
		LogDir string `hcl:"log_dir,optional"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		CLM: CLM{
			APIURL:       hclCfg.CLM.APIURL,
			UploadURL:    hclCfg.CLM.UploadURL,
			AccountID:    hclCfg.CLM.AccountID,
			RootFolderID: hclCfg.CLM.RootFolderID,
			PathPrefix:   hclCfg.CLM.PathPrefix,
		},
		Source: Source{
			Root:   hclCfg.Source.Root,
			Ignore: hclCfg.Source.Ignore,
		},
		LogDir: hclCfg.LogDir,
	}

	var err error
	if cfg.CLM.RequestTimeout, err = ParseDuration(hclCfg.CLM.RequestTimeout); err != nil {
		return nil, errors.Errorf("clm.request_timeout: %w", err)
	}

	if m := hclCfg.Migration; m != nil {
		cfg.Migration = Migration{
			BatchSize:        m.BatchSize,
			MaxAttempts:      m.MaxAttempts,
			RepairExtensions: m.RepairExtensions,
		}
		if cfg.Migration.FolderBackoff, err = ParseDuration(m.FolderBackoff); err != nil {
			return nil, errors.Errorf("migration.folder_backoff: %w", err)
		}
		if cfg.Migration.UploadDelay, err = ParseDuration(m.UploadDelay); err != nil {
			return nil, errors.Errorf("migration.upload_delay: %w", err)
		}
	}

	if c := hclCfg.Credentials; c != nil {
		cfg.Credentials = Credentials{Company: c.Company, TokenEnv: c.TokenEnv}
		if ds := c.DataStore; ds != nil {
			cfg.Credentials.DataStore = &DataStore{
				URL:         ds.URL,
				KeyEnv:      ds.KeyEnv,
				ClientField: ds.ClientField,
				TokenField:  ds.TokenField,
			}
		}
	}

	if m := hclCfg.Metadata; m != nil {
		cfg.Metadata = &Metadata{
			Sheet:        m.Sheet,
			SheetPage:    m.SheetPage,
			FolderColumn: m.FolderColumn,
			FileColumn:   m.FileColumn,
		}
		for _, g := range m.Groups {
			group := Group{Name: g.Name}
			for _, f := range g.Fields {
				group.Fields = append(group.Fields, Field{Name: f.Name, Column: f.Column})
			}
			cfg.Metadata.Groups = append(cfg.Metadata.Groups, group)
		}
	}

	return cfg, nil
}
