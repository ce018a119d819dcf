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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎛️ Defaults applied by Validate
const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultBatchSize      = 50
	DefaultMaxAttempts    = 500
	DefaultFolderBackoff  = 3 * time.Second
	DefaultUploadDelay    = 2 * time.Second
	DefaultLogDir         = "logs"
	DefaultFolderColumn   = "pasta"
	DefaultFileColumn     = "arquivo"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🌐 CLM locates the remote store
type CLM struct {
	APIURL    string `json:"api_url" yaml:"api_url"`
	UploadURL string `json:"upload_url,omitempty" yaml:"upload_url,omitempty"`
	// AccountID, when set, is appended to both urls as the last path segment
	AccountID    string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	RootFolderID string `json:"root_folder_id" yaml:"root_folder_id"`
	// PathPrefix is prepended to every logical folder path
	PathPrefix     string   `json:"path_prefix,omitempty" yaml:"path_prefix,omitempty"`
	RequestTimeout Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// 📁 Source is the local document tree
type Source struct {
	Root   string   `json:"root" yaml:"root"`
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// 🚚 Migration tunes batching and retries
type Migration struct {
	BatchSize        int      `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	MaxAttempts      uint     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	FolderBackoff    Duration `json:"folder_backoff,omitempty" yaml:"folder_backoff,omitempty"`
	UploadDelay      Duration `json:"upload_delay,omitempty" yaml:"upload_delay,omitempty"`
	RepairExtensions *bool    `json:"repair_extensions,omitempty" yaml:"repair_extensions,omitempty"`
}

// Repair reports whether extensions are repaired before upload. It defaults to true.
func (m Migration) Repair() bool {
	return m.RepairExtensions == nil || *m.RepairExtensions
}

// 🗄️ DataStore is a remote token store keyed by company
type DataStore struct {
	URL         string `json:"url" yaml:"url"`
	KeyEnv      string `json:"key_env" yaml:"key_env"`
	ClientField string `json:"client_field,omitempty" yaml:"client_field,omitempty"`
	TokenField  string `json:"token_field,omitempty" yaml:"token_field,omitempty"`
}

// 🔑 Credentials tells where the bearer token comes from
type Credentials struct {
	Company   string     `json:"company,omitempty" yaml:"company,omitempty"`
	TokenEnv  string     `json:"token_env,omitempty" yaml:"token_env,omitempty"`
	DataStore *DataStore `json:"datastore,omitempty" yaml:"datastore,omitempty"`
}

// 🏷️ Field maps a sheet column onto a remote attribute
type Field struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
}

// 🏷️ Group is one remote attribute group
type Group struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// 📋 Metadata drives sheet based uploads
type Metadata struct {
	Sheet        string  `json:"sheet" yaml:"sheet"`
	SheetPage    int     `json:"sheet_page,omitempty" yaml:"sheet_page,omitempty"`
	FolderColumn string  `json:"folder_column,omitempty" yaml:"folder_column,omitempty"`
	FileColumn   string  `json:"file_column,omitempty" yaml:"file_column,omitempty"`
	Groups       []Group `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	CLM         CLM         `json:"clm" yaml:"clm"`
	Source      Source      `json:"source" yaml:"source"`
	Migration   Migration   `json:"migration,omitempty" yaml:"migration,omitempty"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
	Metadata    *Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	LogDir      string      `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`
}

// 📖 Read parses the file at path without validating it
func Read(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// 🎯 Load loads and validates the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks required fields and fills in defaults
func (cfg *Config) Validate() error {
	if err := cfg.validateCLM(); err != nil {
		return err
	}

	if cfg.Source.Root == "" {
		return errors.Errorf("source.root is required")
	}
	cfg.Source.Root = filepath.Clean(cfg.Source.Root)

	if cfg.Migration.BatchSize < 0 {
		return errors.Errorf("migration.batch_size must not be negative")
	}
	if cfg.Migration.BatchSize == 0 {
		cfg.Migration.BatchSize = DefaultBatchSize
	}
	if cfg.Migration.MaxAttempts == 0 {
		cfg.Migration.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Migration.FolderBackoff <= 0 {
		cfg.Migration.FolderBackoff = Duration(DefaultFolderBackoff)
	}
	if cfg.Migration.UploadDelay <= 0 {
		cfg.Migration.UploadDelay = Duration(DefaultUploadDelay)
	}

	if err := cfg.validateCredentials(); err != nil {
		return err
	}

	if m := cfg.Metadata; m != nil {
		if m.Sheet == "" {
			return errors.Errorf("metadata.sheet is required")
		}
		if m.SheetPage < 0 {
			return errors.Errorf("metadata.sheet_page must not be negative")
		}
		if m.FolderColumn == "" {
			m.FolderColumn = DefaultFolderColumn
		}
		if m.FileColumn == "" {
			m.FileColumn = DefaultFileColumn
		}
		for i, g := range m.Groups {
			if g.Name == "" {
				return errors.Errorf("metadata.groups[%d].name is required", i)
			}
			for j, f := range g.Fields {
				if f.Name == "" || f.Column == "" {
					return errors.Errorf("metadata.groups[%d].fields[%d] needs name and column", i, j)
				}
			}
		}
	}

	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir
	}

	return nil
}

func (cfg *Config) validateCLM() error {
	c := &cfg.CLM
	if c.APIURL == "" {
		return errors.Errorf("clm.api_url is required")
	}
	if c.RootFolderID == "" {
		return errors.Errorf("clm.root_folder_id is required")
	}

	var err error
	if c.APIURL, err = accountURL(c.APIURL, c.AccountID); err != nil {
		return errors.Errorf("clm.api_url: %w", err)
	}
	if c.UploadURL != "" {
		if c.UploadURL, err = accountURL(c.UploadURL, c.AccountID); err != nil {
			return errors.Errorf("clm.upload_url: %w", err)
		}
	}
	// consumed: the urls now carry it
	c.AccountID = ""

	c.PathPrefix = strings.TrimRight(c.PathPrefix, "/")
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		c.PathPrefix = "/" + c.PathPrefix
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	return nil
}

func (cfg *Config) validateCredentials() error {
	c := &cfg.Credentials
	if c.TokenEnv == "" && c.DataStore == nil {
		return errors.Errorf("credentials.token_env or credentials.datastore is required")
	}
	if ds := c.DataStore; ds != nil {
		if ds.URL == "" {
			return errors.Errorf("credentials.datastore.url is required")
		}
		if ds.KeyEnv == "" {
			return errors.Errorf("credentials.datastore.key_env is required")
		}
		if c.Company == "" {
			return errors.Errorf("credentials.company is required with a datastore")
		}
	}
	return nil
}

func accountURL(raw, account string) (string, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("%q is not an absolute url", raw)
	}
	if account != "" {
		u = u.JoinPath(account)
	}
	return u.String(), nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s%s (folder %s)", cfg.Source.Root, cfg.CLM.APIURL, cfg.CLM.PathPrefix, cfg.CLM.RootFolderID)
}
