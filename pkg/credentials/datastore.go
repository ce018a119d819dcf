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

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultClientField = "Cliente"
	DefaultTokenField  = "Access token"
)

// 🗄️ DataStoreOptions configures a DataStore
type DataStoreOptions struct {
	// URL of the data store records endpoint
	URL string
	// Key authenticates against the data store
	Key string
	// ClientField is the record field holding the company name
	ClientField string
	// TokenField is the record field holding the access token
	TokenField string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// 🗄️ DataStore looks tokens up in a remote key/value data store whose records
// look like {"records": [{"data": {"Cliente": "...", "Access token": "..."}}]}
type DataStore struct {
	opts DataStoreOptions
}

type dataStoreRecords struct {
	Records []struct {
		Key  string         `json:"key"`
		Data map[string]any `json:"data"`
	} `json:"records"`
}

func NewDataStore(opts DataStoreOptions) (*DataStore, error) {
	if opts.URL == "" {
		return nil, errors.Errorf("data store url is required")
	}
	if opts.Key == "" {
		return nil, errors.Errorf("data store key is required")
	}
	if opts.ClientField == "" {
		opts.ClientField = DefaultClientField
	}
	if opts.TokenField == "" {
		opts.TokenField = DefaultTokenField
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &DataStore{opts: opts}, nil
}

func (d *DataStore) fail(company string, status int, err error) error {
	return &LookupError{Source: "datastore", Company: company, StatusCode: status, Err: err}
}

// Token fetches the records and returns the token of the first record whose
// client field equals company.
func (d *DataStore) Token(ctx context.Context, company string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.opts.URL, nil)
	if err != nil {
		return "", d.fail(company, 0, errors.Errorf("building request: %w", err))
	}
	req.Header.Set("Authorization", "Token "+d.opts.Key)
	req.Header.Set("Accept", "application/json")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return "", d.fail(company, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", d.fail(company, resp.StatusCode, errors.New("request failed"))
	}

	var body dataStoreRecords
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", d.fail(company, resp.StatusCode, errors.Errorf("decoding records: %w", err))
	}

	for _, rec := range body.Records {
		if fmt.Sprint(rec.Data[d.opts.ClientField]) != company {
			continue
		}
		tok, _ := rec.Data[d.opts.TokenField].(string)
		if tok == "" {
			return "", d.fail(company, 0, errors.Errorf("record %q has no %q", rec.Key, d.opts.TokenField))
		}
		zerolog.Ctx(ctx).Debug().Str("company", company).Str("record", rec.Key).Msg("found access token")
		return tok, nil
	}

	return "", d.fail(company, 0, errors.WithDetails(ErrNotFound, "records", len(body.Records)))
}
