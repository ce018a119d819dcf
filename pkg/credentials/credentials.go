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

// Package credentials finds the bearer token used against the remote store.
// A missing or unreadable credential is always an error for the caller.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"

	"github.com/walteh/clmigrate/pkg/journal"
)

// ErrNotFound means the source holds no token for the requested company.
var ErrNotFound = errors.Base("credential not found")

// 🔑 Lookup returns the access token registered for a company
type Lookup interface {
	Token(ctx context.Context, company string) (string, error)
}

// ❌ LookupError is a failed credential lookup
type LookupError struct {
	Source     string
	Company    string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: looking up token for %q", e.Source, e.Company)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *LookupError) Unwrap() error { return e.Err }

// 🌱 Env reads the token from an environment variable, whatever the company
type Env struct {
	Var string
}

func (e Env) Token(ctx context.Context, company string) (string, error) {
	if e.Var == "" {
		return "", &LookupError{Source: "env", Company: company, Err: errors.New("no variable configured")}
	}
	tok := strings.TrimSpace(os.Getenv(e.Var))
	if tok == "" {
		return "", &LookupError{Source: "env", Company: company, Err: errors.WithDetails(ErrNotFound, "var", e.Var)}
	}
	return tok, nil
}

// ⛓️ Chain asks each lookup in turn. Only ErrNotFound moves on to the next
// one; any other failure is returned as is.
type Chain []Lookup

func (c Chain) Token(ctx context.Context, company string) (string, error) {
	var errs []error
	for _, l := range c {
		tok, err := l.Token(ctx, company)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", &LookupError{Source: "chain", Company: company, Err: ErrNotFound}
	}
	return "", errors.Join(errs...)
}

// 🎟️ TokenSource resolves the company's token once and wraps it for use as
// bearer auth. Failures are written to the credential channel before being
// returned.
func TokenSource(ctx context.Context, l Lookup, company string, j journal.Journal) (oauth2.TokenSource, error) {
	tok, err := l.Token(ctx, company)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("company", company).Msg("credential lookup failed")
		if j != nil {
			j.Record(ctx, journal.CredentialErrors, fmt.Sprintf("company: %s, error: %v", company, err))
		}
		return nil, errors.Errorf("resolving credentials: %w", err)
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}), nil
}
