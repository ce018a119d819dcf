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

package clm

import (
	"net/url"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔗 IDFromHref returns the trailing path segment of a resource reference.
// Query strings, fragments and trailing slashes are ignored.
func IDFromHref(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.Errorf("empty resource reference")
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", errors.Errorf("parsing resource reference %q: %w", href, err)
	}

	p := strings.TrimRight(u.Path, "/")
	idx := strings.LastIndex(p, "/")
	id := p[idx+1:]
	if id == "" {
		return "", errors.Errorf("resource reference %q has no identifier segment", href)
	}
	return id, nil
}
