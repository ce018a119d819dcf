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

// Package clm is a thin client for the remote content library: folder lookup
// and creation, document upload and attribute patching. It performs exactly one
// HTTP exchange per call; retrying is the caller's business.
package clm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

const (
	// DefaultRequestTimeout bounds every outbound request.
	DefaultRequestTimeout = 60 * time.Second

	maxResponseBody = 1 << 20
)

// 🔧 Options configures a Client
type Options struct {
	// APIURL is the account-scoped API root, e.g. https://api.example.com/v2/<account>
	APIURL string
	// UploadURL is the account-scoped upload root; APIURL is used when empty
	UploadURL string
	// RequestTimeout is the deadline given to each request on its own
	RequestTimeout time.Duration
	// TokenSource supplies the bearer token
	TokenSource oauth2.TokenSource
	// HTTPClient provides the base transport; http.DefaultClient when nil
	HTTPClient *http.Client
}

// 🌐 Client talks to the remote content library
type Client struct {
	api     *url.URL
	upload  *url.URL
	timeout time.Duration
	http    *http.Client
}

// 🏭 New creates a client
func New(opts Options) (*Client, error) {
	if opts.APIURL == "" {
		return nil, errors.Errorf("api url is required")
	}
	if opts.TokenSource == nil {
		return nil, errors.Errorf("token source is required")
	}

	api, err := parseRoot(opts.APIURL)
	if err != nil {
		return nil, errors.Errorf("parsing api url: %w", err)
	}

	upload := api
	if opts.UploadURL != "" {
		upload, err = parseRoot(opts.UploadURL)
		if err != nil {
			return nil, errors.Errorf("parsing upload url: %w", err)
		}
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	base := http.DefaultClient
	if opts.HTTPClient != nil {
		base = opts.HTTPClient
	}

	return &Client{
		api:     api,
		upload:  upload,
		timeout: timeout,
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, opts.TokenSource),
				Base:   base.Transport,
			},
			CheckRedirect: base.CheckRedirect,
			Jar:           base.Jar,
		},
	}, nil
}

func parseRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}

func (c *Client) endpoint(root *url.URL, query url.Values, segments ...string) string {
	u := *root
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = root.Path + "/" + strings.Join(segments, "/")
	u.RawPath = root.EscapedPath() + "/" + strings.Join(escaped, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// FolderHref is the resource reference of a folder, as used in ParentFolder.
func (c *Client) FolderHref(id FolderID) string {
	return c.endpoint(c.api, nil, "folders", string(id))
}

// 🔍 FolderByPath looks up an existing folder by its logical path. Any status
// other than 200 comes back as a TransientNetworkError carrying the status.
func (c *Client) FolderByPath(ctx context.Context, logicalPath string) (FolderID, error) {
	target := c.endpoint(c.api, url.Values{"path": {logicalPath}}, "folders", "path")

	ref, err := c.do(ctx, "get folder by path", http.StatusOK, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return FolderID(ref), nil
}

// 📁 CreateFolder creates name under parent and returns the new folder's id.
func (c *Client) CreateFolder(ctx context.Context, name string, parent FolderID) (FolderID, error) {
	body, err := json.Marshal(folderCreate{
		Name:         name,
		ParentFolder: resourceRef{Href: c.FolderHref(parent)},
	})
	if err != nil {
		return "", errors.Errorf("encoding folder request: %w", err)
	}
	target := c.endpoint(c.api, nil, "folders")

	ref, err := c.do(ctx, "create folder", http.StatusCreated, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return FolderID(ref), nil
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

// contentDisposition names the upload the way the store expects: the name is
// sent as is in a quoted filename parameter, accented characters included.
func contentDisposition(name string) string {
	return `form-data; filename="` + dispositionEscaper.Replace(name) + `"`
}

// 📤 UploadDocument sends the file content, base64 encoded, into the folder's
// document collection. Every call creates a new document.
func (c *Client) UploadDocument(ctx context.Context, up Upload) (DocumentID, error) {
	if up.Folder == "" {
		return "", errors.Errorf("upload of %s has no target folder", up.FileName)
	}
	target := c.endpoint(c.upload, url.Values{"name": {up.FileName}}, "folders", string(up.Folder), "documents")
	encoded := base64.StdEncoding.EncodeToString(up.Content)
	disposition := contentDisposition(up.FileName)

	ref, err := c.do(ctx, "upload document", http.StatusCreated, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Disposition", disposition)
		req.Header.Set("Content-Transfer-Encoding", "base64")
		if up.MimeType != "" {
			req.Header.Set("Content-Type", up.MimeType)
		}
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return DocumentID(ref), nil
}

// 🏷️ PatchDocument replaces the document's attribute groups.
func (c *Client) PatchDocument(ctx context.Context, id DocumentID, attrs AttributeSet) error {
	body, err := json.Marshal(attrs)
	if err != nil {
		return errors.Errorf("encoding attributes: %w", err)
	}
	target := c.endpoint(c.api, nil, "documents", string(id))

	_, err = c.exchange(ctx, "patch document", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, func(status int, _ []byte) error {
		if status < 200 || status > 299 {
			return &TransientNetworkError{Op: "patch document", StatusCode: status}
		}
		return nil
	})
	return err
}

// do performs one request expecting want and returns the id from the Href of
// the response body.
func (c *Client) do(ctx context.Context, op string, want int, build func(context.Context) (*http.Request, error)) (string, error) {
	return c.exchange(ctx, op, build, func(status int, body []byte) error {
		if status != want {
			return &TransientNetworkError{Op: op, StatusCode: status}
		}
		return nil
	}, hrefID(op))
}

func hrefID(op string) func(status int, body []byte) (string, error) {
	return func(status int, body []byte) (string, error) {
		var ref resourceRef
		if err := json.Unmarshal(body, &ref); err != nil {
			return "", &TransientNetworkError{Op: op, StatusCode: status, Err: errors.Errorf("decoding response: %w", err)}
		}
		id, err := IDFromHref(ref.Href)
		if err != nil {
			return "", &TransientNetworkError{Op: op, StatusCode: status, Err: err}
		}
		return id, nil
	}
}

// exchange runs a single request under its own deadline. check validates the
// status; decode, when given, turns the body into a result.
func (c *Client) exchange(
	ctx context.Context,
	op string,
	build func(context.Context) (*http.Request, error),
	check func(status int, body []byte) error,
	decode ...func(status int, body []byte) (string, error),
) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := build(reqCtx)
	if err != nil {
		return "", errors.Errorf("%s: building request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	logger := zerolog.Ctx(ctx).With().Str("op", op).Str("request_id", requestID).Logger()
	logger.Trace().Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.classify(ctx, reqCtx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", c.classify(ctx, reqCtx, op, errors.Errorf("reading response: %w", err))
	}

	logger.Trace().Int("status", resp.StatusCode).Msg("received response")

	if err := check(resp.StatusCode, body); err != nil {
		return "", err
	}
	if len(decode) == 0 {
		return "", nil
	}
	return decode[0](resp.StatusCode, body)
}

func (c *Client) classify(ctx, reqCtx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.Errorf("%s: %w", op, ctx.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: c.timeout, Err: err}
	}
	return &TransientNetworkError{Op: op, Err: err}
}
