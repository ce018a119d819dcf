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
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		APIURL:         srv.URL + "/v2/acct",
		UploadURL:      srv.URL + "/upload/v2/acct",
		RequestTimeout: timeout,
		TokenSource:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret-token"}),
	})
	require.NoError(t, err, "creating client")
	return c, srv
}

func TestIDFromHref(t *testing.T) {
	tests := []struct {
		name        string
		href        string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "folder_href", href: "https://api.example.com/v2/acct/folders/abc123", want: "abc123"},
		{name: "trailing_slash", href: "https://api.example.com/v2/acct/folders/abc123/", want: "abc123"},
		{name: "query_string", href: "https://api.example.com/v2/acct/documents/d-9?expand=all", want: "d-9"},
		{name: "fragment", href: "https://api.example.com/v2/acct/documents/d-9#top", want: "d-9"},
		{name: "bare_id", href: "abc123", want: "abc123"},
		{name: "empty", href: "  ", wantErr: true, errContains: "empty resource reference"},
		{name: "no_segment", href: "https://api.example.com/", wantErr: true, errContains: "no identifier segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IDFromHref(tt.href)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFolderByPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acct/folders/path", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		switch r.URL.Query().Get("path") {
		case "/Contracts/100":
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"Href":"https://x/v2/acct/folders/f-100"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c, _ := newTestClient(t, mux, time.Second)
	ctx := context.Background()

	id, err := c.FolderByPath(ctx, "/Contracts/100")
	require.NoError(t, err)
	assert.Equal(t, FolderID("f-100"), id)

	_, err = c.FolderByPath(ctx, "/Contracts/200")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.False(t, IsTimeout(err))
}

func TestCreateFolder(t *testing.T) {
	var got folderCreate
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acct/folders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"Href":"https://x/v2/acct/folders/abc123"}`)
	})
	c, srv := newTestClient(t, mux, time.Second)

	id, err := c.CreateFolder(context.Background(), "100", "root-1")
	require.NoError(t, err)
	assert.Equal(t, FolderID("abc123"), id)
	assert.Equal(t, "100", got.Name)
	assert.Equal(t, srv.URL+"/v2/acct/folders/root-1", got.ParentFolder.Href)
}

func TestCreateFolderRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), time.Second)

	_, err := c.CreateFolder(context.Background(), "100", "root-1")
	require.Error(t, err)

	var tne *TransientNetworkError
	require.ErrorAs(t, err, &tne)
	assert.Equal(t, http.StatusTooManyRequests, tne.StatusCode)
	assert.Equal(t, "create folder", tne.Op)
}

func TestUploadDocument(t *testing.T) {
	content := []byte("%PDF-1.7 binary\x00\x01")
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/v2/acct/folders/f-1/documents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "relatório final.pdf", r.URL.Query().Get("name"))
		assert.Equal(t, "base64", r.Header.Get("Content-Transfer-Encoding"))
		assert.Equal(t, `form-data; filename="relatório final.pdf"`, r.Header.Get("Content-Disposition"))
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		require.NoError(t, err)
		assert.Equal(t, content, decoded)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"Href":"https://x/v2/acct/documents/doc-7"}`)
	})
	c, _ := newTestClient(t, mux, time.Second)

	id, err := c.UploadDocument(context.Background(), Upload{
		FileName: "relatório final.pdf",
		Content:  content,
		Folder:   "f-1",
		MimeType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, DocumentID("doc-7"), id)
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "plain", filename: "a.pdf", want: `form-data; filename="a.pdf"`},
		{name: "accented", filename: "Contrato Aditivo nº 3.pdf", want: `form-data; filename="Contrato Aditivo nº 3.pdf"`},
		{name: "quote_escaped", filename: `o "novo".pdf`, want: `form-data; filename="o \"novo\".pdf"`},
		{name: "line_breaks_dropped", filename: "a\r\nb.pdf", want: `form-data; filename="ab.pdf"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentDisposition(tt.filename))
		})
	}
}

func TestUploadDocumentBadBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `not json`)
	}), time.Second)

	_, err := c.UploadDocument(context.Background(), Upload{FileName: "a.pdf", Folder: "f-1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusCreated, StatusCode(err))
	assert.Contains(t, err.Error(), "decoding response")
}

func TestPatchDocument(t *testing.T) {
	var got map[string]map[string]map[string]map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acct/documents/doc-7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	c, _ := newTestClient(t, mux, time.Second)

	err := c.PatchDocument(context.Background(), "doc-7", AttributeSet{
		"Contracts": {"CNPJ": "00.000.000/0001-00", "Status": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "00.000.000/0001-00", got["AttributeGroups"]["Contracts"]["CNPJ"]["Value"])
	assert.Equal(t, "", got["AttributeGroups"]["Contracts"]["Status"]["Value"])
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}), 50*time.Millisecond)
	defer close(release)

	_, err := c.FolderByPath(context.Background(), "/slow")
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "deadline expiry should surface as a timeout, got %v", err)
	assert.Zero(t, StatusCode(err))

	// the next call gets a fresh deadline of its own
	_, err = c.FolderByPath(context.Background(), "/slow")
	assert.True(t, IsTimeout(err))
}

func TestCallerCancellationIsNotATimeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.FolderByPath(ctx, "/slow")
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidation(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})

	_, err := New(Options{TokenSource: ts})
	assert.ErrorContains(t, err, "api url is required")

	_, err = New(Options{APIURL: "https://api.example.com"})
	assert.ErrorContains(t, err, "token source is required")

	_, err = New(Options{APIURL: "/relative", TokenSource: ts})
	assert.ErrorContains(t, err, "not an absolute url")
}

func TestAttributeSetEmpty(t *testing.T) {
	assert.True(t, AttributeSet{}.Empty())
	assert.True(t, AttributeSet{"g": {}}.Empty())
	assert.False(t, AttributeSet{"g": {"f": ""}}.Empty())
}
