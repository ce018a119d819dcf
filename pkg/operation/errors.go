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

package operation

import (
	"fmt"

	"github.com/walteh/clmigrate/pkg/clm"
)

// Scope tells whether a retry loop was working on a folder or a file.
type Scope string

const (
	ScopeFolder Scope = "folder"
	ScopeFile   Scope = "file"
)

// 🔁 RetryExhaustedError is returned when a retry loop used every attempt
type RetryExhaustedError struct {
	Scope      Scope
	Subject    string // logical path or file name
	Attempts   uint
	LastStatus int // zero when the last attempt got no response
	Err        error
}

func (e *RetryExhaustedError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("%s %s: gave up after %d attempts (last status %d): %v", e.Scope, e.Subject, e.Attempts, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("%s %s: gave up after %d attempts: %v", e.Scope, e.Subject, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// 📁 FolderResolutionError means a remote folder could not be found or created.
// Nothing below the folder is migrated.
type FolderResolutionError struct {
	LogicalPath string
	Err         error
}

func (e *FolderResolutionError) Error() string {
	return fmt.Sprintf("resolving folder %s: %v", e.LogicalPath, e.Err)
}

func (e *FolderResolutionError) Unwrap() error { return e.Err }

// 📤 UploadError means one file did not make it to the remote folder
type UploadError struct {
	FileName string
	Folder   clm.FolderID
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s to folder %s: %v", e.FileName, e.Folder, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// 🏷️ MetadataAttachError is a failed attribute update. It is journaled and
// never returned from a migration.
type MetadataAttachError struct {
	Document clm.DocumentID
	Err      error
}

func (e *MetadataAttachError) Error() string {
	return fmt.Sprintf("attaching metadata to document %s: %v", e.Document, e.Err)
}

func (e *MetadataAttachError) Unwrap() error { return e.Err }
