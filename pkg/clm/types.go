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
	"encoding/json"
)

// 📂 FolderID identifies a folder in the remote store
type FolderID string

// 📄 DocumentID identifies an uploaded document
type DocumentID string

// 🏷️ AttributeSet maps attribute group name -> field name -> value
type AttributeSet map[string]map[string]string

type attributeValue struct {
	Value string `json:"Value"`
}

type attributePatch struct {
	AttributeGroups map[string]map[string]attributeValue `json:"AttributeGroups"`
}

// MarshalJSON renders the attribute tree the documents endpoint expects:
// {"AttributeGroups": {group: {field: {"Value": v}}}}
func (a AttributeSet) MarshalJSON() ([]byte, error) {
	patch := attributePatch{AttributeGroups: make(map[string]map[string]attributeValue, len(a))}
	for group, fields := range a {
		out := make(map[string]attributeValue, len(fields))
		for field, v := range fields {
			out[field] = attributeValue{Value: v}
		}
		patch.AttributeGroups[group] = out
	}
	return json.Marshal(patch)
}

// Empty reports whether the set carries no fields at all.
func (a AttributeSet) Empty() bool {
	for _, fields := range a {
		if len(fields) > 0 {
			return false
		}
	}
	return true
}

// 📤 Upload describes one document upload
type Upload struct {
	FileName string
	Content  []byte
	Folder   FolderID
	MimeType string
}

type resourceRef struct {
	Href string `json:"Href"`
}

type folderCreate struct {
	Name         string      `json:"Name"`
	ParentFolder resourceRef `json:"ParentFolder"`
}
