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

// Package config loads the migration settings.
//
// 🎯 Purpose:
// - Reads the config file in YAML, HCL or JSON
// - Validates required settings
// - Fills in retry and batching defaults
//
// 🔄 Flow:
// 1. Read picks a parser by file extension
// 2. The parser decodes the file, rejecting unknown fields
// 3. Command line flags override what was read
// 4. Validate fills defaults and normalizes urls and paths
//
// 🤝 Interfaces:
// - Parser: format-specific decoding, registered at init
//
// 📝 Sections:
// - clm: api and upload urls, account, root folder, logical path prefix, request timeout
// - source: local tree root and ignore globs
// - migration: batch size, attempt ceiling, folder backoff base, upload delay, extension repair
// - credentials: company plus an env var or a remote data store
// - metadata: the sheet and the column to attribute mapping
// - log_dir: where the diagnostic journal goes
//
// 🔍 Example (HCL):
//
//	clm {
//	  api_url        = "https://api.example.com/v2"
//	  upload_url     = "https://apiupload.example.com/v2"
//	  account_id     = env("CLM_ACCOUNT_ID")
//	  root_folder_id = "root-1"
//	  path_prefix    = "/Migracao"
//	}
//
//	source {
//	  root   = "./Files/clientes"
//	  ignore = ["**/.DS_Store"]
//	}
//
//	credentials {
//	  token_env = "CLM_TOKEN"
//	}
package config
