// Copyright 2025 Microsoft Corporation
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

// Package version holds build-time version metadata, overridden via
// -ldflags "-X github.com/stormspotter-go/stormspotter/internal/version.CommitSHA=...".
package version

var (
	// CommitSHA is the VCS commit this binary was built from.
	CommitSHA = "dev"
	// Version is the release tag, if any.
	Version = "dev"
)
