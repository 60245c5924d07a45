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

package utils

import (
	"log/slog"
	"os"

	"github.com/go-logr/logr"
)

const TracerName = "github.com/stormspotter-go/stormspotter"

// DefaultLogger returns a structured JSON logger writing to stderr,
// suitable as the fallback when no logger has been attached to a context.
func DefaultLogger() logr.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
	})
	return logr.FromSlogHandler(handler)
}

// NewLogger builds the process-wide logger honoring a verbosity level,
// where verbosity follows the logr convention (higher is more verbose).
func NewLogger(verbosity int) logr.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(verbosity * -1),
	})
	return logr.FromSlogHandler(handler)
}
