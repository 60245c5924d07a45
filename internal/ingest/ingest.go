// Package ingest drives the end-to-end ingestor pipeline: unpack an
// archive produced by the collector, read every per-class record store
// file, dispatch each record to the Entity Model, and submit the result
// to the Graph Writer.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stormspotter-go/stormspotter/internal/aad"
	"github.com/stormspotter-go/stormspotter/internal/archive"
	"github.com/stormspotter-go/stormspotter/internal/entity"
	"github.com/stormspotter-go/stormspotter/internal/graphwriter"
	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/telemetry"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// rbacClass is the file stem the collector's RBAC collector writes its
// records under; it sorts last so that every node a role assignment
// might reference has already had a chance to MERGE into existence.
const rbacClass = "rbac"

// Run unpacks archivePath into a scratch directory under destDir,
// processes every .sqlite file it contains in AAD-then-ARM-then-RBAC
// order, and writes everything to writer. Non-fatal per-file or
// per-record errors are logged and skipped; Run only returns an error
// for failures that abort the whole ingest (unpack, directory listing).
func Run(ctx context.Context, archivePath, destDir string, writer *graphwriter.Writer) error {
	logger := utils.LoggerFromContext(ctx)

	scratch, err := os.MkdirTemp(destDir, "stormspotter-ingest-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := archive.Unpack(archivePath, scratch); err != nil {
		return fmt.Errorf("unpacking %s: %w", archivePath, err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return fmt.Errorf("reading unpacked archive: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sqlite") {
			files = append(files, e.Name())
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return fileOrder(files[i]) < fileOrder(files[j])
	})

	for _, name := range files {
		class := strings.TrimSuffix(name, ".sqlite")
		path := filepath.Join(scratch, name)

		fileLogger := logger.WithValues(utils.LogValues{}.AddClassName(class)...)
		fileLogger.Info("ingesting file")

		err := recordstore.ReadAll(path, func(raw map[string]any) error {
			processRecord(class, raw, writer)
			return nil
		})
		if err != nil {
			fileLogger.Error(err, "failed to read record store file")
		}
	}

	return nil
}

// fileOrder ranks a class file name for ingest ordering: AAD classes
// first, rbac.sqlite last, every generic per-subscription file in
// between. Ordering is a performance nicety, not a correctness
// requirement, since every MERGE targets both ends of an edge.
func fileOrder(name string) int {
	class := strings.TrimSuffix(name, ".sqlite")
	if class == rbacClass {
		return 2
	}
	for _, c := range aad.AllClasses() {
		if strings.EqualFold(class, c) {
			return 0
		}
	}
	return 1
}

func processRecord(class string, raw map[string]any, writer *graphwriter.Writer) {
	var result entity.Result

	switch {
	case class == rbacClass:
		result = deriveRBACRecord(raw)
	case isAADClass(class):
		// File stems are lowercased by the record store; DeriveAAD keys
		// on the canonical class name.
		for _, c := range aad.AllClasses() {
			if strings.EqualFold(class, c) {
				class = c
			}
		}
		result = entity.DeriveAAD(class, raw)
	default:
		armType, ok := raw["type"].(string)
		if !ok {
			return
		}
		result = entity.DeriveARM(armType, raw)
	}

	for _, n := range result.Nodes {
		telemetry.NodesWritten.WithLabelValues(n.FamilyLabel).Inc()
	}
	for _, r := range result.Relationships {
		telemetry.RelationshipsWritten.WithLabelValues(r.RelationName).Inc()
	}
	writer.InsertNode(result)
}

func isAADClass(class string) bool {
	for _, c := range aad.AllClasses() {
		if strings.EqualFold(class, c) {
			return true
		}
	}
	return false
}

func deriveRBACRecord(raw map[string]any) entity.Result {
	principalID, _ := raw["principal_id"].(string)
	scope, _ := raw["scope"].(string)
	roleName, _ := raw["roleName"].(string)
	roleType, _ := raw["roleType"].(string)
	description, _ := raw["roleDescription"].(string)

	var permissions []map[string]any
	if raw["permissions"] != nil {
		if list, ok := raw["permissions"].([]any); ok {
			for _, p := range list {
				if m, ok := p.(map[string]any); ok {
					permissions = append(permissions, m)
				}
			}
		}
	}

	return entity.DeriveRBAC(principalID, scope, roleName, roleType, description, permissions)
}
