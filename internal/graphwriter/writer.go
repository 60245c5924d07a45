// Package graphwriter is the ingestor's single serialized MERGE-based
// upsert queue over a Neo4j-compatible graph store. One goroutine owns
// the Bolt session; everything else submits work through a channel.
package graphwriter

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/stormspotter-go/stormspotter/internal/entity"
	"github.com/stormspotter-go/stormspotter/internal/telemetry"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// item is either a node or a relationship, enqueued in derivation order.
type item struct {
	node *entity.Node
	rel  *entity.Relationship
}

// Writer serializes every MERGE statement onto one Neo4j session.
type Writer struct {
	driver  neo4j.DriverWithContext
	session neo4j.SessionWithContext

	queue chan item
	wg    sync.WaitGroup

	mu      sync.Mutex
	lastErr error
}

// Open connects to a Bolt-family graph store, creates the per-family
// uniqueness constraints (swallowing already-exists errors), and starts
// the writer goroutine.
func Open(ctx context.Context, uri, user, password string) (*Writer, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connecting to graph store: %w", err)
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})

	w := &Writer{
		driver:  driver,
		session: session,
		queue:   make(chan item, 1024),
	}

	if err := w.ensureConstraints(ctx); err != nil {
		session.Close(ctx)
		driver.Close(ctx)
		return nil, err
	}

	w.wg.Add(1)
	go w.run(ctx)

	return w, nil
}

func (w *Writer) ensureConstraints(ctx context.Context) error {
	for _, family := range []string{entity.FamilyAADObject, entity.FamilyARMResource} {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", family)
		if _, err := w.session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("creating uniqueness constraint for %s: %w", family, err)
		}
	}
	return nil
}

// InsertNode enqueues a node for MERGE, followed by all of its derived
// relationships, so that every statement from one ingested Record is
// enqueued together before the next Record's statements begin.
func (w *Writer) InsertNode(result entity.Result) {
	for i := range result.Nodes {
		w.queue <- item{node: &result.Nodes[i]}
		telemetry.GraphQueueDepth.Set(float64(len(w.queue)))
	}
	for i := range result.Relationships {
		w.queue <- item{rel: &result.Relationships[i]}
		telemetry.GraphQueueDepth.Set(float64(len(w.queue)))
	}
}

// Close drains the queue and tears down the session.
func (w *Writer) Close(ctx context.Context) error {
	close(w.queue)
	w.wg.Wait()

	w.session.Close(ctx)
	w.driver.Close(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Writer) run(ctx context.Context) {
	defer w.wg.Done()
	logger := utils.LoggerFromContext(ctx)

	for it := range w.queue {
		var err error
		switch {
		case it.node != nil:
			err = w.writeNode(ctx, *it.node)
		case it.rel != nil:
			err = w.writeRelationship(ctx, *it.rel)
		}
		if err != nil {
			// GraphSyntaxError policy: log and drop the offending
			// statement, never block the queue.
			logger.Error(err, "dropping graph statement")
			w.recordErr(err)
			telemetry.GraphWriteErrors.Inc()
		}
		telemetry.GraphQueueDepth.Set(float64(len(w.queue)))
	}
}

func (w *Writer) recordErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastErr == nil {
		w.lastErr = err
	}
}

func (w *Writer) writeNode(ctx context.Context, n entity.Node) error {
	setClause, params := propertySetClause("n", n.Properties)
	params["id"] = n.ID

	query := fmt.Sprintf(
		"MERGE (n:%s {id: $id}) SET %s, n:%s",
		sanitizeLabel(n.ClassLabel), setClause, sanitizeLabel(n.FamilyLabel))

	_, err := w.session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("merging node %s:%s: %w", n.FamilyLabel, n.ID, err)
	}
	return nil
}

func (w *Writer) writeRelationship(ctx context.Context, r entity.Relationship) error {
	setClause, params := propertySetClause("r", r.Properties)
	params["sourceID"] = r.SourceID
	params["targetID"] = r.TargetID

	query := fmt.Sprintf(
		"MERGE (to:%s {id: $targetID}) MERGE (from:%s {id: $sourceID}) MERGE (from)-[r:%s]->(to) SET %s",
		sanitizeLabel(r.TargetFamilyLabel), sanitizeLabel(r.SourceFamilyLabel), sanitizeRelation(r.RelationName), setClause)

	_, err := w.session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("merging relationship %s -%s-> %s: %w", r.SourceID, r.RelationName, r.TargetID, err)
	}
	return nil
}
