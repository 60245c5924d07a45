package graphwriter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormspotter-go/stormspotter/internal/entity"
)

// fakeSession embeds the interface so only the methods this package
// actually calls need overriding; anything else panics if exercised.
type fakeSession struct {
	neo4j.SessionWithContext

	mu      sync.Mutex
	queries []string
	params  []map[string]any
	failOn  func(cypher string) bool
}

func (f *fakeSession) Run(_ context.Context, cypher string, params map[string]any, _ ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, cypher)
	f.params = append(f.params, params)
	if f.failOn != nil && f.failOn(cypher) {
		return nil, fmt.Errorf("simulated syntax error")
	}
	return nil, nil
}

func (f *fakeSession) Close(context.Context) error { return nil }

type fakeDriver struct {
	neo4j.DriverWithContext
}

func (fakeDriver) Close(context.Context) error { return nil }

func newTestWriter(session *fakeSession) *Writer {
	return &Writer{
		driver:  fakeDriver{},
		session: session,
		queue:   make(chan item, 64),
	}
}

func TestWriteNodeMergesWithFamilyAndClassLabels(t *testing.T) {
	session := &fakeSession{}
	w := newTestWriter(session)

	err := w.writeNode(context.Background(), entity.Node{
		FamilyLabel: entity.FamilyARMResource,
		ClassLabel:  "VirtualMachine",
		ID:          "vm-1",
		Properties:  map[string]any{"name": "vm-1"},
	})
	require.NoError(t, err)

	require.Len(t, session.queries, 1)
	assert.Contains(t, session.queries[0], "MERGE (n:VirtualMachine {id: $id})")
	assert.Contains(t, session.queries[0], "n:"+entity.FamilyARMResource)
	assert.Equal(t, "vm-1", session.params[0]["id"])
}

func TestInsertNodeEnqueuesNodesBeforeRelationships(t *testing.T) {
	session := &fakeSession{}
	w := newTestWriter(session)

	w.InsertNode(entity.Result{
		Nodes: []entity.Node{
			{FamilyLabel: entity.FamilyARMResource, ClassLabel: "ResourceGroup", ID: "rg-1"},
		},
		Relationships: []entity.Relationship{
			{RelationName: entity.RelContains, SourceID: "sub-1", TargetID: "rg-1"},
		},
	})
	close(w.queue)

	var kinds []string
	for it := range w.queue {
		if it.node != nil {
			kinds = append(kinds, "node")
		} else {
			kinds = append(kinds, "rel")
		}
	}
	assert.Equal(t, []string{"node", "rel"}, kinds)
}

func TestRunDropsFailingStatementsAndRecordsLastError(t *testing.T) {
	session := &fakeSession{failOn: func(cypher string) bool { return true }}
	w := newTestWriter(session)

	w.wg.Add(1)
	go w.run(context.Background())

	w.InsertNode(entity.Result{
		Nodes: []entity.Node{{FamilyLabel: entity.FamilyAADObject, ClassLabel: "User", ID: "u-1"}},
	})
	close(w.queue)
	w.wg.Wait()

	assert.Error(t, w.lastErr)
}
