package aad

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormspotter-go/stormspotter/internal/tokengate"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

type fakeProvider struct{}

func (fakeProvider) GetToken(context.Context, string) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func (fakeProvider) Underlying() azcore.TokenCredential { return nil }

type fakeStore struct {
	mu      sync.Mutex
	records map[string][]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]map[string]any)}
}

func (s *fakeStore) Append(class string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[class] = append(s.records[class], record.(map[string]any))
	return nil
}

func newTestEnumerator(t *testing.T, mux *http.ServeMux) (*Enumerator, *fakeStore) {
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := utils.ContextWithLogger(context.Background(), testr.New(t))
	gate := tokengate.New(ctx, fakeProvider{}, "https://graph.microsoft.com", "aad")
	require.NoError(t, gate.Wait(ctx))

	client := NewClient(server.URL, server.Client(), gate)
	store := newFakeStore()
	return NewEnumerator(client, store, "tenant-1"), store
}

func jsonHandler(t *testing.T, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}
}

func TestRunProbesAccessAndEnumeratesClasses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me", jsonHandler(t, map[string]any{"id": "me"}))
	mux.HandleFunc("/v1.0/users", jsonHandler(t, map[string]any{
		"value": []map[string]any{{"id": "user-1"}},
	}))
	mux.HandleFunc("/v1.0/groups", jsonHandler(t, map[string]any{
		"value": []map[string]any{{"id": "group-1"}},
	}))
	mux.HandleFunc("/v1.0/groups/group-1/members", jsonHandler(t, map[string]any{
		"value": []map[string]any{{"id": "user-1"}},
	}))
	mux.HandleFunc("/v1.0/groups/group-1/owners", jsonHandler(t, map[string]any{"value": []map[string]any{}}))
	mux.HandleFunc("/v1.0/servicePrincipals", jsonHandler(t, map[string]any{"value": []map[string]any{}}))
	mux.HandleFunc("/v1.0/applications", jsonHandler(t, map[string]any{"value": []map[string]any{}}))
	mux.HandleFunc("/v1.0/directoryRoles", jsonHandler(t, map[string]any{"value": []map[string]any{}}))

	enumerator, store := newTestEnumerator(t, mux)
	require.NoError(t, enumerator.Run(context.Background()))

	require.Len(t, store.records[ClassUser], 1)
	require.Len(t, store.records[ClassGroup], 1)
	assert.Equal(t, []string{"user-1"}, store.records[ClassGroup][0]["members"])
}

func TestRunAbortsOnFailedAccessProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me", jsonHandler(t, map[string]any{
		"error": map[string]any{"code": "Forbidden"},
	}))

	enumerator, store := newTestEnumerator(t, mux)
	require.NoError(t, enumerator.Run(context.Background()))
	assert.Empty(t, store.records)
}

func TestFirstPartyServicePrincipalSkipsOwnerExpansion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me", jsonHandler(t, map[string]any{"id": "me"}))
	mux.HandleFunc("/v1.0/servicePrincipals/sp-1/owners", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("owner expansion should have been skipped for a first-party service principal")
	})

	enumerator, _ := newTestEnumerator(t, mux)
	value := map[string]any{
		"id":                     "sp-1",
		"appOwnerOrganizationId": firstPartyTenantID,
	}
	parsed, err := enumerator.parse(context.Background(), ClassServicePrincipal, value)
	require.NoError(t, err)
	assert.Equal(t, []string{}, parsed["owners"])
}

func TestFirstPartyApplicationSkipsOwnerExpansion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me", jsonHandler(t, map[string]any{"id": "me"}))
	mux.HandleFunc("/v1.0/applications/app-1/owners", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("owner expansion should have been skipped for a first-party application")
	})

	enumerator, _ := newTestEnumerator(t, mux)
	value := map[string]any{
		"id":                     "app-1",
		"appOwnerOrganizationId": firstPartyTenantID,
	}
	parsed, err := enumerator.parse(context.Background(), ClassApplication, value)
	require.NoError(t, err)
	assert.Equal(t, []string{}, parsed["owners"])
}

func TestBackfillFetchesExactlyNamedIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/users/user-1", jsonHandler(t, map[string]any{"id": "user-1"}))

	enumerator, store := newTestEnumerator(t, mux)
	err := enumerator.Backfill(context.Background(), map[string][]string{ClassUser: {"user-1"}})
	require.NoError(t, err)
	require.Len(t, store.records[ClassUser], 1)
}
