package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/assetlinks/loader"
	"github.com/aspect-build/linktrust/internal/server"
	"github.com/aspect-build/linktrust/internal/store"
	"github.com/gin-gonic/gin"
)

const testAdminToken = "test-admin-token-1234567890"

// publisher is a fake web origin serving an asset link declaration.
type publisher struct {
	ts     *httptest.Server
	origin string
}

// newPublisher starts an origin whose declaration is produced lazily,
// so publishers can reference each other's origins.
func newPublisher(t *testing.T, declaration func() string) *publisher {
	t.Helper()
	p := &publisher{}
	p.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loader.WellKnownPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, declaration())
	}))
	t.Cleanup(p.ts.Close)
	p.origin = p.ts.URL
	return p
}

func webStatement(relation, site string) string {
	return fmt.Sprintf(`{"relation": [%q], "target": {"namespace": "web", "site": %q}}`, relation, site)
}

func setupTestServer(t *testing.T) (*httptest.Server, *store.Store, *assetlinks.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cache := assetlinks.NewCache(loader.NewWeb(nil), time.Hour)

	cfg := &server.Config{
		AdminToken:   testAdminToken,
		SnapshotKeep: 3,
	}

	router := server.NewRouter(cache, st, cfg)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts, st, cache
}

func adminRequest(method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

type relationsResponse struct {
	Source   string   `json:"source"`
	Relation string   `json:"relation"`
	Mutual   bool     `json:"mutual"`
	Targets  []string `json:"targets"`
}

func getRelations(t *testing.T, baseURL, path, source string) relationsResponse {
	t.Helper()
	resp, err := http.Get(baseURL + path + "?source=" + source)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	var parsed relationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return parsed
}

func TestResolveMutualRelationsOverHTTP(t *testing.T) {
	relation := assetlinks.RelationGetLoginCreds

	// A declares B and C. B declares A back; C declares nothing.
	var a, b, c *publisher
	a = newPublisher(t, func() string {
		return "[" + webStatement(relation, b.origin) + "," + webStatement(relation, c.origin) + "]"
	})
	b = newPublisher(t, func() string {
		return "[" + webStatement(relation, a.origin) + "]"
	})
	c = newPublisher(t, func() string { return "[]" })

	ts, _, _ := setupTestServer(t)

	uni := getRelations(t, ts.URL, "/v1/relations", a.origin)
	if len(uni.Targets) != 2 {
		t.Fatalf("unidirectional targets = %v, want 2", uni.Targets)
	}

	mutual := getRelations(t, ts.URL, "/v1/relations/mutual", a.origin)
	if len(mutual.Targets) != 1 || mutual.Targets[0] != b.origin {
		t.Fatalf("mutual targets = %v, want exactly [%s]", mutual.Targets, b.origin)
	}
	if !mutual.Mutual {
		t.Error("mutual flag not set in response")
	}
}

func TestCacheExportImportSaveOverHTTP(t *testing.T) {
	relation := assetlinks.RelationGetLoginCreds

	var a, b *publisher
	a = newPublisher(t, func() string { return "[" + webStatement(relation, b.origin) + "]" })
	b = newPublisher(t, func() string { return "[]" })

	ts, st, _ := setupTestServer(t)

	// Populate the cache, then export.
	getRelations(t, ts.URL, "/v1/relations", a.origin)

	resp, err := http.Get(ts.URL + "/v1/cache")
	if err != nil {
		t.Fatalf("GET /v1/cache: %v", err)
	}
	exported, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /v1/cache: status %d", resp.StatusCode)
	}

	// Import into a second server; it must answer from the imported
	// entry even though origin A is now stopped.
	ts2, _, _ := setupTestServer(t)
	resp, err = adminRequest(http.MethodPut, ts2.URL+"/v1/cache", exported)
	if err != nil {
		t.Fatalf("PUT /v1/cache: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /v1/cache: status %d", resp.StatusCode)
	}

	a.ts.Close()
	restored := getRelations(t, ts2.URL, "/v1/relations", a.origin)
	if len(restored.Targets) != 1 || restored.Targets[0] != b.origin {
		t.Fatalf("restored targets = %v", restored.Targets)
	}

	// Persist a snapshot.
	resp, err = adminRequest(http.MethodPost, ts.URL+"/v1/cache/save", nil)
	if err != nil {
		t.Fatalf("POST /v1/cache/save: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/cache/save: status %d", resp.StatusCode)
	}
	saved, _, err := st.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if string(saved) != string(exported) {
		t.Errorf("persisted snapshot differs from export:\n%s\n%s", saved, exported)
	}
}

func TestCacheMutationRequiresAdminToken(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/cache", bytes.NewReader([]byte("{}")))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /v1/cache: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("PUT /v1/cache without token: status %d, want 401", resp.StatusCode)
	}
}

func TestImportRejectsMalformedSnapshot(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, err := adminRequest(http.MethodPut, ts.URL+"/v1/cache", []byte(`["not","a","snapshot"]`))
	if err != nil {
		t.Fatalf("PUT /v1/cache: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed import: status %d, want 400", resp.StatusCode)
	}
}

func TestResolveRejectsInvalidSource(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/relations?source=not-a-domain")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid source: status %d, want 400", resp.StatusCode)
	}
}
