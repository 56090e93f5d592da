package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/furyload/internal/sse"
	"github.com/starford/furyload/internal/testutil"
)

// testEnv builds a router over the sample content. A non-empty token
// enables auth.
func testEnv(t *testing.T, authToken string) (*testutil.Site, http.Handler) {
	t.Helper()
	site := testutil.NewSite(t, testutil.SampleFiles())
	router := NewRouter(site.Service, RouterOptions{
		AuthEnabled: authToken != "",
		Token:       authToken,
	})
	return site, router
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ListingResponse
	decode(t, w, &resp)
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3 (demo1.md excluded)", resp.Total)
	}
	if len(resp.Groups) != 2 || resp.Groups[0].Key != "editor" || resp.Groups[1].Key != "server" {
		t.Fatalf("groups = %+v", resp.Groups)
	}
	first := resp.Groups[0].Documents[0]
	if first.Path != "posts/md/guide.md" || first.Title != "guide" {
		t.Errorf("first document = %+v", first)
	}
}

func TestGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/documents/posts/md/guide.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Error("missing ETag")
	}
	var doc DocumentResponse
	decode(t, w, &doc)
	if doc.Title != "Markdown Guide" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Outline) != 2 || doc.Outline[1].Anchor != "toc-1" {
		t.Errorf("outline = %+v", doc.Outline)
	}
	if !strings.Contains(doc.HTML, `src="/raw/posts/md/img/logo.png"`) {
		t.Errorf("image not resolved:\n%s", doc.HTML)
	}
	if doc.LastModified.IsZero() {
		t.Error("last_modified missing for a local file")
	}

	w = do(t, router, http.MethodGet, "/documents/posts/md/guide.md", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", w.Code)
	}
}

func TestGetDocument_EncodedPath(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/documents/posts%2Fvi%2Fvim.md", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestGetDocument_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/documents/posts/md/nope.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
	var body errResponse
	decode(t, w, &body)
	if body.Path != "posts/md/nope.md" {
		t.Errorf("error path = %q", body.Path)
	}

	w = do(t, router, http.MethodGet, "/documents/", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty path = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/documents/posts%2F..%2F..%2Fsecret.md", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal = %d, want 400", w.Code)
	}
}

func TestGetOutline(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/outline/posts/svn/svn.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out OutlineResponse
	decode(t, w, &out)
	if out.Title != "Subversion" || len(out.Entries) != 2 || out.Entries[0].Text != "Central" {
		t.Errorf("outline = %+v", out)
	}

	w = do(t, router, http.MethodGet, "/outline/posts/vi/vim.md", nil)
	decode(t, w, &out)
	if len(out.Entries) != 0 {
		t.Errorf("single heading outline = %+v, want empty", out.Entries)
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/resolve?src=../../images/x.png&doc=posts/md/guide.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ResolveResponse
	decode(t, w, &resp)
	if resp.URL != "/raw/images/x.png" {
		t.Errorf("url = %q", resp.URL)
	}

	w = do(t, router, http.MethodGet, "/resolve?src=https://cdn.example.com/a.png&doc=posts/md/guide.md", nil)
	decode(t, w, &resp)
	if resp.URL != "https://cdn.example.com/a.png" {
		t.Errorf("absolute url changed: %q", resp.URL)
	}

	w = do(t, router, http.MethodGet, "/resolve?src=a.png", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing doc = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	site, router := testEnv(t, "")
	if _, err := site.Service.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	w := do(t, router, http.MethodGet, "/search?q=modal", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "posts/vi/vim.md" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestRefresh_Auth(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/refresh", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodPost, "/refresh", map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	w = do(t, router, http.MethodPost, "/refresh", map[string]string{"Authorization": "Bearer secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("authed = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RefreshResponse
	decode(t, w, &resp)
	if resp.Groups != 2 || resp.Documents != 3 || resp.Changes != 3 {
		t.Errorf("refresh = %+v", resp)
	}

	// Reads stay public.
	w = do(t, router, http.MethodGet, "/documents", nil)
	if w.Code != http.StatusOK {
		t.Errorf("public read = %d, want 200", w.Code)
	}
}

func TestRefresh_AuthDisabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/refresh", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodOptions, "/documents", map[string]string{
		"Origin":                        "https://docs.example.com",
		"Access-Control-Request-Method": http.MethodGet,
	})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Errorf("missing Access-Control-Allow-Origin, headers = %v", w.Header())
	}
}

func TestEventsMounted(t *testing.T) {
	site := testutil.NewSite(t, testutil.SampleFiles())
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	router := NewRouter(site.Service, RouterOptions{Events: broker})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "event: connected") {
		t.Errorf("events body = %q", w.Body.String())
	}
}

// Asset tests.

func TestServeAsset(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "posts", "md", "img", "logo.png")
	_ = os.MkdirAll(filepath.Dir(img), 0o755)
	_ = os.WriteFile(img, []byte("PNG"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644)

	h := NewAssetHandler(dir)
	router := chiRouterWithAssets(h)

	w := do(t, router, http.MethodGet, "/raw/posts/md/img/logo.png", nil)
	if w.Code != http.StatusOK || w.Body.String() != "PNG" {
		t.Errorf("asset = %d %q", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/raw/posts/md/img/none.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/raw/.env", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("hidden file = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodGet, "/raw/posts/md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("directory = %d, want 404", w.Code)
	}
}

func chiRouterWithAssets(h *AssetHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/raw/*", h.ServeFile)
	return r
}
