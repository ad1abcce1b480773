package rest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forward-louisville/glossary/internal/glossary/editorgrant"
	"github.com/forward-louisville/glossary/internal/glossary/importer"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
)

func newTestHandler(t *testing.T, auth AuthConfig) *Handler {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "glossary.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	svc := service.New(store)
	return NewHandler(svc, importer.New(svc), auth)
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	resp := doJSON(t, mux, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
	}
}

func TestCreateGetDeleteTerm(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	resp := doJSON(t, mux, http.MethodPost, "/v1/terms",
		`{"name": "Living Wage", "definition": "Pay that covers basic local costs.", "category": "Jobs & Wages", "priority": "campaign"}`, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d, body %s", resp.Code, http.StatusCreated, resp.Body)
	}
	var created termResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Slug != "living-wage" || created.Priority != "campaign" {
		t.Fatalf("created = %+v, want living-wage campaign", created)
	}

	resp = doJSON(t, mux, http.MethodGet, "/v1/terms/living-wage", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", resp.Code, http.StatusOK)
	}

	resp = doJSON(t, mux, http.MethodDelete, "/v1/terms/living-wage", "", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.Code, http.StatusNoContent)
	}

	resp = doJSON(t, mux, http.MethodGet, "/v1/terms/living-wage", "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want %d", resp.Code, http.StatusNotFound)
	}
}

func TestCreateTermValidation(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	resp := doJSON(t, mux, http.MethodPost, "/v1/terms", `{"definition": "no name"}`, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != "missing name field" {
		t.Fatalf("error = %q, want %q", payload["error"], "missing name field")
	}

	resp = doJSON(t, mux, http.MethodPost, "/v1/terms", `{"name": "X"`, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
}

func TestPatchTerm(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	resp := doJSON(t, mux, http.MethodPost, "/v1/terms",
		`{"name": "Upzoning", "definition": "Changing zoning rules to allow denser housing."}`, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.Code, resp.Body)
	}

	resp = doJSON(t, mux, http.MethodPatch, "/v1/terms/upzoning", `{"featured": true}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", resp.Code, resp.Body)
	}
	var updated termResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if !updated.Featured {
		t.Fatal("Featured = false, want true")
	}
	if updated.Definition != "Changing zoning rules to allow denser housing." {
		t.Fatalf("Definition changed unexpectedly: %q", updated.Definition)
	}

	resp = doJSON(t, mux, http.MethodPatch, "/v1/terms/no-such-term", `{"featured": true}`, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("patch missing status = %d, want %d", resp.Code, http.StatusNotFound)
	}
}

func TestListTermsPagination(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		resp := doJSON(t, mux, http.MethodPost, "/v1/terms",
			`{"name": "`+name+`", "definition": "A test entry."}`, nil)
		if resp.Code != http.StatusCreated {
			t.Fatalf("create %q status = %d", name, resp.Code)
		}
	}

	resp := doJSON(t, mux, http.MethodGet, "/v1/terms?page_size=2", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", resp.Code, resp.Body)
	}
	var page listResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(page.Terms) != 2 || page.NextPageToken == "" {
		t.Fatalf("page = %+v, want 2 terms with token", page)
	}

	resp = doJSON(t, mux, http.MethodGet, "/v1/terms?page_size=2&page_token="+page.NextPageToken, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("second page status = %d, body %s", resp.Code, resp.Body)
	}
	page = listResponse{}
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(page.Terms) != 1 || page.NextPageToken != "" {
		t.Fatalf("second page = %+v, want final single term", page)
	}

	resp = doJSON(t, mux, http.MethodGet, "/v1/terms?page_size=oops", "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad page_size status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
}

func TestImportRoute(t *testing.T) {
	t.Parallel()
	mux := newTestHandler(t, AuthConfig{}).Mux()

	resp := doJSON(t, mux, http.MethodPost, "/v1/terms:import",
		`[{"name":"Living Wage","definition":"Pay that covers basic local costs."}, {"definition":"missing name"}]`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", resp.Code, resp.Body)
	}
	var report importer.Report
	if err := json.Unmarshal(resp.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Total != 2 || report.Imported != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want total 2, imported 1, skipped 1", report)
	}
	if len(report.Errors) != 1 || report.Errors[0] != "item 2: missing name field" {
		t.Fatalf("Errors = %v, want [item 2: missing name field]", report.Errors)
	}

	resp = doJSON(t, mux, http.MethodPost, "/v1/terms:import", `[{"name": "Broken"`, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed import status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
}

func TestWriteRoutesRequireGrant(t *testing.T) {
	t.Parallel()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := AuthConfig{
		Enabled: true,
		Grant:   editorgrant.Config{Issuer: "glossary", Audience: "glossary-api", Key: pub},
	}
	mux := newTestHandler(t, auth).Mux()

	body := `{"name": "Living Wage", "definition": "Pay that covers basic local costs."}`

	resp := doJSON(t, mux, http.MethodPost, "/v1/terms", body, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("no grant status = %d, want %d", resp.Code, http.StatusUnauthorized)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer not-a-token")
	resp = doJSON(t, mux, http.MethodPost, "/v1/terms", body, header)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad grant status = %d, want %d", resp.Code, http.StatusUnauthorized)
	}

	grant, err := editorgrant.Mint(priv, editorgrant.MintInput{
		Issuer:   "glossary",
		Audience: "glossary-api",
		StaffID:  "staff-1",
		JWTID:    "jti-1",
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("mint grant: %v", err)
	}
	header.Set("Authorization", "Bearer "+grant)
	resp = doJSON(t, mux, http.MethodPost, "/v1/terms", body, header)
	if resp.Code != http.StatusCreated {
		t.Fatalf("granted status = %d, want %d, body %s", resp.Code, http.StatusCreated, resp.Body)
	}

	resp = doJSON(t, mux, http.MethodGet, "/v1/terms/living-wage", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("public read status = %d, want %d", resp.Code, http.StatusOK)
	}
}
