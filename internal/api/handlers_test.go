// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/casaflow/draftsync/internal/autosave"
	"github.com/casaflow/draftsync/internal/codec"
	"github.com/casaflow/draftsync/internal/config"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/progress"
	"github.com/casaflow/draftsync/internal/store"
	"github.com/casaflow/draftsync/internal/syncer"
)

// newTestServer builds the full router on an in-memory engine with no
// remote tier.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	local, err := store.OpenLocal(store.LocalConfig{InMemory: true}, codec.New())
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	engine := store.NewTieredStore(local, progress.NewCalculator())
	scheduler := autosave.NewScheduler(engine.SaveDraft,
		autosave.WithQuietInterval(10*time.Millisecond))
	t.Cleanup(scheduler.Close)

	monitor := syncer.NewMonitor()
	reconciler := syncer.NewReconciler(engine, monitor)

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitReqs:   10000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}

	handler := NewHandler(engine, scheduler, reconciler, monitor, cfg, nil)
	srv := httptest.NewServer(NewRouter(handler, &cfg.Server).Setup())
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func doJSON(t *testing.T, method, url, user string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(headerUserID, user)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func saveBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"wizard_type": "property",
		"form_data":   map[string]interface{}{"title": title},
	}
}

func TestSaveAndLoadDraft(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("Loft"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d, body %+v", resp.StatusCode, env.Error)
	}

	var saved models.SaveResult
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatalf("decode save result: %v", err)
	}
	if saved.DraftID == "" {
		t.Fatal("no draft id assigned")
	}
	if env.Metadata.Source != string(models.SourceLocal) {
		t.Errorf("save source = %q, want localStorage", env.Metadata.Source)
	}

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts/"+saved.DraftID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", resp.StatusCode)
	}
	var draft models.Draft
	if err := json.Unmarshal(env.Data, &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.Title != "Loft" {
		t.Errorf("Title = %q, want Loft", draft.Title)
	}
}

func TestSaveRequiresIdentity(t *testing.T) {
	srv := newTestServer(t)
	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "", saveBody("x"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "MISSING_IDENTITY" {
		t.Errorf("error = %+v, want MISSING_IDENTITY", env.Error)
	}
}

func TestSaveValidatesBody(t *testing.T) {
	srv := newTestServer(t)
	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1",
		map[string]interface{}{"form_data": map[string]interface{}{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
}

func TestLoadMissingDraft(t *testing.T) {
	srv := newTestServer(t)
	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts/ghost", "u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestLoadOtherUsersDraft(t *testing.T) {
	srv := newTestServer(t)
	_, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("mine"))
	var saved models.SaveResult
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}

	// Without a remote tier an unowned draft is simply absent.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts/"+saved.DraftID, "u2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAutosaveDebounces(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts/autosave", "u1", saveBody("draft"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("autosave status = %d, error %+v", resp.StatusCode, env.Error)
	}
	var saved models.SaveResult
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}
	if !saved.Success || saved.DraftID == "" {
		t.Errorf("autosave result = %+v", saved)
	}
}

func TestListDrafts(t *testing.T) {
	srv := newTestServer(t)
	for _, title := range []string{"a", "b", "c"} {
		doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody(title))
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u2", saveBody("other"))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts?limit=2", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var drafts []*models.Draft
	if err := json.Unmarshal(env.Data, &drafts); err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 2 {
		t.Errorf("page size = %d, want 2", len(drafts))
	}
	if env.Metadata.Total != 3 {
		t.Errorf("Total = %d, want 3", env.Metadata.Total)
	}
}

func TestDeleteDraft(t *testing.T) {
	srv := newTestServer(t)
	_, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("doomed"))
	var saved models.SaveResult
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/drafts/"+saved.DraftID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts/"+saved.DraftID, "u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("load after delete = %d, want 404", resp.StatusCode)
	}

	// Deleting again stays a success.
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/drafts/"+saved.DraftID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second delete = %d, want 200", resp.StatusCode)
	}
}

func TestHasDraft(t *testing.T) {
	srv := newTestServer(t)
	_, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("x"))
	var saved models.SaveResult
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}

	_, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/drafts/"+saved.DraftID+"/exists", "u1", nil)
	var data map[string]bool
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data["exists"] {
		t.Error("exists = false for a saved draft")
	}
}

func TestMediaWithoutRemote(t *testing.T) {
	srv := newTestServer(t)
	resp, env := doJSON(t, http.MethodPut, srv.URL+"/api/v1/drafts/d1/media", "u1",
		map[string]interface{}{"media": []map[string]interface{}{{"url": "https://img.example/1.jpg"}}})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "REMOTE_UNAVAILABLE" {
		t.Errorf("error = %+v, want REMOTE_UNAVAILABLE", env.Error)
	}
}

func TestConnectivityToggle(t *testing.T) {
	srv := newTestServer(t)

	online := false
	resp, env := doJSON(t, http.MethodPut, srv.URL+"/api/v1/connectivity", "u1",
		map[string]interface{}{"online": &online})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var data map[string]bool
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["online"] {
		t.Error("monitor still online after toggle")
	}
}

func TestSyncOffline(t *testing.T) {
	srv := newTestServer(t)
	online := false
	doJSON(t, http.MethodPut, srv.URL+"/api/v1/connectivity", "u1",
		map[string]interface{}{"online": &online})

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/sync", "u1", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("sync while offline = %d, want 503", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "NOT_ONLINE" {
		t.Errorf("error = %+v, want NOT_ONLINE", env.Error)
	}
}

func TestDiagnostics(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("x"))

	_, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/diagnostics", "u1", nil)
	var diag models.Diagnostics
	if err := json.Unmarshal(env.Data, &diag); err != nil {
		t.Fatal(err)
	}
	if diag.MemoryCacheSize != 1 || diag.LocalStorageKeys != 1 {
		t.Errorf("diagnostics = %+v", diag)
	}
}

func TestClearCache(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", "u1", saveBody("x"))

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/cache", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear cache = %d", resp.StatusCode)
	}

	_, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/diagnostics", "u1", nil)
	var diag models.Diagnostics
	if err := json.Unmarshal(env.Data, &diag); err != nil {
		t.Fatal(err)
	}
	if diag.MemoryCacheSize != 0 {
		t.Errorf("cache size after clear = %d, want 0", diag.MemoryCacheSize)
	}
	if diag.LocalStorageKeys != 1 {
		t.Errorf("local keys after clear = %d, want 1", diag.LocalStorageKeys)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live = %d", resp.StatusCode)
	}
	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready = %d", resp.StatusCode)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["remote"] != "disabled" {
		t.Errorf("remote = %v, want disabled", data["remote"])
	}
}
