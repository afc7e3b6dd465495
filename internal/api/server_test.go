package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"autoclick/internal/config"
	"autoclick/internal/hotkey"
	"autoclick/internal/input"
	"autoclick/internal/router"
	"autoclick/internal/status"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := config.NewManagerAt(filepath.Join(t.TempDir(), "config.json"))
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	bus := status.NewBus()
	listener := hotkey.NewListener()
	t.Cleanup(listener.Close)
	rt := router.NewRouter(listener, bus, input.NewInjector())
	return NewServer(mgr, rt, bus)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestProfileUpsertAndList(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"p1","name":"test","start_hotkey":"CTRL+F1","end_hotkey":"CTRL+F2","is_active":true,"is_saved":true,"cursor_interval_ms":100,"cursor_button":"left"}`
	rec := httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("POST", "/api/profiles", strings.NewReader(payload)))
	if rec.Code != 200 {
		t.Fatalf("POST status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("GET", "/api/profiles", nil))
	var profiles []config.Profile
	if err := json.NewDecoder(rec.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "p1" {
		t.Fatalf("profiles = %+v", profiles)
	}

	// saved+active profile should now have hotkeys registered
	ids := s.router.RegisteredIDs()
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("registered = %v", ids)
	}
}

func TestProfileUpsertRejectsMissingID(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("POST", "/api/profiles", strings.NewReader(`{"name":"x"}`)))
	if rec.Code != 400 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProfileDeleteUnregisters(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"p1","name":"test","start_hotkey":"CTRL+F1","end_hotkey":"#","is_active":true,"is_saved":true}`
	rec := httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("POST", "/api/profiles", strings.NewReader(payload)))
	if rec.Code != 200 {
		t.Fatalf("POST status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("DELETE", "/api/profiles?id=p1", nil))
	if rec.Code != 200 {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if len(s.router.RegisteredIDs()) != 0 {
		t.Fatal("profile should be unregistered after delete")
	}
	if s.configMgr.GetProfile("p1") != nil {
		t.Fatal("profile should be gone from config")
	}
}

func TestClickPathAttach(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"p1","name":"test","start_hotkey":"CTRL+F1","end_hotkey":"#","is_active":true,"is_saved":true}`
	rec := httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("POST", "/api/profiles", strings.NewReader(payload)))
	if rec.Code != 200 {
		t.Fatalf("POST status = %d", rec.Code)
	}

	pathJSON := `[{"x":10,"y":20,"button":"left","click_count":1,"delay_ms":0}]`
	rec = httptest.NewRecorder()
	s.handleClickPath(rec, httptest.NewRequest("POST", "/api/profiles/path?id=p1", strings.NewReader(pathJSON)))
	if rec.Code != 200 {
		t.Fatalf("path POST status = %d body = %s", rec.Code, rec.Body.String())
	}

	p := s.configMgr.GetProfile("p1")
	if p == nil || len(p.ClickPath) != 1 || p.Mode() != config.ModeClickPath {
		t.Fatalf("profile after attach = %+v", p)
	}

	rec = httptest.NewRecorder()
	s.handleClickPath(rec, httptest.NewRequest("POST", "/api/profiles/path?id=ghost", strings.NewReader(pathJSON)))
	if rec.Code != 404 {
		t.Fatalf("status = %d for unknown profile", rec.Code)
	}
}

func TestRunRequiresValidAction(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleRun(rec, httptest.NewRequest("POST", "/api/run?profile=p1&action=bounce", nil))
	if rec.Code != 400 {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleRun(rec, httptest.NewRequest("POST", "/api/run?action=start", nil))
	if rec.Code != 400 {
		t.Fatalf("status = %d", rec.Code)
	}

	// start on an unknown profile is a benign no-op
	rec = httptest.NewRecorder()
	s.handleRun(rec, httptest.NewRequest("POST", "/api/run?profile=ghost&action=start", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusReportsRegisteredProfiles(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"p1","name":"test","start_hotkey":"CTRL+F1","end_hotkey":"#","is_active":true,"is_saved":true}`
	rec := httptest.NewRecorder()
	s.handleProfiles(rec, httptest.NewRequest("POST", "/api/profiles", strings.NewReader(payload)))

	rec = httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/api/status", nil))
	var body struct {
		Profiles   []string `json:"profiles"`
		Registered []string `json:"registered"`
		Running    []string `json:"running"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Profiles) != 1 || body.Profiles[0] != "p1" {
		t.Fatalf("profiles = %v", body.Profiles)
	}
	if len(body.Registered) != 1 {
		t.Fatalf("registered = %v", body.Registered)
	}
	if len(body.Running) != 0 {
		t.Fatalf("running = %v", body.Running)
	}
}
