// Package api provides the local HTTP/WebSocket surface the GUI and
// CLI tooling talk to: profile CRUD, run control and a live status
// event feed. It binds loopback only.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"

	"autoclick/internal/config"
	"autoclick/internal/router"
	"autoclick/internal/status"
)

// Server provides the local control API
type Server struct {
	configMgr *config.Manager
	router    *router.Router
	bus       *status.Bus
	wsMgr     *WSManager
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, rt *router.Router, bus *status.Bus) *Server {
	s := &Server{
		configMgr: configMgr,
		router:    rt,
		bus:       bus,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Start starts the API server on the specified port. It blocks until
// the listener fails or is closed.
func (s *Server) Start(port int) error {
	// Start WebSocket Manager and the bus-to-clients forwarder
	go s.wsMgr.start()
	go s.forwardEvents()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/profiles", s.handleProfiles)
	mux.HandleFunc("/api/profiles/path", s.handleClickPath)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	// Loopback only: this API carries no auth and must never be
	// reachable from other machines
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Starting API server on %s", addr)

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		log.Printf("Note: Hotkeys keep working without the local API.")
		return err
	}

	server := &http.Server{
		Handler: s.logMiddleware(s.recoverMiddleware(mux)),
	}

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// forwardEvents pushes every status event to connected clients
func (s *Server) forwardEvents() {
	events := s.bus.Subscribe()
	for ev := range events {
		s.wsMgr.BroadcastEvent(ev)
	}
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		next.ServeHTTP(w, r)
	})
}

// handleProfiles handles GET (list) and POST (upsert) for profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		cfg := s.configMgr.Get()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg.Profiles)

	case "POST":
		var p config.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "Invalid profile data", http.StatusBadRequest)
			return
		}
		if p.ID == "" {
			http.Error(w, "Missing profile id", http.StatusBadRequest)
			return
		}

		s.configMgr.SetProfile(p)
		if err := s.configMgr.Save(); err != nil {
			log.Printf("API: Failed to save profile %s: %v", p.ID, err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}

		// Keep hotkey bindings in line with the stored profile
		if p.IsSaved && p.IsActive {
			if err := s.router.RegisterProfile(p); err != nil {
				log.Printf("API: Hotkey registration for %s: %v", p.ID, err)
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
		} else {
			s.router.UnregisterProfile(p.ID)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "id": p.ID})

	case "DELETE":
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		s.router.UnregisterProfile(id)
		s.configMgr.DeleteProfile(id)
		if err := s.configMgr.Save(); err != nil {
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleClickPath handles POST /api/profiles/path?id=<id> with a JSON
// click-path body; this is how the GUI attaches a finished recording
// to a profile
func (s *Server) handleClickPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	var path []config.ClickStep
	if err := json.NewDecoder(r.Body).Decode(&path); err != nil {
		http.Error(w, "Invalid click path data", http.StatusBadRequest)
		return
	}

	if !s.configMgr.SetClickPath(id, path) {
		http.Error(w, "Unknown profile", http.StatusNotFound)
		return
	}
	if err := s.configMgr.Save(); err != nil {
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	// The path swap may change the profile's mode, so refresh its
	// registration snapshot
	if p := s.configMgr.GetProfile(id); p != nil && p.IsSaved && p.IsActive {
		if err := s.router.RegisterProfile(*p); err != nil {
			log.Printf("API: Hotkey refresh for %s: %v", id, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "steps": len(path)})
}

// handleRun handles POST /api/run?profile=<id>&action=start|stop
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("profile")
	if id == "" {
		http.Error(w, "Missing profile parameter", http.StatusBadRequest)
		return
	}

	action := r.URL.Query().Get("action")
	switch action {
	case "start":
		s.router.StartProfile(id)
	case "stop":
		s.router.StopProfile(id)
	default:
		http.Error(w, "Invalid action parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"profile": id,
		"action":  action,
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()
	running := []string{}
	for _, id := range s.router.RegisteredIDs() {
		if s.router.Running(id) {
			running = append(running, id)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profiles":   getProfileIDs(cfg.Profiles),
		"registered": s.router.RegisteredIDs(),
		"running":    running,
	})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// getProfileIDs extracts profile ids from the profile list
func getProfileIDs(profiles []config.Profile) []string {
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	return ids
}
