// Package web exposes the daemon's HTTP status endpoints: a health check,
// a JSON status document and a PNG preview of the last frame pushed to the
// panel.
package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the JSON response shape for /api/status.
type Status struct {
	Mode        string     `json:"mode"`
	Refresh     string     `json:"refresh"`
	Cycles      int        `json:"cycles"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Sleeping    bool       `json:"sleeping"`
}

// Server serves the status endpoints. It holds the last rendered frame in
// memory; the PNG is encoded lazily and cached until the frame changes.
type Server struct {
	log *zap.Logger
	mux *http.ServeMux

	mu      sync.RWMutex
	status  Status
	frame   image.Image
	encoded []byte
}

// NewServer constructs a Server with no frame and an empty status.
func NewServer(log *zap.Logger) *Server {
	s := &Server{
		log: log,
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetStatus replaces the published status document.
func (s *Server) SetStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// SetFrame publishes the frame most recently pushed to the panel. The PNG
// encoding is dropped and rebuilt on the next /preview.png request.
func (s *Server) SetFrame(frame image.Image) {
	s.mu.Lock()
	s.frame = frame
	s.encoded = nil
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Error("encode status response", zap.Error(err))
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	// Fast path: a cached encoding is still valid.
	s.mu.RLock()
	frame, encoded := s.frame, s.encoded
	s.mu.RUnlock()

	if frame == nil {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}

	if encoded == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, frame); err != nil {
			s.log.Error("encode preview", zap.Error(err))
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		encoded = buf.Bytes()

		s.mu.Lock()
		// Only cache if the frame was not replaced meanwhile.
		if s.frame == frame {
			s.encoded = encoded
		}
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)
}
