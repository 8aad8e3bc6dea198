// Package httpapi exposes the engine to rendering collaborators over
// HTTP and WebSocket.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"

	"github.com/hmuro/playalong/internal/app/importer"
	"github.com/hmuro/playalong/internal/app/notification"
	"github.com/hmuro/playalong/internal/app/session"
	"github.com/hmuro/playalong/internal/domain/segment"
	"github.com/hmuro/playalong/internal/domain/song"
	"github.com/hmuro/playalong/internal/domain/timecode"
	"github.com/hmuro/playalong/internal/infra/history"
	"github.com/hmuro/playalong/internal/infra/score"
)

// Server wires the session manager, stores, and notification fan-out
// into an HTTP handler.
type Server struct {
	session        *session.Manager
	store          *history.Store
	notify         *notification.Manager
	allowedOrigins []string
}

// New creates a new API server. store may be nil; the history endpoint
// then reports an empty list.
func New(sess *session.Manager, store *history.Store, notify *notification.Manager, allowedOrigins []string) *Server {
	return &Server{
		session:        sess,
		store:          store,
		notify:         notify,
		allowedOrigins: allowedOrigins,
	}
}

// Handler returns the fully routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/v1/score", s.handleParseScore).Methods(http.MethodPost)
	r.HandleFunc("/v1/songs", s.handleNormalizeSong).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/song", s.handleLoadSong).Methods(http.MethodPost)
	r.HandleFunc("/v1/session", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/v1/session/detections", s.handleDetections).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/v1/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/seek", s.handleSeek).Methods(http.MethodGet)

	opts := cors.Options{AllowedMethods: []string{http.MethodGet, http.MethodPost}}
	if len(s.allowedOrigins) > 0 {
		opts.AllowedOrigins = s.allowedOrigins
	}
	return cors.New(opts).Handler(r)
}

// sessionView is the session representation returned to clients.
type sessionView struct {
	Snapshot session.Snapshot  `json:"snapshot"`
	Segments []segment.Segment `json:"segments"`
}

func (s *Server) handleParseScore(w http.ResponseWriter, r *http.Request) {
	rec, err := score.Parse(r.Body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "could not parse score document")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// normalizeRequest is the body of POST /v1/songs.
type normalizeRequest struct {
	Payload string `json:"payload"`
	Query   string `json:"query"`
}

func (s *Server) handleNormalizeSong(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := importer.Normalize(req.Payload, req.Query)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidSong) || errors.Is(err, importer.ErrNoJSON) {
			writeError(w, http.StatusUnprocessableEntity, "could not analyze song payload")
			return
		}
		zlog.Error().Err(err).Msg("song normalization failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleLoadSong(w http.ResponseWriter, r *http.Request) {
	var rec song.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if rec.Title == "" || !rec.HasContent() {
		writeError(w, http.StatusUnprocessableEntity, "song must have a title and content")
		return
	}

	snap, err := s.session.Load(r.Context(), &rec)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to load song")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessionView{Snapshot: snap, Segments: s.session.Segments()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionView{
		Snapshot: s.session.Snapshot(),
		Segments: s.session.Segments(),
	})
}

// detectionRequest is the body of POST /v1/session/detections. A
// client that tracks the load generation may stamp fragments with it so
// late deliveries for a replaced song are discarded.
type detectionRequest struct {
	Text       string `json:"text"`
	Generation *int   `json:"generation,omitempty"`
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		snap session.Snapshot
		err  error
	)
	if req.Generation != nil {
		snap, err = s.session.FeedFragment(*req.Generation, req.Text)
	} else {
		snap, err = s.session.HandleFragment(req.Text)
	}
	switch {
	case errors.Is(err, session.ErrNoSong):
		writeError(w, http.StatusConflict, "no song loaded")
		return
	case errors.Is(err, session.ErrStaleFragment):
		writeError(w, http.StatusConflict, "fragment addressed to a previous song")
		return
	case err != nil:
		zlog.Error().Err(err).Msg("failed to handle detection fragment")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	entries, err := s.store.List(r.Context())
	if err != nil {
		zlog.Error().Err(err).Msg("failed to list history")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	seconds, ok := timecode.ParseSeconds(r.URL.Query().Get("t"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid time label")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seconds": seconds})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
