/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the command and status HTTP surface. It is the
// in-repo stand-in for the external command layer: chat-command parsing and
// sender authorization live outside this repository and map onto these
// endpoints.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/broadcast"
	"github.com/friendsincode/skald_radio/internal/cache"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/library"
	"github.com/friendsincode/skald_radio/internal/playlog"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// User-visible library operation messages handed to the messaging layer.
const (
	msgFileExists     = "A file with this name already exists."
	msgDownloadError  = "File download error. Try again later."
	msgConvertError   = "File convert error. Something went wrong."
	msgFileAdded      = "File was added successfully."
	msgFileDeleted    = "File was deleted successfully."
	msgFileNotFound   = "File not found."
	msgDeleteError    = "An error occurred while deleting the file. Please check the listing."
	msgIncorrectUsage = "Incorrect command usage."
)

const maxUploadBytes = 256 << 20

// Server hosts the HTTP API.
type Server struct {
	cfg        *config.Config
	controller *broadcast.Controller
	registry   *broadcast.Registry
	manager    *library.Manager
	listings   *cache.Cache
	playlog    *playlog.Service
	bus        *events.Bus
	logger     zerolog.Logger
}

// New creates the HTTP server.
func New(cfg *config.Config, controller *broadcast.Controller, registry *broadcast.Registry, manager *library.Manager, listings *cache.Cache, plog *playlog.Service, bus *events.Bus, logger zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		controller: controller,
		registry:   registry,
		manager:    manager,
		listings:   listings,
		playlog:    plog,
		bus:        bus,
		logger:     logger.With().Str("component", "server").Logger(),
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/help", s.handleHelp)
	r.Get("/v1/events/ws", s.handleEventsWS)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionStatus)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Get("/playlog", s.handlePlayLog)
			r.Route("/library", func(r chi.Router) {
				r.Get("/", s.handleListLibrary)
				r.Post("/{kind}", s.handleAddAsset)
				r.Delete("/{kind}/{name}", s.handleRemoveAsset)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.controller.StartBroadcast(r.Context(), sessionID); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, broadcast.ErrNoVoiceChannel) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": sessionID,
		"phase":      string(broadcast.PhaseConnecting),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.controller.StopBroadcast(r.Context(), sessionID); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	type sessionStatus struct {
		SessionID string `json:"session_id"`
		Phase     string `json:"phase"`
		Current   string `json:"current,omitempty"`
	}

	ids := s.registry.SessionIDs()
	out := make([]sessionStatus, 0, len(ids))
	for _, id := range ids {
		sess, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		status := sessionStatus{SessionID: id, Phase: string(sess.Phase())}
		if cur, ok := sess.Current(); ok {
			status.Current = cur.Name()
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	resp := map[string]any{
		"session_id": sessionID,
		"phase":      string(sess.Phase()),
	}
	if cur, ok := sess.Current(); ok {
		resp["current"] = cur
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if listing, ok := s.listings.GetListing(r.Context(), sessionID); ok {
		writeJSON(w, http.StatusOK, listing)
		return
	}

	listing := s.manager.List(sessionID)
	s.listings.SetListing(r.Context(), sessionID, listing)
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	kind, err := library.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.notify(sessionID, msgIncorrectUsage)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgIncorrectUsage})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.notify(sessionID, msgIncorrectUsage)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgIncorrectUsage})
		return
	}
	defer file.Close()

	name, err := s.manager.Add(r.Context(), sessionID, kind, header.Filename, file)
	if err != nil {
		telemetry.LibraryMutations.WithLabelValues("add", "error").Inc()
		switch {
		case errors.Is(err, library.ErrAlreadyExists):
			s.notify(sessionID, msgFileExists)
			writeJSON(w, http.StatusConflict, map[string]string{"error": msgFileExists})
		case errors.Is(err, library.ErrConvertFailed):
			s.notify(sessionID, msgConvertError)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgConvertError})
		default:
			s.notify(sessionID, msgDownloadError)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgDownloadError})
		}
		return
	}

	telemetry.LibraryMutations.WithLabelValues("add", "ok").Inc()
	s.listings.Invalidate(r.Context(), sessionID)
	s.notify(sessionID, msgFileAdded)
	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": sessionID,
		"kind":       string(kind),
		"name":       name,
	})
}

func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	kind, err := library.ParseKind(chi.URLParam(r, "kind"))
	if err != nil || name == "" {
		s.notify(sessionID, msgIncorrectUsage)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgIncorrectUsage})
		return
	}

	if err := s.manager.Remove(r.Context(), sessionID, kind, name); err != nil {
		telemetry.LibraryMutations.WithLabelValues("remove", "error").Inc()
		if errors.Is(err, library.ErrNotFound) {
			s.notify(sessionID, msgFileNotFound)
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgFileNotFound})
			return
		}
		s.notify(sessionID, msgDeleteError)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgDeleteError})
		return
	}

	telemetry.LibraryMutations.WithLabelValues("remove", "ok").Inc()
	s.listings.Invalidate(r.Context(), sessionID)
	s.notify(sessionID, msgFileDeleted)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
}

func (s *Server) handlePlayLog(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		// Bad values fall back to the service default.
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	entries, err := s.playlog.Recent(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("play log query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "play log unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"start":  "POST /v1/sessions/{id}/start - go on air",
		"stop":   "POST /v1/sessions/{id}/stop - stop the broadcast",
		"list":   "GET /v1/sessions/{id}/library - list tracks, inserts, announces",
		"add":    "POST /v1/sessions/{id}/library/{kind} - multipart upload of an audio file",
		"remove": "DELETE /v1/sessions/{id}/library/{kind}/{name} - remove an asset",
	})
}

func (s *Server) notify(sessionID, text string) {
	s.bus.Publish(events.EventNotification, events.Payload{
		"session_id": sessionID,
		"text":       text,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
