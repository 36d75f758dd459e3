package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slatehub/slate-core/internal/framelog"
	"github.com/slatehub/slate-core/internal/sensor"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns mode, current layout and provider health.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.GetStatus())
}

func (s *Server) handleListLayouts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"layouts": s.hub.ListLayouts(),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs": s.hub.ListJobs(),
	})
}

// handlePreview serves the last pushed frame as PNG.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	frame := s.hub.LastFrame()
	if frame == nil {
		writeError(w, http.StatusNotFound, "no frame pushed yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Layout", frame.LayoutName)
	if err := png.Encode(w, frame.Image); err != nil {
		s.logger.Warn("encoding preview failed", "error", err)
	}
}

type displayRequest struct {
	Layout string `json:"layout"`
}

// handleDisplay triggers a manual render+push of the named layout.
func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Layout == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"layout\": \"<name>\"}")
		return
	}

	if err := s.hub.TriggerDisplay(r.Context(), req.Layout); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"layout": req.Layout,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ClearDisplay(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"mode\": \"manual|auto_rotate\"}")
		return
	}

	if err := s.hub.SetMode(r.Context(), req.Mode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "accepted",
		"mode":   req.Mode,
	})
}

func (s *Server) handleRefreshProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.hub.RefreshProvider(r.Context(), name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"provider": name,
	})
}

// handleReloadConfig re-reads the config file and swaps it in. An
// invalid file is rejected and the previous configuration stays active.
func (s *Server) handleReloadConfig(w http.ResponseWriter, _ *http.Request) {
	if err := s.hub.ReloadFromFile(s.configPath); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	store := s.hub.SensorStore()
	if store == nil {
		writeError(w, http.StatusNotFound, "sensor storage not configured")
		return
	}

	sensors, err := store.Sensors(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

// handleSensorReadings returns readings from the past N hours
// (default 24), optionally filtered by sensor_id.
func (s *Server) handleSensorReadings(w http.ResponseWriter, r *http.Request) {
	store := s.hub.SensorStore()
	if store == nil {
		writeError(w, http.StatusNotFound, "sensor storage not configured")
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 24*30 {
			writeError(w, http.StatusBadRequest, "hours must be 1-720")
			return
		}
		hours = n
	}

	readings, err := store.Readings(r.Context(),
		r.URL.Query().Get("sensor_id"), time.Duration(hours)*time.Hour)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": readings})
}

type ingestRequest struct {
	SensorID     string   `json:"sensor_id"`
	TemperatureC *float64 `json:"temperature_c"`
	Humidity     float64  `json:"humidity"`
}

// handleIngestReading accepts a reading over HTTP, the fallback path
// for sensors without MQTT.
func (s *Server) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	store := s.hub.SensorStore()
	if store == nil {
		writeError(w, http.StatusNotFound, "sensor storage not configured")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.TemperatureC == nil {
		writeError(w, http.StatusBadRequest, "temperature_c is required")
		return
	}

	reading := sensor.Reading{
		SensorID:     req.SensorID,
		TemperatureC: *req.TemperatureC,
		Humidity:     req.Humidity,
	}
	if err := store.Insert(r.Context(), &reading); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// handleFrameLog returns recent display delivery history.
func (s *Server) handleFrameLog(w http.ResponseWriter, r *http.Request) {
	repo := s.frames
	if repo == nil {
		writeError(w, http.StatusNotFound, "frame log not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	filter := framelog.Filter{
		Layout: r.URL.Query().Get("layout"),
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
	}
	result, err := repo.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
