package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routes builds the router with the full middleware stack.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(recovery(s.logger))
	r.Use(requestLogger(s.logger))
	r.Use(cors(s.cfg.API.CORS))
	r.Use(bodyLimit)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/layouts", s.handleListLayouts)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/preview", s.handlePreview)

		r.Post("/display", s.handleDisplay)
		r.Post("/display/clear", s.handleClear)
		r.Post("/mode", s.handleSetMode)
		r.Post("/providers/{name}/refresh", s.handleRefreshProvider)
		r.Post("/config/reload", s.handleReloadConfig)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Get("/readings", s.handleSensorReadings)
			r.Post("/readings", s.handleIngestReading)
		})

		r.Get("/frames", s.handleFrameLog)
	})

	wsPath := s.cfg.WebSocket.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}
