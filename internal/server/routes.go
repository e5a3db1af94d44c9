package server

import (
	"fmt"
	"net/http"

	"parastream/internal/logging"
)

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /fix-stream", h.FixStream)
	mux.HandleFunc("POST /translate-stream", h.TranslateStream)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /config", h.GetConfig)
	mux.HandleFunc("POST /config", h.UpdateConfig)
}

// ListenAndServe assembles the mux and blocks serving it.
func ListenAndServe(port int, h *Handler, log *logging.Logger) error {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	addr := fmt.Sprintf(":%d", port)
	log.Info("listening on %s", addr)
	log.Info("endpoints:")
	log.Info("  POST /fix-stream")
	log.Info("  POST /translate-stream")
	log.Info("  GET  /health")
	log.Info("  GET  /config")
	log.Info("  POST /config")

	// No global write timeout: streams stay open for as long as the
	// dispatcher is emitting.
	return http.ListenAndServe(addr, mux)
}
