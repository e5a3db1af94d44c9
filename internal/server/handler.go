package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"parastream/internal/config"
	"parastream/internal/detector"
	"parastream/internal/dispatch"
	"parastream/internal/gateway"
	"parastream/internal/hostmon"
	"parastream/internal/logging"
	"parastream/internal/segment"
	"parastream/internal/service"
)

// Ensurer is the availability monitor seam.
type Ensurer interface {
	EnsureRunning(ctx context.Context, cfg config.Model, allowStart bool) hostmon.Status
}

type Handler struct {
	cfg *config.Manager
	mon Ensurer
	mem service.Memory
	det *detector.Detector
	log *logging.Logger

	// newInvoker builds the per-request gateway; tests swap it for a fake.
	newInvoker func(config.Model) gateway.Invoker

	// pacing is the optional delay between consecutive stream emits.
	pacing time.Duration
}

func NewHandler(cfg *config.Manager, mon Ensurer, mem service.Memory, det *detector.Detector, log *logging.Logger) *Handler {
	return &Handler{
		cfg: cfg,
		mon: mon,
		mem: mem,
		det: det,
		log: log,
		newInvoker: func(m config.Model) gateway.Invoker {
			return gateway.NewRunner(m)
		},
	}
}

func (h *Handler) memory(cfg config.Settings) service.Memory {
	if cfg.NoCache {
		return nil
	}
	return h.mem
}

type fixRequest struct {
	Text    string                 `json:"text"`
	Model   string                 `json:"model"`
	Options service.GrammarOptions `json:"options"`
}

// FixStream handles POST /fix-stream: grammar correction, one NDJSON line per
// paragraph, strictly in input order.
func (h *Handler) FixStream(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_text", "request text is missing or empty")
		return
	}

	cfg := h.cfg.Snapshot()
	if !h.ensureHost(r.Context(), w, cfg) {
		return
	}

	units := segment.Split(req.Text)
	reqID := uuid.New().String()
	h.log.Info("fix-stream %s: %d paragraph(s), concurrency %d", reqID, len(units), cfg.Model.Concurrency)

	nw := newNDJSONWriter(w)
	pipe := service.New(cfg, h.newInvoker(cfg.Model), h.memory(cfg), h.det, h.log)
	pipe.Pacing = h.pacing

	sink := dispatch.SinkFunc(func(res dispatch.Result) error {
		line := fixLine{Index: res.Index, Original: units[res.Index].Text, Corrected: res.Text}
		if res.Err != nil {
			h.log.Error("fix-stream %s: paragraph %d: %v", reqID, res.Index, res.Err)
			line.Corrected = errorMarker
		}
		return nw.writeLine(line)
	})

	if err := pipe.Fix(r.Context(), units, req.Model, req.Options, sink); err != nil {
		h.log.Error("fix-stream %s: stream fault: %v", reqID, err)
		nw.fault()
	}
}

type translateRequest struct {
	Text    string                   `json:"text"`
	Model   string                   `json:"model"`
	Options service.TranslateOptions `json:"options"`
}

// TranslateStream handles POST /translate-stream: chunked translation, one
// NDJSON line per paragraph, strictly in input order.
func (h *Handler) TranslateStream(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_text", "request text is missing or empty")
		return
	}
	if strings.TrimSpace(req.Options.TargetLang) == "" {
		writeError(w, http.StatusBadRequest, "missing_target_lang", "options.targetLang is required")
		return
	}

	cfg := h.cfg.Snapshot()
	if !h.ensureHost(r.Context(), w, cfg) {
		return
	}

	units := segment.Split(req.Text)
	reqID := uuid.New().String()
	h.log.Info("translate-stream %s: %d paragraph(s) -> %s", reqID, len(units), req.Options.TargetLang)

	nw := newNDJSONWriter(w)
	pipe := service.New(cfg, h.newInvoker(cfg.Model), h.memory(cfg), h.det, h.log)
	pipe.Pacing = h.pacing

	sink := dispatch.SinkFunc(func(res dispatch.Result) error {
		line := translateLine{Index: res.Index, Translated: res.Text}
		if res.Err != nil {
			h.log.Error("translate-stream %s: paragraph %d: %v", reqID, res.Index, res.Err)
			line.Translated = errorMarker
		}
		return nw.writeLine(line)
	})

	if err := pipe.Translate(r.Context(), units, req.Model, req.Options, sink); err != nil {
		h.log.Error("translate-stream %s: stream fault: %v", reqID, err)
		nw.fault()
	}
}

// ensureHost gates dispatch on model host reachability. On failure it writes
// the 503 response and returns false; no partial stream is ever produced.
func (h *Handler) ensureHost(ctx context.Context, w http.ResponseWriter, cfg config.Settings) bool {
	st := h.mon.EnsureRunning(ctx, cfg.Model, false)
	if !st.Reachable {
		writeError(w, http.StatusServiceUnavailable, "model_unavailable",
			fmt.Sprintf("model host at %s is not reachable", cfg.Model.Addr()))
		return false
	}
	return true
}

// Health handles GET /health?start=<bool>: probe the model host and
// optionally start it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	allowStart := r.URL.Query().Get("start") == "true"
	cfg := h.cfg.Snapshot()

	st := h.mon.EnsureRunning(r.Context(), cfg.Model, allowStart)

	body := map[string]any{
		"ok":        st.Reachable,
		"reachable": st.Reachable,
		"starting":  st.Started,
	}
	if st.Reachable {
		writeJSON(w, http.StatusOK, body)
		return
	}
	body["message"] = fmt.Sprintf("model host at %s is not reachable", cfg.Model.Addr())
	writeJSON(w, http.StatusServiceUnavailable, body)
}

// GetConfig handles GET /config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.cfg.Snapshot()))
}

// UpdateConfig handles POST /config: a partial update of the operating
// configuration, optionally persisted to the config file.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var upd configUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := upd.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	next := h.cfg.Update(upd.apply)

	if upd.Persist {
		if err := h.cfg.Persist(); err != nil {
			h.log.Error("config persist failed: %v", err)
			writeError(w, http.StatusInternalServerError, "persist_failed", err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, viewOf(next))
}
