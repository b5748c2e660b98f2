package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/model"
)

// AnalyzeRequest is the body of POST /analyze. An empty text is accepted.
type AnalyzeRequest struct {
	Text *string `json:"text" validate:"required"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithFields(logrus.Fields{
		"method":     "analyze",
		"request_id": middleware.GetReqID(r.Context()),
	})

	mode, ok := parseForceSource(r.URL.Query().Get("force_source"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "force_source must be llm or rules"})
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("failed to decode body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		log.WithError(err).Warn("validation failed")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "text is required"})
		return
	}

	log.WithField("force_source", string(mode)).Info("/analyze called")
	res, err := s.analyzer.Analyze(r.Context(), *req.Text, mode)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) diagLLM(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Diagnose(r.Context()))
}

func parseForceSource(v string) (model.SourceMode, bool) {
	switch v {
	case "":
		return model.SourceAuto, true
	case "llm":
		return model.SourceLLMOnly, true
	case "rules":
		return model.SourceRulesOnly, true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
