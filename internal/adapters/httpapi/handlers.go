package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikey/phish-screen/internal/admission"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/logging"
	"github.com/mikey/phish-screen/internal/ports"
	"go.uber.org/zap"
)

type errorBody struct {
	Detail string `json:"detail"`
}

type scoreResponse struct {
	Scoring int    `json:"scoring"`
	Reason  string `json:"reason"`
}

type unifiedResponse struct {
	Scoring int    `json:"scoring"`
	Reason  string `json:"reason,omitempty"`
	Title   string `json:"title,omitempty"`
}

type analyzeResponse struct {
	ImageType string `json:"image_type"`
	Scoring   int    `json:"scoring"`
	Reason    string `json:"reason"`
}

type extractResponse struct {
	ParsedText       string `json:"parsed_text"`
	IsErrorResponse  bool   `json:"is_error_response"`
	ErrorMessage     string `json:"error_message,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

type healthResponse struct {
	Status               string               `json:"status"`
	ActiveRequests       int64                `json:"active_requests"`
	CacheSize            int                  `json:"cache_size"`
	ScoringAvailable     int                  `json:"scoring_available"`
	OCRAvailable         int                  `json:"ocr_available"`
	OCRClientInitialized bool                 `json:"ocr_client_initialized"`
	Gates                []admission.Snapshot `json:"gates"`
}

var endpoints = []string{
	"POST /evaluate-phishing",
	"POST /evaluate-social-engineering",
	"POST /evaluate",
	"POST /analyze",
	"POST /extract-text",
	"POST /send-alert-email",
	"POST /send-whatsapp-notification",
	"GET /health",
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "Phishing Detection API",
		"status":    "running",
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:         "healthy",
		ActiveRequests: s.active.Load(),
		CacheSize:      s.pipeline.CacheSize(),
	}
	if s.scoringGate != nil {
		resp.ScoringAvailable = s.scoringGate.Available()
		resp.Gates = append(resp.Gates, s.scoringGate.Snapshot())
	}
	if s.ocrGate != nil {
		resp.OCRAvailable = s.ocrGate.Available()
		resp.Gates = append(resp.Gates, s.ocrGate.Snapshot())
	}
	if s.ocr != nil {
		resp.OCRClientInitialized = s.ocr.Initialized()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvaluate serves the four scoring endpoints; kind picks the pipeline and the response shape
func (s *Server) handleEvaluate(kind core.EvaluationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context(), s.logger)

		up, err := s.readUpload(w, r)
		if err != nil {
			logger.Warn("Rejected upload", zap.String("kind", string(kind)), zap.Error(err))
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
			return
		}

		res, err := s.pipeline.Evaluate(r.Context(), &core.EvaluationRequest{
			Image:  up.data,
			Format: up.format,
			Kind:   kind,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		switch kind {
		case core.KindUnified:
			writeJSON(w, http.StatusOK, unifiedResponse{Scoring: res.Score, Reason: res.Reason, Title: res.Title})
		case core.KindRouted:
			writeJSON(w, http.StatusOK, analyzeResponse{
				ImageType: string(res.ContentType),
				Scoring:   res.Score,
				Reason:    res.Reason,
			})
		default:
			writeJSON(w, http.StatusOK, scoreResponse{Scoring: res.Score, Reason: res.Reason})
		}
	}
}

func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	up, err := s.readUpload(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}

	res := s.pipeline.ExtractText(r.Context(), up.data)
	writeJSON(w, http.StatusOK, extractResponse{
		ParsedText:       res.Text,
		IsErrorResponse:  res.IsError,
		ErrorMessage:     res.ErrorMessage,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleSendAlertEmail(w http.ResponseWriter, r *http.Request) {
	var alert ports.EmailAlert
	if err := decodeJSON(r, &alert); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}
	if alert.Scoring < 1 || alert.Scoring > 10 {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "scoring must be between 1 and 10"})
		return
	}
	writeJSON(w, http.StatusOK, s.notifier.SendEmailAlert(r.Context(), alert))
}

func (s *Server) handleSendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var alert ports.WhatsAppAlert
	if err := decodeJSON(r, &alert); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.notifier.SendWhatsApp(r.Context(), alert))
}

// writeError maps pipeline failures to status codes: timeouts 504, bad input 400, the rest 500
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context(), s.logger)

	var pe *core.PipelineError
	switch {
	case core.IsTimeout(err):
		logger.Warn("Evaluation timed out", zap.Error(err))
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Detail: "Request timed out"})
	case errors.As(err, &pe) && pe.Kind == core.KindInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: pe.Err.Error()})
	default:
		logger.Error("Evaluation failed", zap.Error(err))
		detail := "Internal error"
		if pe != nil {
			detail = fmt.Sprintf("Internal error: %s", pe.Kind)
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: detail})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
