package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ppiankov/claimcheck/internal/feedback"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"go.uber.org/zap"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type verifyTextRequest struct {
	Text               string `json:"text"`
	IncludeExplanation *bool  `json:"include_explanation"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "claimcheck verification service is running",
	})
}

func (s *Server) verifyText(w http.ResponseWriter, r *http.Request) {
	var req verifyTextRequest
	body := http.MaxBytesReader(w, r.Body, s.bodyLimit(1))
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule := fmt.Sprintf("required,max=%d", s.cfg.MaxTextLength)
	if err := s.validate.Var(req.Text, rule); err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("text is required and must be at most %d characters", s.cfg.MaxTextLength))
		return
	}

	explain := true
	if req.IncludeExplanation != nil {
		explain = *req.IncludeExplanation
	}

	res, err := s.verifier.Verify(r.Context(), req.Text, explain)
	s.respond(w, r, res, err)
}

func (s *Server) verifyImage(w http.ResponseWriter, r *http.Request) {
	explain := true
	if raw := r.URL.Query().Get("include_explanation"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_explanation must be a boolean")
			return
		}
		explain = v
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(image)) > s.cfg.MaxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}

	res, err := s.verifier.VerifyImage(r.Context(), image, header.Filename, explain)
	s.respond(w, r, res, err)
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var entry feedback.Entry
	body := http.MaxBytesReader(w, r.Body, s.bodyLimit(4))
	if err := json.NewDecoder(body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(entry); err != nil {
		writeError(w, http.StatusBadRequest, "prompt and chosen are required")
		return
	}

	if err := s.feedback.Append(entry); err != nil {
		s.logger.Error("failed to save feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// bodyLimit is the largest JSON body accepted for a request carrying up to
// fields text values of MaxTextLength characters each
func (s *Server) bodyLimit(fields int) int64 {
	return int64(fields)*int64(s.cfg.MaxTextLength)*4 + 1024
}

// respond writes a result or maps a pipeline failure onto a status
func (s *Server) respond(w http.ResponseWriter, r *http.Request, res *model.VerificationResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	switch {
	case errors.Is(err, pipeline.ErrNoValidEvidence):
		writeError(w, http.StatusNotFound, err.Error())
	case pipeline.IsInputFailure(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "verification timed out")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "verification cancelled")
	default:
		s.logger.Error("verification failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:  "verification failed",
			Detail: err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
