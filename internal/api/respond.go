package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

func timeSince(t time.Time) string {
	return time.Since(t).Round(time.Second).String()
}

// ErrorResponse is the error body for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, ErrorResponse{Error: msg})
}

// sendDomainError maps a domain error onto its HTTP status. Store
// errors stay generic for the caller and keep their detail in logs.
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	switch kind {
	case errs.KindValidation, errs.KindInvalidState, errs.KindTemplateConfig:
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: kind.String()})
	case errs.KindAuth:
		s.sendJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Kind: kind.String()})
	case errs.KindPermission:
		s.sendJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Kind: kind.String()})
	case errs.KindNotFound:
		s.sendJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: kind.String()})
	default:
		s.logger.Error("internal error", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}
